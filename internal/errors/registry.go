package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Responder Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryManifest,
		Message:  "Root layout missing from manifest",
		Detail:   "The error page is rendered inside the root layout, which must be registered at index 0 of the manifest.",
		DocURL:   "https://vango.dev/docs/errpage/E001",
	},
	"E002": {
		Category: CategoryManifest,
		Message:  "Root error page missing from manifest",
		Detail:   "The root error page must be registered at index 1 of the manifest.",
		DocURL:   "https://vango.dev/docs/errpage/E002",
	},
	"E003": {
		Category: CategoryManifest,
		Message:  "Render options missing",
		Detail:   "RespondWithError was called without render options.",
		DocURL:   "https://vango.dev/docs/errpage/E003",
	},

	// ============================================
	// Load Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryLoad,
		Message:  "Node load failed",
		Detail:   "A layout or error node's load hook returned an error.",
		DocURL:   "https://vango.dev/docs/errpage/E020",
	},
	"E021": {
		Category: CategoryLoad,
		Message:  "Loader returned no node",
		Detail:   "The loader returned neither a loaded node nor an error.",
		DocURL:   "https://vango.dev/docs/errpage/E021",
	},
	"E022": {
		Category: CategoryLoad,
		Message:  "Node has no module",
		Detail:   "Every manifest node must carry a module.",
		DocURL:   "https://vango.dev/docs/errpage/E022",
	},

	// ============================================
	// Render Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryRender,
		Message:  "Component render failed",
		Detail:   "A component in the layout/error branch returned an error while rendering.",
		DocURL:   "https://vango.dev/docs/errpage/E040",
	},
	"E041": {
		Category: CategoryRender,
		Message:  "Empty render branch",
		Detail:   "The renderer was called without any loaded nodes.",
		DocURL:   "https://vango.dev/docs/errpage/E041",
	},
	"E042": {
		Category: CategoryRender,
		Message:  "Renderer returned no response",
		Detail:   "The renderer returned neither a response nor an error.",
		DocURL:   "https://vango.dev/docs/errpage/E042",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   "https://vango.dev/docs/errpage/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml, .yml or .toml.",
		DocURL:   "https://vango.dev/docs/errpage/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value failed validation.",
		DocURL:   "https://vango.dev/docs/errpage/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "An ERRPAGE_* environment variable could not be parsed.",
		DocURL:   "https://vango.dev/docs/errpage/E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid status code",
		Detail:   "Status codes must be between 400 and 599.",
		DocURL:   "https://vango.dev/docs/errpage/E140",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
