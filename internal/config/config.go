package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/ssr"
)

const (
	// ConfigBaseName is the configuration file name without extension.
	ConfigBaseName = "errpage"

	// ConfigFileName is the default configuration file.
	ConfigFileName = ConfigBaseName + ".json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ERRPAGE_"

	// DefaultAddr is the default listen address.
	DefaultAddr = "localhost:3000"

	// DefaultClientScript is the default client entry module.
	DefaultClientScript = "/_errpage/client.js"

	// DefaultAssetPrefix is where AssetDir is served when no prefix is set.
	DefaultAssetPrefix = "/public/"

	// DefaultOverlayPath is the default overlay WebSocket path.
	DefaultOverlayPath = "/_errpage/overlay"

	// DefaultMetricsPath is the default metrics endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "errpage"
)

// Modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// extensions lists the accepted config file extensions in lookup order.
var extensions = []string{".json", ".yaml", ".yml", ".toml"}

// Config represents the complete errpage configuration.
type Config struct {
	// Mode is "development" or "production".
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty" env:"MODE"`

	// Addr is the listen address of the server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty" env:"ADDR"`

	// Render contains page rendering flags.
	Render RenderConfig `json:"render" yaml:"render" toml:"render" envPrefix:"RENDER_"`

	// Fallback controls the raw 500 response.
	Fallback FallbackConfig `json:"fallback" yaml:"fallback" toml:"fallback" envPrefix:"FALLBACK_"`

	// Overlay controls the development error overlay.
	Overlay OverlayConfig `json:"overlay" yaml:"overlay" toml:"overlay" envPrefix:"OVERLAY_"`

	// Metrics controls Prometheus metrics.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`

	// Tracing controls OpenTelemetry tracing.
	Tracing TracingConfig `json:"tracing" yaml:"tracing" toml:"tracing" envPrefix:"TRACING_"`

	// Archive controls S3 incident archiving.
	Archive ArchiveConfig `json:"archive" yaml:"archive" toml:"archive" envPrefix:"ARCHIVE_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RenderConfig contains page rendering flags.
type RenderConfig struct {
	Hydrate      bool   `json:"hydrate" yaml:"hydrate" toml:"hydrate" env:"HYDRATE"`
	Router       bool   `json:"router" yaml:"router" toml:"router" env:"ROUTER"`
	Prerender    bool   `json:"prerender" yaml:"prerender" toml:"prerender" env:"PRERENDER"`
	ClientScript string `json:"clientScript,omitempty" yaml:"clientScript,omitempty" toml:"clientScript,omitempty" env:"CLIENT_SCRIPT"`
	Lang         string `json:"lang,omitempty" yaml:"lang,omitempty" toml:"lang,omitempty" env:"LANG"`

	// StyleSheets are linked from every error page.
	StyleSheets []string `json:"styleSheets,omitempty" yaml:"styleSheets,omitempty" toml:"styleSheets,omitempty" env:"STYLESHEETS" envSeparator:","`

	// AssetManifest is a JSON file mapping asset names to fingerprinted
	// names. AssetPrefix is prepended to resolved names.
	AssetManifest string `json:"assetManifest,omitempty" yaml:"assetManifest,omitempty" toml:"assetManifest,omitempty" env:"ASSET_MANIFEST"`
	AssetPrefix   string `json:"assetPrefix,omitempty" yaml:"assetPrefix,omitempty" toml:"assetPrefix,omitempty" env:"ASSET_PREFIX"`

	// AssetDir, when set, is served under AssetPrefix.
	AssetDir string `json:"assetDir,omitempty" yaml:"assetDir,omitempty" toml:"assetDir,omitempty" env:"ASSET_DIR"`
}

// FallbackConfig controls the raw 500 response.
type FallbackConfig struct {
	// Redact hides the stack trace from clients.
	Redact bool `json:"redact" yaml:"redact" toml:"redact" env:"REDACT"`
}

// OverlayConfig controls the development error overlay.
type OverlayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty" env:"PATH"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty" env:"PATH"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" toml:"namespace,omitempty" env:"NAMESPACE"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty" env:"NAME"`
}

// ArchiveConfig controls S3 incident archiving.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket,omitempty" env:"BUCKET"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty" env:"PREFIX"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty" env:"REGION"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty" env:"ENDPOINT"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Addr: DefaultAddr,
		Render: RenderConfig{
			Hydrate:      true,
			Router:       true,
			ClientScript: DefaultClientScript,
			Lang:         "en",
		},
		Overlay: OverlayConfig{
			Enabled: true,
			Path:    DefaultOverlayPath,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			Name: DefaultNamespace,
		},
		Archive: ArchiveConfig{
			Prefix: DefaultNamespace,
			Region: "us-east-1",
		},
	}
}

// Find returns the first errpage.{json,yaml,yml,toml} in dir.
func Find(dir string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, ConfigBaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Load reads configuration from the specified directory. Without a config
// file it returns the defaults with environment overrides applied.
func Load(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		cfg := New()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		cfg.applyDefaults()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return errors.New("E121").WithDetail("Cannot read " + filepath.Base(path))
	}
	if err != nil {
		return errors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax")
	}
	return nil
}

// applyEnv applies ERRPAGE_* overrides.
func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("E123").Wrap(err)
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration as JSON to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDevelopment
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Render.ClientScript == "" {
		c.Render.ClientScript = DefaultClientScript
	}
	if c.Render.Lang == "" {
		c.Render.Lang = "en"
	}
	if c.Render.AssetDir != "" && c.Render.AssetPrefix == "" {
		c.Render.AssetPrefix = DefaultAssetPrefix
	}
	if c.Overlay.Path == "" {
		c.Overlay.Path = DefaultOverlayPath
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.Name == "" {
		c.Tracing.Name = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		return errors.New("E122").
			WithDetail("mode must be \"development\" or \"production\", got " + c.Mode)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("E122").
			WithDetail("archive.bucket is required when archive is enabled")
	}
	if c.Render.AssetDir != "" && !strings.HasPrefix(c.Render.AssetPrefix, "/") {
		return errors.New("E122").WithDetail("render.assetPrefix must start with / when render.assetDir is set")
	}
	for name, p := range map[string]string{"overlay.path": c.Overlay.Path, "metrics.path": c.Metrics.Path} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("E122").WithDetail(name + " must start with /")
		}
	}
	return nil
}

// IsProduction reports whether the config runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

// OverlayEnabled reports whether the error overlay should be mounted.
func (c *Config) OverlayEnabled() bool {
	return c.Overlay.Enabled && !c.IsProduction()
}

// RedactFallback reports whether the fallback body hides the stack trace.
func (c *Config) RedactFallback() bool {
	return c.Fallback.Redact || c.IsProduction()
}

// Options builds render options for manifest.
func (c *Config) Options(manifest *ssr.Manifest, handler ssr.ErrorHandler) *ssr.Options {
	return &ssr.Options{
		Manifest:       manifest,
		Hydrate:        c.Render.Hydrate,
		Router:         c.Render.Router,
		Prerender:      c.Render.Prerender,
		RedactFallback: c.RedactFallback(),
		HandleError:    handler,
	}
}
