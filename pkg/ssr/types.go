package ssr

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/stuff"
)

// Fixed manifest positions of the nodes used to render error pages.
const (
	// RootLayoutIndex is the manifest index of the root layout.
	RootLayoutIndex = 0

	// RootErrorIndex is the manifest index of the root error page.
	RootErrorIndex = 1
)

// FallbackStatus is the status of the response returned when the error
// page itself cannot be rendered.
const FallbackStatus = http.StatusInternalServerError

// FallbackRedactedBody replaces the stack trace in the fallback body when
// Options.RedactFallback is set.
const FallbackRedactedBody = "Internal Server Error"

// Request is the inbound request descriptor. It is read-only for the
// duration of a response cycle.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header

	// Locals holds request-scoped values set by earlier middleware.
	Locals map[string]any
}

// RequestFromHTTP builds a Request from an *http.Request. The URL and
// headers are cloned.
func RequestFromHTTP(r *http.Request) *Request {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	return &Request{
		Method: r.Method,
		URL:    &u,
		Header: r.Header.Clone(),
		Locals: map[string]any{},
	}
}

// Session is an opaque session value passed through to loads and render.
type Session = any

// PrerenderState tracks prerendering for one render cycle.
type PrerenderState struct {
	// All is set when every page is being prerendered.
	All bool
}

// State is the per-render mutable context. It is owned by the caller.
type State struct {
	Prerender *PrerenderState
}

// Route describes a matched route. Error pages have none.
type Route struct {
	ID      string
	Pattern string
}

// ComponentProps is passed to a Component when the page is rendered.
type ComponentProps struct {
	// Props are the values returned by the node's load hook.
	Props map[string]any

	// Stuff is the final accumulated context of the render.
	Stuff stuff.Context

	// Status and Error describe the error being rendered.
	Status int
	Error  error

	// URL is the request URL.
	URL *url.URL

	// Slot renders the nested content. It is nil for the innermost node.
	Slot func(w io.Writer) error
}

// Component writes a node's HTML.
type Component func(w io.Writer, p ComponentProps) error

// LoadOutput is returned by a module's load hook.
type LoadOutput struct {
	// Props are handed to the node's component.
	Props map[string]any

	// Stuff is merged over the input stuff.
	Stuff map[string]any
}

// LoadFunc is a module's data-loading hook.
type LoadFunc func(ctx context.Context, ev *LoadEvent) (LoadOutput, error)

// Module is the code behind a manifest node.
type Module struct {
	// Prerender declares the node statically prerenderable.
	Prerender bool

	// Load is optional.
	Load LoadFunc

	// Component renders the node. A nil component renders its slot only.
	Component Component
}

// Node is a manifest entry.
type Node struct {
	ID     string
	Module *Module
}

// Manifest is the registry of layout, page and error nodes.
type Manifest struct {
	Nodes []*Node
}

// RootLayout returns the node at RootLayoutIndex.
func (m *Manifest) RootLayout() (*Node, error) {
	n := m.node(RootLayoutIndex)
	if n == nil {
		return nil, errors.New("E001").WithSuggestion("Register the root layout at ssr.RootLayoutIndex")
	}
	if n.Module == nil {
		return nil, errors.New("E022").WithDetail("root layout " + n.ID + " has no module")
	}
	return n, nil
}

// RootError returns the node at RootErrorIndex.
func (m *Manifest) RootError() (*Node, error) {
	n := m.node(RootErrorIndex)
	if n == nil {
		return nil, errors.New("E002").WithSuggestion("Register the root error page at ssr.RootErrorIndex")
	}
	if n.Module == nil {
		return nil, errors.New("E022").WithDetail("root error " + n.ID + " has no module")
	}
	return n, nil
}

func (m *Manifest) node(i int) *Node {
	if m == nil || i >= len(m.Nodes) {
		return nil
	}
	return m.Nodes[i]
}

// ErrorHandler is invoked with the normalized error when the error page
// cannot be rendered.
type ErrorHandler func(err *errinfo.Structured, req *Request)

// Options is the process-wide render configuration. It must not be
// modified while a response is being produced.
type Options struct {
	Manifest *Manifest

	// Hydrate and Router are copied into the page config.
	Hydrate bool
	Router  bool

	// Prerender enables prerendering globally.
	Prerender bool

	// RedactFallback replaces the stack trace in the fallback body with
	// FallbackRedactedBody. HandleError still receives the full stack.
	RedactFallback bool

	// HandleError is called once per fallback response.
	HandleError ErrorHandler
}

// LoadedNode is the result of loading a manifest node.
type LoadedNode struct {
	Node  *Node
	Props map[string]any
	Stuff stuff.Context

	// Status and Error are set for error loads.
	Status int
	Error  error
}

// LoadInput describes one node load.
type LoadInput struct {
	Request          *Request
	Options          *Options
	State            *State
	Route            *Route
	URL              *url.URL
	Params           map[string]string
	Node             *Node
	Session          Session
	Stuff            stuff.Context
	PrerenderEnabled bool
	IsError          bool
	Status           int
	Error            error
}

// PageConfig holds the per-page client flags.
type PageConfig struct {
	Hydrate bool
	Router  bool
}

// RenderInput describes one page render.
type RenderInput struct {
	Options    *Options
	Session    Session
	PageConfig PageConfig
	Stuff      stuff.Context
	Status     int
	Error      error

	// Branch is ordered outermost first.
	Branch []*LoadedNode
	URL    *url.URL
	Params map[string]string
	SSR    bool
}

// Response is a rendered HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    string

	// Fallback is set on the fixed 500 response.
	Fallback bool
}

// Loader loads a manifest node.
type Loader interface {
	Load(ctx context.Context, in LoadInput) (*LoadedNode, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, in LoadInput) (*LoadedNode, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, in LoadInput) (*LoadedNode, error) {
	return f(ctx, in)
}

// Renderer produces the final response from a loaded branch.
type Renderer interface {
	Render(ctx context.Context, in RenderInput) (*Response, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, in RenderInput) (*Response, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, in RenderInput) (*Response, error) {
	return f(ctx, in)
}
