package ssr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/stuff"
)

// ErrorInput carries everything needed to respond with an error page.
type ErrorInput struct {
	Request *Request
	Options *Options
	State   *State
	Session Session

	// Status is rendered as-is; it is not validated.
	Status int
	Error  error

	// SSR selects server rendering. When false the page is left to the
	// client.
	SSR bool
}

// ErrorResponder renders error pages.
type ErrorResponder interface {
	RespondWithError(ctx context.Context, in ErrorInput) *Response
}

// ResponderFunc adapts a function to ErrorResponder.
type ResponderFunc func(ctx context.Context, in ErrorInput) *Response

// RespondWithError implements ErrorResponder.
func (f ResponderFunc) RespondWithError(ctx context.Context, in ErrorInput) *Response {
	return f(ctx, in)
}

// Responder renders the root error page inside the root layout.
// It is safe for concurrent use.
type Responder struct {
	loader   Loader
	renderer Renderer
	logger   *slog.Logger
}

// NewResponder creates a Responder. A nil logger uses slog.Default().
func NewResponder(loader Loader, renderer Renderer, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		loader:   loader,
		renderer: renderer,
		logger:   logger.With("component", "errpage"),
	}
}

// RespondWithError renders the error page with a one-off Responder.
func RespondWithError(ctx context.Context, loader Loader, renderer Renderer, in ErrorInput) *Response {
	return NewResponder(loader, renderer, nil).RespondWithError(ctx, in)
}

// RespondWithError loads the root layout, then the root error page with
// the layout's stuff, and renders both. Any failure (returned or panicked)
// is reported to Options.HandleError and turned into a 500 response whose
// body is the error's stack trace. It never returns nil and never panics.
func (r *Responder) RespondWithError(ctx context.Context, in ErrorInput) (out *Response) {
	defer func() {
		if v := recover(); v != nil {
			out = r.fallback(in, errinfo.Recovered(v))
		}
	}()

	resp, err := r.respond(ctx, in)
	if err != nil {
		return r.fallback(in, err)
	}
	return resp
}

func (r *Responder) respond(ctx context.Context, in ErrorInput) (*Response, error) {
	opts := in.Options
	if opts == nil {
		return nil, errors.New("E003")
	}

	layout, err := opts.Manifest.RootLayout()
	if err != nil {
		return nil, err
	}
	errorNode, err := opts.Manifest.RootError()
	if err != nil {
		return nil, err
	}

	var u *url.URL
	if in.Request != nil {
		u = in.Request.URL
	}

	// Error pages have no route parameters.
	params := map[string]string{}
	prerender := IsPrerenderEnabled(opts, errorNode, in.State)

	layoutLoaded, err := r.loader.Load(ctx, LoadInput{
		Request:          in.Request,
		Options:          opts,
		State:            in.State,
		URL:              u,
		Params:           params,
		Node:             layout,
		Session:          in.Session,
		Stuff:            stuff.Context{},
		PrerenderEnabled: prerender,
	})
	if err != nil {
		return nil, fmt.Errorf("load root layout: %w", err)
	}

	inherited := stuff.Context{}
	if layoutLoaded != nil {
		inherited = layoutLoaded.Stuff
	}

	errorLoaded, err := r.loader.Load(ctx, LoadInput{
		Request:          in.Request,
		Options:          opts,
		State:            in.State,
		URL:              u,
		Params:           params,
		Node:             errorNode,
		Session:          in.Session,
		Stuff:            inherited,
		PrerenderEnabled: prerender,
		IsError:          true,
		Status:           in.Status,
		Error:            in.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("load root error page: %w", err)
	}
	if errorLoaded == nil {
		return nil, errors.New("E021").WithDetail("root error page " + errorNode.ID)
	}

	resp, err := r.renderer.Render(ctx, RenderInput{
		Options: opts,
		Session: in.Session,
		PageConfig: PageConfig{
			Hydrate: opts.Hydrate,
			Router:  opts.Router,
		},
		Stuff:  errorLoaded.Stuff,
		Status: in.Status,
		Error:  in.Error,
		Branch: []*LoadedNode{layoutLoaded, errorLoaded},
		URL:    u,
		Params: params,
		SSR:    in.SSR,
	})
	if err != nil {
		return nil, fmt.Errorf("render error page: %w", err)
	}
	if resp == nil {
		return nil, errors.New("E042")
	}
	return resp, nil
}

func (r *Responder) fallback(in ErrorInput, v any) *Response {
	info := errinfo.Coalesce(v)
	r.report(in, info)

	body := info.Stack
	if in.Options != nil && in.Options.RedactFallback {
		body = FallbackRedactedBody
	}
	return &Response{
		Status:   FallbackStatus,
		Headers:  http.Header{},
		Body:     body,
		Fallback: true,
	}
}

// report hands info to the configured error handler. A panicking handler
// is logged and otherwise ignored.
func (r *Responder) report(in ErrorInput, info *errinfo.Structured) {
	var handler ErrorHandler
	if in.Options != nil {
		handler = in.Options.HandleError
	}
	if handler == nil {
		handler = LogErrorHandler(r.logger)
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("error handler panicked", "panic", v, "error", info.Message)
		}
	}()
	handler(info, in.Request)
}

// IsPrerenderEnabled reports whether node is treated as prerenderable:
// prerendering must be enabled globally, and either the node opts in or
// the render state is prerendering all pages.
func IsPrerenderEnabled(opts *Options, node *Node, state *State) bool {
	if opts == nil || !opts.Prerender {
		return false
	}
	if node != nil && node.Module != nil && node.Module.Prerender {
		return true
	}
	return state != nil && state.Prerender != nil && state.Prerender.All
}

// LogErrorHandler returns an ErrorHandler that logs to logger.
func LogErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err *errinfo.Structured, req *Request) {
		attrs := []any{"error", err.Message, "stack", err.Stack}
		if req != nil {
			attrs = append(attrs, "method", req.Method)
			if req.URL != nil {
				attrs = append(attrs, "path", req.URL.Path)
			}
		}
		logger.Error("error page render failed", attrs...)
	}
}

// MultiErrorHandler calls each non-nil handler in order. A panicking
// handler does not stop the ones after it; the first panic is re-raised
// once every handler has run.
func MultiErrorHandler(handlers ...ErrorHandler) ErrorHandler {
	return func(err *errinfo.Structured, req *Request) {
		var first any
		for _, h := range handlers {
			if h == nil {
				continue
			}
			if v := callHandler(h, err, req); v != nil && first == nil {
				first = v
			}
		}
		if first != nil {
			panic(first)
		}
	}
}

func callHandler(h ErrorHandler, err *errinfo.Structured, req *Request) (recovered any) {
	defer func() { recovered = recover() }()
	h(err, req)
	return nil
}
