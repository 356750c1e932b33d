package ssr

import (
	"log/slog"
	"net/url"

	"github.com/vango-dev/errpage/pkg/stuff"
)

// LoadEvent is the view of a load that a module's Load hook receives.
type LoadEvent struct {
	URL     *url.URL
	Params  map[string]string
	Stuff   stuff.Context
	Session Session

	// Status and Error are set when the error page is being loaded.
	Status int
	Error  error

	request   *Request
	prerender bool
	logger    *slog.Logger
}

// NewLoadEvent builds the event for a load.
func NewLoadEvent(in LoadInput, logger *slog.Logger) *LoadEvent {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadEvent{
		URL:       in.URL,
		Params:    in.Params,
		Stuff:     in.Stuff,
		Session:   in.Session,
		Status:    in.Status,
		Error:     in.Error,
		request:   in.Request,
		prerender: in.PrerenderEnabled,
		logger:    logger,
	}
}

// Prerendering reports whether the load runs for a prerendered page.
func (e *LoadEvent) Prerendering() bool {
	return e.prerender
}

// Header returns a request header. Prerendered loads cannot see request
// headers and always get "".
func (e *LoadEvent) Header(key string) string {
	if e.prerender {
		e.logger.Warn("request header read during prerender", "header", key)
		return ""
	}
	if e.request == nil || e.request.Header == nil {
		return ""
	}
	return e.request.Header.Get(key)
}

// Local returns a request-scoped value set by middleware.
func (e *LoadEvent) Local(key string) any {
	if e.request == nil {
		return nil
	}
	return e.request.Locals[key]
}
