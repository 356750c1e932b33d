package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// Locals keys set on every ssr.Request built by the server.
const (
	LocalRequestID = "requestID"
	LocalClientIP  = "clientIP"
)

// HeaderRequestID carries the request ID on error page responses.
const HeaderRequestID = "X-Request-Id"

// DefaultShutdownTimeout bounds graceful shutdown in Run.
const DefaultShutdownTimeout = 10 * time.Second

// PageFunc handles a page. A returned error is rendered as an error page.
type PageFunc func(w http.ResponseWriter, r *http.Request) error

// Config configures a Server.
type Config struct {
	// Responder renders error pages. Required.
	Responder ssr.ErrorResponder

	// Options is the initial render configuration. See SetOptions.
	Options *ssr.Options

	Logger *slog.Logger

	// Overlay, when set, is mounted at OverlayPath.
	Overlay     http.Handler
	OverlayPath string

	// MetricsHandler, when set, is mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string

	// Session resolves the session passed to loads. Optional.
	Session func(r *http.Request) ssr.Session

	// TrustedProxies lists IPs or CIDRs whose forwarding headers are
	// believed when resolving the client IP.
	TrustedProxies []string

	ShutdownTimeout time.Duration
}

// Server serves pages and answers failures with error pages.
type Server struct {
	router    chi.Router
	responder ssr.ErrorResponder
	options   atomic.Pointer[ssr.Options]
	session   func(r *http.Request) ssr.Session
	proxies   *proxyMatcher
	logger    *slog.Logger
	shutdown  time.Duration
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:    chi.NewRouter(),
		responder: cfg.Responder,
		session:   cfg.Session,
		proxies:   newProxyMatcher(cfg.TrustedProxies, logger),
		logger:    logger.With("component", "server"),
		shutdown:  cfg.ShutdownTimeout,
	}
	if s.shutdown <= 0 {
		s.shutdown = DefaultShutdownTimeout
	}
	s.options.Store(cfg.Options)

	s.router.Use(middleware.RequestID, s.canonicalPaths)
	if cfg.Overlay != nil && cfg.OverlayPath != "" {
		s.router.Handle(cfg.OverlayPath, cfg.Overlay)
	}
	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		s.router.Handle(cfg.MetricsPath, cfg.MetricsHandler)
	}
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.RespondError(w, r, NotFound("page not found: "+r.URL.Path))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.RespondError(w, r, NewHTTPError(http.StatusMethodNotAllowed, r.Method+" not allowed"))
	})
	return s
}

// Handle registers a page for GET and HEAD requests matching pattern.
func (s *Server) Handle(pattern string, page PageFunc) {
	h := s.page(page)
	s.router.Get(pattern, h)
	s.router.Head(pattern, h)
}

// Mount attaches a plain handler under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Options returns the current render configuration.
func (s *Server) Options() *ssr.Options {
	return s.options.Load()
}

// SetOptions swaps the render configuration. Responses already in
// progress keep the options they started with.
func (s *Server) SetOptions(opts *ssr.Options) {
	s.options.Store(opts)
}

func (s *Server) page(page PageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		err := s.call(page, tw, r)
		if err == nil {
			return
		}
		if tw.wrote {
			s.logger.Error("page failed after writing response",
				"path", r.URL.Path, "error", err)
			return
		}
		s.RespondError(w, r, err)
	}
}

func (s *Server) call(page PageFunc, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = InternalError(errinfo.Recovered(v))
		}
	}()
	return page(w, r)
}

// RespondError renders the error page for err and writes it to w.
func (s *Server) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status < 400 || status > 599 {
		s.logger.Warn("invalid error status, using 500",
			"error", errors.New("E140").WithDetail("status "+strconv.Itoa(status)))
		status = http.StatusInternalServerError
	}

	reqID := middleware.GetReqID(r.Context())
	req := ssr.RequestFromHTTP(r)
	req.Locals[LocalRequestID] = reqID
	if ip := clientIP(r, s.proxies); ip != nil {
		req.Locals[LocalClientIP] = ip.String()
	}

	var session ssr.Session
	if s.session != nil {
		session = s.session(r)
	}

	resp := s.responder.RespondWithError(r.Context(), ssr.ErrorInput{
		Request: req,
		Options: s.Options(),
		State:   &ssr.State{Prerender: &ssr.PrerenderState{}},
		Session: session,
		Status:  status,
		Error:   err,
		SSR:     r.URL.Query().Get("ssr") != "0",
	})
	switch {
	case resp == nil:
		s.logger.Error("error responder returned no response", "path", r.URL.Path, "status", status)
		resp = &ssr.Response{
			Status:   ssr.FallbackStatus,
			Body:     ssr.FallbackRedactedBody,
			Fallback: true,
		}
	case resp.Fallback:
		s.logger.Error("error page fell back to plain response",
			"path", r.URL.Path, "status", status)
	}

	// Headers left by the failed page do not describe the error page.
	h := w.Header()
	for k := range h {
		delete(h, k)
	}
	if reqID != "" {
		h.Set(HeaderRequestID, reqID)
	}
	WriteResponse(w, resp)
}

// WriteResponse writes resp to w. Headers in resp replace any values
// already set on w for the same key.
func WriteResponse(w http.ResponseWriter, resp *ssr.Response) {
	h := w.Header()
	for k, vs := range resp.Headers {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	}
}

// trackingWriter records whether a page started its response.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
