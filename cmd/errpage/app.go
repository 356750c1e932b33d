package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/errpage/internal/archive"
	"github.com/vango-dev/errpage/internal/config"
	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/internal/overlay"
	"github.com/vango-dev/errpage/pkg/assets"
	"github.com/vango-dev/errpage/pkg/loader"
	"github.com/vango-dev/errpage/pkg/middleware"
	"github.com/vango-dev/errpage/pkg/render"
	"github.com/vango-dev/errpage/pkg/server"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// app is the demo application assembled from a config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	manifest *ssr.Manifest

	// handler receives every fallback; it fans out to the log, the
	// overlay and the archive.
	handler   ssr.ErrorHandler
	responder ssr.ErrorResponder
	server    *server.Server

	hub      *overlay.Hub
	archive  *archive.Archive
	registry *prometheus.Registry
}

// newApp wires the demo. A nil s3 client is replaced by a real one when
// archiving is enabled.
func newApp(cfg *config.Config, logger *slog.Logger, s3 archive.PutObjectAPI) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	handlers := []ssr.ErrorHandler{ssr.LogErrorHandler(logger)}

	overlayPath := ""
	if cfg.OverlayEnabled() {
		a.hub = overlay.NewHub(logger)
		handlers = append(handlers, a.hub.Handler())
		overlayPath = cfg.Overlay.Path
	}

	if cfg.Archive.Enabled {
		if s3 == nil {
			client, err := archive.NewS3Client(context.Background(), cfg.Archive.Region, cfg.Archive.Endpoint)
			if err != nil {
				return nil, err
			}
			s3 = client
		}
		a.archive = archive.New(s3, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		handlers = append(handlers, a.archive.Handler())
	}

	a.handler = ssr.MultiErrorHandler(handlers...)
	a.manifest = demoManifest(overlayPath)

	var decorators []middleware.Decorator
	if cfg.Tracing.Enabled {
		decorators = append(decorators, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.Name),
		))
	}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		decorators = append(decorators, middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(a.registry),
		))
	}

	rendererCfg := render.RendererConfig{
		ClientScript: cfg.Render.ClientScript,
		Lang:         cfg.Render.Lang,
		StyleSheets:  cfg.Render.StyleSheets,
	}
	if cfg.Render.AssetManifest != "" {
		manifest, err := assets.LoadManifest(cfg.Render.AssetManifest)
		if err != nil {
			return nil, errors.New("E120").WithDetail("asset manifest").Wrap(err)
		}
		rendererCfg.Assets = assets.NewResolver(manifest, cfg.Render.AssetPrefix)
	} else if cfg.Render.AssetPrefix != "" {
		rendererCfg.Assets = assets.NewResolver(nil, cfg.Render.AssetPrefix)
	}
	renderer := render.NewRenderer(rendererCfg)
	base := ssr.NewResponder(loader.New(logger), renderer, logger)
	a.responder = middleware.Chain(decorators...)(base)

	srvCfg := server.Config{
		Responder: a.responder,
		Options:   cfg.Options(a.manifest, a.handler),
		Logger:    logger,
	}
	if a.hub != nil {
		srvCfg.Overlay = a.hub
		srvCfg.OverlayPath = cfg.Overlay.Path
	}
	if a.registry != nil {
		srvCfg.MetricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
		srvCfg.MetricsPath = cfg.Metrics.Path
	}
	a.server = server.New(srvCfg)
	registerDemoRoutes(a.server, clientScriptRoute(cfg, rendererCfg.Assets))
	if cfg.Render.AssetDir != "" {
		a.server.Static(cfg.Render.AssetPrefix, os.DirFS(cfg.Render.AssetDir))
	}

	return a, nil
}

// clientScriptRoute returns the path the rendered pages load the client
// script from, or "" when the script lives elsewhere: on another origin or
// under the static asset directory.
func clientScriptRoute(cfg *config.Config, resolver assets.Resolver) string {
	script := cfg.Render.ClientScript
	if script == "" {
		script = render.DefaultClientScript
	}
	if resolver != nil {
		script = resolver.Asset(script)
	}
	if !strings.HasPrefix(script, "/") || strings.HasPrefix(script, "//") {
		return ""
	}
	if cfg.Render.AssetDir != "" && strings.HasPrefix(script, cfg.Render.AssetPrefix) {
		return ""
	}
	return script
}

// reload applies a changed config. Only render flags take effect; the
// rest needs a restart.
func (a *app) reload(cfg *config.Config) {
	a.server.SetOptions(cfg.Options(a.manifest, a.handler))
	a.logger.Info("config reloaded",
		"hydrate", cfg.Render.Hydrate,
		"router", cfg.Render.Router,
		"prerender", cfg.Render.Prerender,
		"redact", cfg.RedactFallback())
}

// close flushes pending incident uploads and disconnects overlay clients.
func (a *app) close() {
	if a.archive != nil {
		a.archive.Wait()
	}
	if a.hub != nil {
		a.hub.Close()
	}
}
