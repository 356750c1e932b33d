package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/errpage/internal/config"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Run the demo application.

Routes:
  /               index
  /boom           returns an error (500 error page)
  /panic          panics (500 error page)
  /teapot         returns a 418
  /missing        any unknown path (404 error page)
  /broken-layout  the layout load fails too (plain 500 fallback)

Add ?ssr=0 to any URL to leave rendering to the client.

In development mode failures are pushed to the browser overlay.
The config file is watched and render flags reload without a restart.

Examples:
  errpage serve
  errpage serve --addr=:8080
  errpage serve -c errpage.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cmd, flags, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) error {
	logger, err := newLogger(flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printBanner(out)
	info(out, "mode:    %s", cfg.Mode)
	info(out, "address: http://%s", cfg.Addr)
	if cfg.OverlayEnabled() {
		info(out, "overlay: %s", cfg.Overlay.Path)
	}
	if cfg.Metrics.Enabled {
		info(out, "metrics: %s", cfg.Metrics.Path)
	}
	if cfg.Archive.Enabled {
		info(out, "archive: s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
	}

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(background(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := cfg.Path(); path != "" {
		go func() {
			err := config.Watch(ctx, path, a.reload, func(err error) {
				logger.Warn("config reload failed", "path", path, "error", err)
			})
			if err != nil {
				logger.Warn("config watch disabled", "path", path, "error", err)
			}
		}()
	}

	if err := a.server.Run(ctx, cfg.Addr); err != nil {
		return err
	}
	success(out, "Stopped")
	return nil
}

// background returns ctx or a fresh context when cobra did not set one.
func background(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
