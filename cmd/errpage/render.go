package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/vango-dev/errpage/pkg/ssr"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var (
		status  int
		message string
		path    string
		noSSR   bool
		headers bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the demo error page to stdout",
		Long: `Render the demo error page for a status and message without starting
a server.

Examples:
  errpage render --status 404 --message "no such order"
  errpage render --path /broken-layout
  errpage render --no-ssr --include-headers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			u, err := url.Parse(path)
			if err != nil {
				return fmt.Errorf("invalid --path: %w", err)
			}

			// The overlay has no browser to talk to here.
			cfg.Overlay.Enabled = false
			a, err := newApp(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.close()

			resp := a.responder.RespondWithError(background(cmd.Context()), ssr.ErrorInput{
				Request: &ssr.Request{
					Method: http.MethodGet,
					URL:    u,
					Header: http.Header{},
					Locals: map[string]any{},
				},
				Options: a.server.Options(),
				State:   &ssr.State{Prerender: &ssr.PrerenderState{}},
				Status:  status,
				Error:   errors.New(message),
				SSR:     !noSSR,
			})
			return writeRendered(cmd.OutOrStdout(), resp, headers)
		},
	}

	cmd.Flags().IntVar(&status, "status", http.StatusInternalServerError, "HTTP status of the error")
	cmd.Flags().StringVarP(&message, "message", "m", "Something went wrong", "Error message")
	cmd.Flags().StringVar(&path, "path", "/", "Request path")
	cmd.Flags().BoolVar(&noSSR, "no-ssr", false, "Leave rendering to the client")
	cmd.Flags().BoolVarP(&headers, "include-headers", "i", false, "Print the status line and headers")

	return cmd
}

func writeRendered(w io.Writer, resp *ssr.Response, headers bool) error {
	if headers {
		if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", resp.Status, http.StatusText(resp.Status)); err != nil {
			return err
		}
		if err := resp.Headers.Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, resp.Body)
	return err
}
