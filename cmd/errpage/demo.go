package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-dev/errpage/internal/overlay"
	"github.com/vango-dev/errpage/pkg/render"
	"github.com/vango-dev/errpage/pkg/server"
	"github.com/vango-dev/errpage/pkg/ssr"
)

//go:embed client.js
var clientJS string

// brokenLayoutPath makes the demo layout's load fail.
const brokenLayoutPath = "/broken-layout"

// demoManifest builds the demo root layout and root error page. A
// non-empty overlayPath injects the overlay client into the layout.
func demoManifest(overlayPath string) *ssr.Manifest {
	layout := &ssr.Node{
		ID: "layout",
		Module: &ssr.Module{
			Load: func(ctx context.Context, ev *ssr.LoadEvent) (ssr.LoadOutput, error) {
				if ev.URL != nil && ev.URL.Path == brokenLayoutPath {
					return ssr.LoadOutput{}, fmt.Errorf("layout data unavailable for %s", ev.URL.Path)
				}
				return ssr.LoadOutput{
					Props: map[string]any{"requestID": ev.Local(server.LocalRequestID)},
					Stuff: map[string]any{"site": "errpage demo"},
				}, nil
			},
			Component: func(w io.Writer, p ssr.ComponentProps) error {
				if _, err := fmt.Fprintf(w, `<header><a href="/">%s</a></header><main>`,
					render.EscapeHTML(p.Stuff.String("site"))); err != nil {
					return err
				}
				if p.Slot != nil {
					if err := p.Slot(w); err != nil {
						return err
					}
				}
				if id, _ := p.Props["requestID"].(string); id != "" {
					if _, err := fmt.Fprintf(w, `<footer>request %s</footer>`, render.EscapeHTML(id)); err != nil {
						return err
					}
				}
				if _, err := io.WriteString(w, "</main>"); err != nil {
					return err
				}
				if overlayPath != "" {
					_, err := io.WriteString(w, overlay.Script(overlayPath))
					return err
				}
				return nil
			},
		},
	}

	errorPage := &ssr.Node{
		ID: "error",
		Module: &ssr.Module{
			Load: func(ctx context.Context, ev *ssr.LoadEvent) (ssr.LoadOutput, error) {
				return ssr.LoadOutput{
					Stuff: map[string]any{"title": fmt.Sprintf("%d | %s", ev.Status, ev.Stuff.String("site"))},
				}, nil
			},
			Component: func(w io.Writer, p ssr.ComponentProps) error {
				msg := http.StatusText(p.Status)
				if p.Error != nil {
					msg = p.Error.Error()
				}
				_, err := fmt.Fprintf(w, `<section class="error"><h1>%d</h1><p>%s</p></section>`,
					p.Status, render.EscapeHTML(msg))
				return err
			},
		},
	}

	return &ssr.Manifest{Nodes: []*ssr.Node{layout, errorPage}}
}

// registerDemoRoutes adds the demo pages to srv. The bundled client script
// is served at scriptPath unless it is empty.
func registerDemoRoutes(srv *server.Server, scriptPath string) {
	srv.Handle("/", func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, err := io.WriteString(w, homePage)
		return err
	})
	srv.Handle("/boom", func(w http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("something broke while handling %s", r.URL.Path)
	})
	srv.Handle("/panic", func(w http.ResponseWriter, r *http.Request) error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	srv.Handle(brokenLayoutPath, func(w http.ResponseWriter, r *http.Request) error {
		return server.InternalError(fmt.Errorf("page failed, and so will the layout"))
	})
	srv.Handle("/teapot", func(w http.ResponseWriter, r *http.Request) error {
		return server.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	if scriptPath == "" {
		return
	}
	srv.Handle(scriptPath, func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		_, err := io.WriteString(w, clientJS)
		return err
	})
}

var homePage = strings.TrimSpace(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>errpage demo</title></head>
<body>
<h1>errpage demo</h1>
<ul>
<li><a href="/boom">/boom</a> returns an error</li>
<li><a href="/panic">/panic</a> panics</li>
<li><a href="/teapot">/teapot</a> returns a 418</li>
<li><a href="/missing">/missing</a> is not a route</li>
<li><a href="/boom?ssr=0">/boom?ssr=0</a> renders on the client</li>
<li><a href="/broken-layout">/broken-layout</a> breaks the layout and falls back</li>
</ul>
</body>
</html>
`)
