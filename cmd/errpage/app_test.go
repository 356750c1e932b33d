package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/errpage/internal/archive"
	"github.com/vango-dev/errpage/internal/config"
	"github.com/vango-dev/errpage/pkg/assets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func mustApp(t *testing.T, cfg *config.Config, client archive.PutObjectAPI) *app {
	t.Helper()
	a, err := newApp(cfg, testLogger(), client)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestDemoRoutes(t *testing.T) {
	a := mustApp(t, config.New(), nil)
	defer a.close()

	tests := []struct {
		target   string
		status   int
		contains []string
	}{
		{"/", 200, []string{"errpage demo", "/broken-layout"}},
		{"/boom", 500, []string{"<h1>500</h1>", "something broke while handling /boom", "<title>500 | errpage demo</title>", "/_errpage/overlay"}},
		{"/panic", 500, []string{"<h1>500</h1>", "nil map"}},
		{"/teapot", 418, []string{"<h1>418</h1>", "short and stout"}},
		{"/missing", 404, []string{"<h1>404</h1>", "page not found: /missing"}},
		{"/_errpage/client.js", 200, []string{"JSON.parse"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(t, a.server, tt.target)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d\n%s", w.Code, tt.status, w.Body.String())
			}
			for _, want := range tt.contains {
				if !strings.Contains(w.Body.String(), want) {
					t.Errorf("body missing %q:\n%s", want, w.Body.String())
				}
			}
		})
	}
}

func TestDemoClientRendering(t *testing.T) {
	a := mustApp(t, config.New(), nil)
	defer a.close()

	body := serve(t, a.server, "/boom?ssr=0").Body.String()
	if strings.Contains(body, "<h1>") {
		t.Fatalf("server rendered the page with ssr=0:\n%s", body)
	}
	if !strings.Contains(body, `id="__errpage"`) || !strings.Contains(body, "/_errpage/client.js") {
		t.Fatalf("payload or client script missing:\n%s", body)
	}
}

func TestBrokenLayoutFallsBack(t *testing.T) {
	a := mustApp(t, config.New(), nil)
	defer a.close()

	w := serve(t, a.server, "/broken-layout")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "Error: ") || !strings.Contains(body, "layout data unavailable") {
		t.Fatalf("fallback body = %q", body)
	}
	if strings.Contains(body, "<html") {
		t.Fatal("fallback must not be HTML")
	}
}

func TestProductionRedactsFallback(t *testing.T) {
	cfg := config.New()
	cfg.Mode = config.ModeProduction

	a := mustApp(t, cfg, nil)
	defer a.close()

	if a.hub != nil {
		t.Fatal("overlay must be off in production")
	}
	if got := serve(t, a.server, "/broken-layout").Body.String(); got != "Internal Server Error" {
		t.Fatalf("body = %q", got)
	}
	if got := serve(t, a.server, "/boom").Body.String(); strings.Contains(got, "/_errpage/overlay") {
		t.Fatal("overlay script injected in production")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := mustApp(t, config.New(), nil)
	defer a.close()

	serve(t, a.server, "/boom")
	serve(t, a.server, "/broken-layout")

	body := serve(t, a.server, "/metrics").Body.String()
	for _, want := range []string{
		`errpage_responses_total{outcome="rendered",status="500"} 1`,
		`errpage_responses_total{outcome="fallback",status="500"} 1`,
		"errpage_fallbacks_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestArchiveUploadsFallbacks(t *testing.T) {
	cfg := config.New()
	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = "incidents"

	client := &fakeS3{}
	a := mustApp(t, cfg, client)

	serve(t, a.server, "/boom")
	serve(t, a.server, "/broken-layout")
	a.close()

	if len(client.keys) != 1 {
		t.Fatalf("uploads = %v, want exactly one for the fallback", client.keys)
	}
	if !strings.HasPrefix(client.keys[0], "errpage/") || !strings.HasSuffix(client.keys[0], ".json") {
		t.Fatalf("key = %q", client.keys[0])
	}
}

func TestReloadSwapsOptions(t *testing.T) {
	a := mustApp(t, config.New(), nil)
	defer a.close()

	if got := serve(t, a.server, "/broken-layout").Body.String(); got == "Internal Server Error" {
		t.Fatal("development should show the stack")
	}

	next := config.New()
	next.Fallback.Redact = true
	a.reload(next)

	if got := serve(t, a.server, "/broken-layout").Body.String(); got != "Internal Server Error" {
		t.Fatalf("body after reload = %q", got)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("errpage %s: %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestRenderCommand(t *testing.T) {
	out := execute(t, "render", "--status", "404", "--message", "no such order", "-i")

	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("missing status line:\n%s", out)
	}
	for _, want := range []string{"Content-Type: text/html; charset=utf-8", "<h1>404</h1>", "no such order"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "/_errpage/overlay") {
		t.Error("render output should not include the overlay")
	}
}

func TestRenderCommandFallback(t *testing.T) {
	out := execute(t, "render", "--path", "/broken-layout")
	if !strings.HasPrefix(out, "Error: ") {
		t.Fatalf("expected fallback stack, got:\n%s", out)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("ERRPAGE_MODE", "production")

	if out := execute(t, "config"); !strings.Contains(out, `"mode": "production"`) {
		t.Errorf("json output:\n%s", out)
	}
	if out := execute(t, "config", "--format", "yaml"); !strings.Contains(out, "mode: production") {
		t.Errorf("yaml output:\n%s", out)
	}
	if out := execute(t, "config", "--format", "toml"); !strings.Contains(out, "mode = ") || !strings.Contains(out, "production") {
		t.Errorf("toml output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	if out := execute(t, "version", "--short"); strings.TrimSpace(out) != version {
		t.Fatalf("version = %q", out)
	}
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	if _, err := newLogger(&globalFlags{logLevel: "info", logFormat: "xml"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown log format")
	}
	if _, err := newLogger(&globalFlags{logLevel: "loud", logFormat: "text"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestAssetManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifestPath, []byte(`{"error.css": "error.abc123.css"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.New()
	cfg.Render.StyleSheets = []string{"error.css"}
	cfg.Render.AssetManifest = manifestPath
	cfg.Render.AssetPrefix = "/public/"
	a := mustApp(t, cfg, nil)
	defer a.close()

	body := serve(t, a.server, "/boom").Body.String()
	if !strings.Contains(body, `href="/public/error.abc123.css"`) {
		t.Fatalf("fingerprinted stylesheet missing:\n%s", body)
	}
	if !strings.Contains(body, `src="/_errpage/client.js"`) {
		t.Fatalf("absolute client script should not be prefixed:\n%s", body)
	}

	if err := os.WriteFile(filepath.Join(dir, "error.abc123.css"), []byte("h1{}"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Render.AssetDir = dir
	a = mustApp(t, cfg, nil)
	defer a.close()
	if w := serve(t, a.server, "/public/error.abc123.css"); w.Code != http.StatusOK || w.Body.String() != "h1{}" {
		t.Fatalf("asset dir not served: %d %q", w.Code, w.Body.String())
	}

	cfg.Render.AssetManifest = filepath.Join(dir, "missing.json")
	if _, err := newApp(cfg, testLogger(), nil); err == nil {
		t.Fatal("expected error for missing asset manifest")
	}
}

func TestCustomClientScriptPath(t *testing.T) {
	cfg := config.New()
	cfg.Render.ClientScript = "/static/errpage-client.js"
	a := mustApp(t, cfg, nil)
	defer a.close()

	body := serve(t, a.server, "/boom?ssr=0").Body.String()
	if !strings.Contains(body, `src="/static/errpage-client.js"`) {
		t.Fatalf("page does not reference the configured script:\n%s", body)
	}
	w := serve(t, a.server, "/static/errpage-client.js")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "JSON.parse") {
		t.Fatalf("configured script not served: %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/javascript; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestClientScriptRoute(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		assetDir string
		resolver assets.Resolver
		want     string
	}{
		{name: "default", want: "/_errpage/client.js"},
		{name: "custom absolute", script: "/js/app.js", want: "/js/app.js"},
		{name: "other origin", script: "https://cdn.example.com/client.js", want: ""},
		{name: "protocol relative", script: "//cdn.example.com/client.js", want: ""},
		{
			name:     "resolved through manifest",
			script:   "client.js",
			resolver: assets.NewResolver(assets.NewManifest(map[string]string{"client.js": "client.123.js"}), "/public/"),
			want:     "/public/client.123.js",
		},
		{
			name:     "served from asset dir",
			script:   "client.js",
			assetDir: "dist",
			resolver: assets.NewResolver(nil, "/public/"),
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Render.ClientScript = tt.script
			cfg.Render.AssetDir = tt.assetDir
			cfg.Render.AssetPrefix = "/public/"
			if got := clientScriptRoute(cfg, tt.resolver); got != tt.want {
				t.Fatalf("clientScriptRoute() = %q, want %q", got, tt.want)
			}
		})
	}
}
