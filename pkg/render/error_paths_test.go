package render

import (
	"errors"
	"io"
	"testing"
)

var errTestWrite = errors.New("test write error")

type countingWriter struct {
	Writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.Writes++
	return len(p), nil
}

type failingWriter struct {
	FailAt int
	Writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.Writes++
	if w.Writes == w.FailAt {
		return 0, errTestWrite
	}
	return len(p), nil
}

func TestRenderPageWriteErrorPaths(t *testing.T) {
	renderer := NewRenderer(RendererConfig{})
	page := PageData{
		Title:        "404 Not Found",
		Meta:         []MetaTag{{Name: "description", Content: "missing"}},
		StyleSheets:  []string{"/app.css"},
		Body:         func(w io.Writer) error { _, err := w.Write([]byte("<h1>x</h1>")); return err },
		Payload:      map[string]any{"status": 404},
		ClientScript: "/client.js",
	}

	cw := &countingWriter{}
	if err := renderer.RenderPage(cw, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i <= cw.Writes; i++ {
		fw := &failingWriter{FailAt: i}
		if err := renderer.RenderPage(fw, page); !errors.Is(err, errTestWrite) {
			t.Fatalf("failAt=%d: err=%v, want %v", i, err, errTestWrite)
		}
	}
}

func TestRenderMetaTagWriteError(t *testing.T) {
	renderer := NewRenderer(RendererConfig{})
	if err := renderer.renderMetaTag(&failingWriter{FailAt: 1}, MetaTag{Name: "a", Content: "b"}); !errors.Is(err, errTestWrite) {
		t.Fatalf("err=%v, want %v", err, errTestWrite)
	}
}

func TestRenderPagePayloadEncodeError(t *testing.T) {
	renderer := NewRenderer(RendererConfig{})
	err := renderer.RenderPage(io.Discard, PageData{Payload: map[string]any{"fn": func() {}}})
	if err == nil {
		t.Fatal("expected payload encoding error")
	}
}
