package server

import (
	"net/http"
	"testing"
	"testing/fstest"
)

func TestStatic(t *testing.T) {
	srv, rec := newTestServer(t)
	srv.Static("/public/", fstest.MapFS{
		"error.1a2b3c4d.css": {Data: []byte("body{}")},
		"logo.svg":           {Data: []byte("<svg/>")},
		"img/icon.png":       {Data: []byte("png")},
	})

	tests := []struct {
		target string
		status int
		cache  string
	}{
		{"/public/error.1a2b3c4d.css", 200, "public, max-age=31536000, immutable"},
		{"/public/logo.svg", 200, "public, max-age=3600, must-revalidate"},
		{"/public/img/icon.png", 200, "public, max-age=3600, must-revalidate"},
		{"/public/missing.css", 404, ""},
		{"/public/img", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := get(t, srv, tt.target)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Cache-Control"); got != tt.cache {
				t.Fatalf("Cache-Control = %q, want %q", got, tt.cache)
			}
		})
	}

	if rec.calls() != 2 {
		t.Fatalf("responder calls = %d, want 2 (one per missing file)", rec.calls())
	}
	if rec.last(t).Status != http.StatusNotFound {
		t.Fatalf("responder status = %d", rec.last(t).Status)
	}
}

func TestIsFingerprinted(t *testing.T) {
	tests := map[string]bool{
		"app.a1b2c3d4.css":      true,
		"dir/app.A1B2C3D4E5.js": true,
		"app.css":               false,
		"app.min.css":           false,
		"app.a1b2c3.css":        false,
		"jquery.3.7.1.min.js":   false,
		"client.deadbeefzz.js":  false,
	}
	for name, want := range tests {
		if got := isFingerprinted(name); got != want {
			t.Errorf("isFingerprinted(%q) = %v, want %v", name, got, want)
		}
	}
}
