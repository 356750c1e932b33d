package server

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Static serves files from fsys under prefix. Missing files get the 404
// error page. Fingerprinted files ("app.a1b2c3d4.css") are cached as
// immutable; everything else revalidates hourly.
func (s *Server) Static(prefix string, fsys fs.FS) {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	h := func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		if strings.Contains(rel, "\\") || !fs.ValidPath(rel) || rel == "." {
			s.RespondError(w, r, NotFound("file not found: "+r.URL.Path))
			return
		}

		f, err := fsys.Open(rel)
		if err != nil {
			s.RespondError(w, r, NotFound("file not found: "+r.URL.Path))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			s.RespondError(w, r, NotFound("file not found: "+r.URL.Path))
			return
		}

		content, ok := f.(io.ReadSeeker)
		if !ok {
			data, err := io.ReadAll(f)
			if err != nil {
				s.RespondError(w, r, InternalError(err))
				return
			}
			content = bytes.NewReader(data)
		}

		if isFingerprinted(rel) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
		http.ServeContent(w, r, rel, info.ModTime(), content)
	}

	s.router.Get(prefix+"/*", h)
	s.router.Head(prefix+"/*", h)
}

// isFingerprinted reports whether the name carries a content hash of at
// least eight hex digits before its extension.
func isFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
