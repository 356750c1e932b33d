package server

import (
	"net/http"

	"github.com/vango-dev/errpage/pkg/routepath"
)

// canonicalPaths redirects non-canonical paths to their canonical form and
// answers malformed ones with a 400 error page.
func (s *Server) canonicalPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		canonical, changed, err := routepath.Canonicalize(r.URL.EscapedPath())
		if err != nil {
			s.RespondError(w, r, &HTTPError{Status: http.StatusBadRequest, Message: "malformed path", Err: err})
			return
		}
		if !changed {
			next.ServeHTTP(w, r)
			return
		}

		target := canonical
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}
