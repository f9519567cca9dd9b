package middleware

import (
	"net/http"
	"strings"

	"github.com/cloo-solutions/buscador/internal/api"
	"github.com/cloo-solutions/buscador/internal/web"
)

// MaxBodyBytes caps uploads. A request that declares a larger body is
// rejected up front: JSON under /api/, plain text for the pages. Bodies
// without a declared length are cut off by http.MaxBytesReader and the
// handler sees a *http.MaxBytesError.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				msg := web.ErrorMessage(&http.MaxBytesError{Limit: limit})
				if strings.HasPrefix(r.URL.Path, "/api/") {
					api.Error(w, http.StatusRequestEntityTooLarge, msg)
				} else {
					http.Error(w, msg, http.StatusRequestEntityTooLarge)
				}
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
