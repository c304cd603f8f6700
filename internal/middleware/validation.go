package middleware

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// RequireJSON rejects write requests whose body is not declared as JSON.
// Requests without a body pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, `unsupported media type; use "application/json"`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidULIDParam answers 404 with notFound when the named URL parameter is
// not a ULID, so malformed ids never reach storage. Must run inside a chi route.
func ValidULIDParam(name, notFound string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := ulid.ParseStrict(chi.URLParam(r, name)); err != nil {
				writeError(w, http.StatusNotFound, notFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
