package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
)

// ValidID rejects the request with 400 unless every named chi URL parameter
// is a well-formed xid. It must be attached with r.With(...) on the route
// itself, so the parameters are already parsed when it runs.
func ValidID(params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range params {
				if _, err := xid.FromString(chi.URLParam(r, p)); err != nil {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusBadRequest)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "validation_error",
						"message": "invalid id",
						"field":   p,
					})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
