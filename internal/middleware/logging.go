// Package middleware holds the HTTP middleware shared by every route group:
// request logging, per-client rate limiting on the auth routes, and path id
// checks.
//
// All of them have the standard shape and plug into chi's Use/With:
//
//	func(next http.Handler) http.Handler
//
// Auth guards (RequireAuth, RequireAdmin, ...) live in internal/auth next to
// the token service they depend on.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request once the handler has returned.
//
// The line carries the request id set by chi's RequestID middleware, so it
// must run after RequestID (and after RealIP for a meaningful "remote").
// 5xx responses are logged at error level.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// nothing was written; net/http answers 200
				status = http.StatusOK
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", loggedPath(r)),
				slog.String("remote", r.RemoteAddr),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}

// loggedPath is the matched route pattern, e.g.
// "/api/auth/{userId}/verify/{token}". Verification and reset links carry
// their secret in the path, so the raw URL is never logged. A request that
// matched no route (404, or 405 on a known path) is logged as "unmatched".
func loggedPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedPath
}

const unmatchedPath = "unmatched"
