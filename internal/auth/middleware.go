package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string; a package-private
// type means only this package can create the key.
type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <jwt>" header, validates
// it, and stores the claims in the request context. A missing token and an
// invalid one are both 401, with different messages.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeDenied(w, http.StatusUnauthorized, "unauthorized", "no token provided, access denied")
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				writeDenied(w, http.StatusUnauthorized, "unauthorized", "invalid token, access denied")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin allows only authenticated admins through.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return requireClaims(tokens, func(_ *http.Request, c *Claims) bool {
		return c.IsAdmin
	}, "not allowed, only admin")
}

// RequireSelf allows the request only when the caller's id equals the chi
// URL parameter named param. Used for "edit my own profile" routes.
func RequireSelf(tokens *TokenService, param string) func(http.Handler) http.Handler {
	return requireClaims(tokens, func(r *http.Request, c *Claims) bool {
		return c.UserID == chi.URLParam(r, param)
	}, "not allowed, only user himself")
}

// RequireSelfOrAdmin is RequireSelf that also lets admins through.
func RequireSelfOrAdmin(tokens *TokenService, param string) func(http.Handler) http.Handler {
	return requireClaims(tokens, func(r *http.Request, c *Claims) bool {
		return c.IsAdmin || c.UserID == chi.URLParam(r, param)
	}, "not allowed, only user himself or admin")
}

// requireClaims runs RequireAuth, then answers 403 with message unless
// allowed returns true.
func requireClaims(tokens *TokenService, allowed func(*http.Request, *Claims) bool, message string) func(http.Handler) http.Handler {
	authenticate := RequireAuth(tokens)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if !allowed(r, claims) {
				writeDenied(w, http.StatusForbidden, "forbidden", message)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// WithClaims returns a copy of ctx carrying claims. Handler tests use it to
// fake an authenticated request without minting a JWT.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by RequireAuth.
//
// Returns (nil, false) if the request is anonymous.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil && c.UserID != ""
}

// UserIDFromContext is a shortcut for ClaimsFromContext(ctx).UserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// bearerToken extracts the token from "Authorization: Bearer <jwt>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeDenied writes the same {"error","message"} body the handlers use.
// The handler package imports auth, so it can't be reused from here.
func writeDenied(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": message,
	})
}
