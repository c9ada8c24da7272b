package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoUser responds 200 with the caller's user id from the context.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	w.Write([]byte(id))
})

func bearer(t *testing.T, ts *TokenService, userID string, isAdmin bool) string {
	t.Helper()
	token, err := ts.Generate(userID, isAdmin)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	h := RequireAuth(ts)(echoUser)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
		wantBody    string
	}{
		{"missing header", "", http.StatusUnauthorized, "no token provided, access denied", ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "no token provided, access denied", ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "invalid token, access denied", ""},
		{"valid token", bearer(t, ts, "user-1", false), http.StatusOK, "", "user-1"},
		{"lowercase scheme", "bearer " + bearer(t, ts, "user-2", false)[len("Bearer "):], http.StatusOK, "", "user-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body["error"])
				assert.Equal(t, tt.wantMessage, body["message"])
			} else {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ts := newTestTokenService(t)
	h := RequireAdmin(ts)(echoUser)

	tests := []struct {
		name       string
		isAdmin    bool
		wantStatus int
	}{
		{"regular user", false, http.StatusForbidden},
		{"admin", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", bearer(t, ts, "someone", tt.isAdmin))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

// The self checks read a chi URL param, so these go through a real router.
func TestRequireSelfAndSelfOrAdmin(t *testing.T) {
	ts := newTestTokenService(t)

	r := chi.NewRouter()
	r.With(RequireSelf(ts, "id")).Get("/self/{id}", echoUser)
	r.With(RequireSelfOrAdmin(ts, "id")).Get("/either/{id}", echoUser)

	tests := []struct {
		name       string
		path       string
		callerID   string
		isAdmin    bool
		wantStatus int
	}{
		{"self on own id", "/self/alice", "alice", false, http.StatusOK},
		{"self on other id", "/self/alice", "bob", false, http.StatusForbidden},
		{"admin is not self", "/self/alice", "root", true, http.StatusForbidden},
		{"either on own id", "/either/alice", "alice", false, http.StatusOK},
		{"either as admin", "/either/alice", "root", true, http.StatusOK},
		{"either as stranger", "/either/alice", "bob", false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", bearer(t, ts, tt.callerID, tt.isAdmin))
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestClaimsFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)

	_, ok = UserIDFromContext(req.Context())
	assert.False(t, ok)
}
