package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService creates a TokenService with a fixed secret and no
// expiry, matching the default configuration.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_NegativeTTL(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", -time.Minute)
	if err == nil {
		t.Fatal("NewTokenService() should reject a negative TTL")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	tests := []struct {
		name    string
		userID  string
		isAdmin bool
	}{
		{"regular user", "user-abc", false},
		{"admin", "admin-xyz", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ts.Generate(tt.userID, tt.isAdmin)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			got, err := ts.Validate(token)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got.UserID != tt.userID || got.IsAdmin != tt.isAdmin {
				t.Errorf("Validate() = %+v, want {%s %v}", got, tt.userID, tt.isAdmin)
			}
		})
	}
}

// With no TTL configured, the token has no "exp" claim.
func TestGenerate_NoExpiryByDefault(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims{})
	if err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if parsed.Claims.(*claims).ExpiresAt != nil {
		t.Error("token has an exp claim, want none when TTL is zero")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", false, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should return an error for an expired token")
	}
}

// Once a TTL is configured, tokens issued without "exp" are no longer accepted.
func TestValidate_TTLRequiresExpiry(t *testing.T) {
	secret := "test-secret-at-least-16-chars!!"
	open, _ := NewTokenService(secret, 0)
	strict, _ := NewTokenService(secret, time.Hour)

	forever, err := open.Generate("user-123", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := strict.Validate(forever); err == nil {
		t.Fatal("Validate() should reject a token without exp when a TTL is set")
	}

	bounded, err := strict.Generate("user-123", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := strict.Validate(bounded); err != nil {
		t.Fatalf("Validate() on fresh token error = %v", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate("user-123", false)
	tampered := token[:len(token)-3] + "xxx"

	if _, err := ts.Validate(tampered); err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", 0)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", 0)

	token, _ := ts1.Generate("user-123", false)

	if _, err := ts2.Validate(token); err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_WrongIssuer(t *testing.T) {
	secret := "test-secret-at-least-16-chars!!"
	ts, _ := NewTokenService(secret, 0)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-123",
		Issuer:  "someone-else",
	})
	signed, err := foreign.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := ts.Validate(signed); err == nil {
		t.Fatal("Validate() should reject tokens from another issuer")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "not.a.jwt.token"} {
		if _, err := ts.Validate(input); err == nil {
			t.Errorf("Validate(%q) should return an error", input)
		}
	}
}
