// Package auth issues and checks session tokens, hashes passwords, and
// generates the single-use secrets mailed in verification and reset links.
//
// SESSION FLOW OVERVIEW:
//  1. A verified user logs in with email + password
//  2. The server returns a signed JWT in the login response body
//  3. The client sends it back as "Authorization: Bearer <jwt>"
//  4. Middleware validates the JWT and puts the claims in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: the server doesn't store session data.
// Everything needed to authorize a request (user id, admin flag) is inside
// the signed token, and the signature ensures nobody can change it without
// the secret key.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"userID","isAdmin":false,"iss":"blog-backend"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "blog-backend"

// TokenService handles JWT creation and validation.
//
// ttl is the session lifetime. Zero means tokens carry no "exp" claim and
// stay valid until the secret is rotated.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and session
// lifetime. The secret should be at least 32 bytes of random data in
// production, e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl < 0 {
		return nil, errors.New("auth: session TTL must not be negative")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is what a valid session token tells us about the caller.
type Claims struct {
	UserID  string
	IsAdmin bool
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims for the standard
// fields (sub, iss, iat, exp) and adds the admin flag.
type claims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for userID using the
// configured TTL.
func (s *TokenService) Generate(userID string, isAdmin bool) (string, error) {
	return s.GenerateWithDuration(userID, isAdmin, s.ttl)
}

// GenerateWithDuration signs a token that expires after d. A zero d leaves
// out the "exp" claim entirely. Tests use a negative d to mint expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, isAdmin bool, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
		},
	}
	if d != 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(d))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, if it has an "exp" claim
//   - Issuer matches "blog-backend" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// When the service is configured with a TTL, tokens without "exp" are
// rejected too, so turning expiry on retires every never-expiring token.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
	}
	if s.ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Claims{UserID: c.Subject, IsAdmin: c.IsAdmin}, nil
}
