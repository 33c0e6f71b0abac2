// Package auth is the Identity Provider: it hashes and verifies passwords,
// issues and validates session tokens, and guards routes.
//
// SESSION FLOW:
//  1. POST /auth/login verifies email + password against the users table
//  2. The server issues a signed JWT carrying the session Identity
//     (user id, name, email, manager)
//  3. The token is stored in an HttpOnly "token" cookie (and returned in the
//     body for API clients using "Authorization: Bearer")
//  4. RequireAuth validates the token on every protected request and puts
//     the Identity into the request context
//
// The name and manager travel inside the token, so composing a notification
// needs no user lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "krankmeldung"

// DefaultSessionTTL is used when no session lifetime is configured.
const DefaultSessionTTL = 8 * time.Hour

// Identity is the authenticated user as seen by the rest of the application.
type Identity struct {
	UserID  string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager string `json:"manager"`
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given HMAC secret and
// session lifetime. The secret must be at least 16 characters.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

type claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Manager string `json:"manager,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a token for id that expires after the configured TTL.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. A negative
// duration produces an already expired token, which tests use.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: identity has no user id")
	}

	now := time.Now()
	c := claims{
		Name:    id.Name,
		Email:   id.Email,
		Manager: id.Manager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses tokenStr and returns the Identity it carries.
//
// Only HS256 is accepted: pinning the method stops "alg: none" and
// algorithm-confusion tokens.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
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

	return &Identity{
		UserID:  c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Manager: c.Manager,
	}, nil
}
