package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can collide with our key.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the cookie that carries the session token.
const CookieName = "token"

// RequireAuth rejects requests without a valid session with 401 and stores
// the session Identity in the request context otherwise.
//
// Usage with Chi:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(auth.RequireAuth(tokenService))
//	    r.Get("/sick-leaves", sickLeaveHandler.HandleList)
//	})
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Nicht autorisiert"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the session identity set by RequireAuth.
// ok is false when the request is not authenticated.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil && id.UserID != ""
}

// extractIdentity reads the token from the "Authorization: Bearer" header,
// falling back to the session cookie.
func extractIdentity(r *http.Request, tokens *TokenService) (*Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return tokens.Validate(strings.TrimSpace(token))
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}

	return tokens.Validate(cookie.Value)
}
