package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
)

type contextKey string

const userContextKey contextKey = "user"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uuid.UUID
	Name   string
}

// AuthMiddleware validates bearer tokens on the protected API surface.
type AuthMiddleware struct {
	tokens *auth.JWT
}

// NewAuthMiddleware creates the bearer-token middleware.
func NewAuthMiddleware(tokens *auth.JWT) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth verifies the Authorization header and attaches the
// caller's identity to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, &Identity{UserID: userID, Name: claims.Name})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentityFromContext retrieves the authenticated caller, or nil.
func GetIdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(userContextKey).(*Identity)
	if !ok {
		return nil
	}
	return id
}

// WithIdentity attaches an identity to a context. Used by tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, userContextKey, id)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
