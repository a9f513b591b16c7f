// Bearer-token extraction middleware. This gateway has no backend user
// directory to validate a key against (the teacher's version calls out
// to a /v1/users/me endpoint for that); what survives here is the part
// every downstream consumer actually needs — pulling the token out of
// the Authorization header and onto the request context so the rate
// limiter can key on it.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// APIKeyContextKey stores the bearer token in the request context.
const APIKeyContextKey contextKey = "api_key"

// AuthMiddleware extracts and requires a bearer token on every request.
type AuthMiddleware struct {
	headerKey string
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(headerKey string) *AuthMiddleware {
	if headerKey == "" {
		headerKey = "Authorization"
	}
	return &AuthMiddleware{headerKey: headerKey}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(am.headerKey)
		if authHeader == "" {
			http.Error(w, `{"error":{"type":"request_validation","message":"Authorization header required"}}`, http.StatusUnauthorized)
			return
		}

		apiKey := authHeader
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			apiKey = authHeader[7:]
		}
		if apiKey == "" {
			http.Error(w, `{"error":{"type":"request_validation","message":"API key cannot be empty"}}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKey extracts the bearer token from the request context.
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return v
	}
	return ""
}
