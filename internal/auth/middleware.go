// internal/auth/middleware.go
// Request authentication. Token issuance is handled by the identity service;
// this middleware only verifies access tokens and attaches the user identity
// to the request context.

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/wandermatch/wandermatch-backend/internal/common/utils"
)

type contextKey string

const (
	// ContextUserID is the context key for the authenticated user ID
	ContextUserID contextKey = "userID"
	// ContextUsername is the context key for the authenticated username
	ContextUsername contextKey = "username"
)

// Middleware provides authentication middleware
type Middleware struct {
	jwtSecret string
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate is the main middleware function that protects routes
// It verifies the JWT token and adds user information to the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Extract token from Authorization header
		token := m.extractToken(r)
		if token == "" {
			utils.ErrorResponse(w, "Missing or invalid authorization header", http.StatusUnauthorized)
			return
		}

		// 2. Validate token
		claims, err := utils.ValidateJWT(token, m.jwtSecret)
		if err != nil {
			utils.ErrorResponse(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// 3. Check if it's an access token (not refresh)
		if claims.Type != "access" {
			utils.ErrorResponse(w, "Invalid token type", http.StatusUnauthorized)
			return
		}

		// 4. Add user information to request context
		ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
		ctx = context.WithValue(ctx, ContextUsername, claims.Username)

		// 5. Pass to the next handler with the updated context
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the JWT token from the Authorization header.
// Supports "Bearer <token>" format, with a query-parameter fallback for
// websocket clients that cannot set headers.
func (m *Middleware) extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	return r.URL.Query().Get("token")
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ContextUserID).(int64)
	return userID, ok
}

// GetUsernameFromContext extracts username from request context
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ContextUsername).(string)
	return username, ok
}
