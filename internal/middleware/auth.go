package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/service"
)

type contextKey string

const UserKey contextKey = "user"

type AuthMiddleware struct {
	auth *service.AuthService
	log  *logger.Logger
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
		log:  logger.New("auth-middleware"),
	}
}

// RequireAuth validates the bearer token against the signature and the
// server-side session, then puts the account on the request context.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		token := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}

		user, err := m.auth.Authorize(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin layers an admin check on top of RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || !user.Admin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}
