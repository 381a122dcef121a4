// Package middleware provides the HTTP middleware of the reference backend.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/pkg/logger"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// AudienceRefresh tags refresh tokens. They share the access-token secret
// but must never pass as bearer credentials.
const AudienceRefresh = "refresh"

// Claims are the JWT claims minted by the auth endpoints. The subject is
// the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer tokens and places the caller's identity
// in the request context.
type AuthMiddleware struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
}

func NewAuthMiddleware(secret []byte, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{secret: secret, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeAuthError(w, "invalid Authorization header format")
			return
		}

		claims, err := m.validateToken(parts[1])
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			writeAuthError(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		if claims.Role != "" {
			ctx = context.WithValue(ctx, roleKey, claims.Role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	for _, aud := range claims.Audience {
		if aud == AudienceRefresh {
			return nil, jwt.ErrTokenInvalidAudience
		}
	}
	return claims, nil
}

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// GetUserRole extracts the authenticated role from the context.
func GetUserRole(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// IsAdmin reports whether the context carries an admin identity.
func IsAdmin(ctx context.Context) bool {
	return GetUserRole(ctx) == user.RoleAdmin
}

// RequireAdmin rejects requests whose identity is not an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
