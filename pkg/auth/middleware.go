package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/models"
)

// UserStore resolves an authenticated subject to a user record.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Middleware authenticates requests and injects the resolved user into
// the request context.
type Middleware struct {
	signingKey []byte
	verify     bool
	users      UserStore
	logger     *zap.Logger
}

// NewMiddleware creates an auth middleware. When verify is false the
// token signature is not checked; local development only.
func NewMiddleware(signingKey string, verify bool, users UserStore, logger *zap.Logger) *Middleware {
	return &Middleware{
		signingKey: []byte(signingKey),
		verify:     verify,
		users:      users,
		logger:     logger.Named("auth"),
	}
}

// RequireAuth validates the bearer token, resolves the user and requires
// the account to be active.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.parseToken(r)
		if err != nil {
			m.logger.Debug("Rejected request token", zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			m.logger.Warn("Token subject has no user record",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}
		if !user.IsActive {
			m.logger.Info("Rejected deactivated user",
				zap.String("user_id", userID.String()))
			m.forbidden(w, "Account is deactivated")
			return
		}

		next(w, r.WithContext(SetUser(r.Context(), user)))
	}
}

// RequireAdmin wraps RequireAuth and additionally requires the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())
		if user == nil || user.Role != models.RoleAdmin {
			m.forbidden(w, "Admin role required")
			return
		}
		next(w, r)
	})
}

func (m *Middleware) parseToken(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, fmt.Errorf("malformed Authorization header")
	}

	claims := &Claims{}
	if !m.verify {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
