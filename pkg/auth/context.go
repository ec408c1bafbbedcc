package auth

import (
	"context"
	"fmt"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userKey is the context key for the authenticated user.
	userKey contextKey = "user"
)

// SetUser stores the authenticated user in the context.
func SetUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the authenticated user from the context.
// Returns nil and false if not present.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// RequireUser retrieves the authenticated user or errors.
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUser(ctx)
	if !ok || user == nil {
		return nil, fmt.Errorf("%w: no authenticated user in context", apperrors.ErrAccessDenied)
	}
	return user, nil
}
