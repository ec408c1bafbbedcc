// Package access decides whether a user may read a table. The gate runs
// before any query is compiled; every browse, export and report operation
// passes through it.
package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/repositories"
)

// Options tune one authorization check.
type Options struct {
	// BypassVisibility skips the visibility flag for non-restricted
	// roles. The report engine sets it so hidden tables still back
	// persisted blocks. Restricted users are never exempted from the
	// grant check.
	BypassVisibility bool
}

// Gate authorizes table reads.
type Gate interface {
	// Authorize returns nil when the user may read the table, and
	// ErrAccessDenied otherwise. The denial never says whether the table
	// exists, is hidden, or simply was not granted.
	Authorize(ctx context.Context, user *models.User, db, table string, opts Options) error
}

type gate struct {
	grants     repositories.GrantRepository
	visibility repositories.VisibilityRepository
	logger     *zap.Logger
}

// NewGate creates an access gate over the grant and visibility stores.
func NewGate(grants repositories.GrantRepository, visibility repositories.VisibilityRepository, logger *zap.Logger) Gate {
	return &gate{
		grants:     grants,
		visibility: visibility,
		logger:     logger.Named("access"),
	}
}

var _ Gate = (*gate)(nil)

func (g *gate) Authorize(ctx context.Context, user *models.User, db, table string, opts Options) error {
	if user == nil || !user.IsActive {
		return fmt.Errorf("%w: inactive user", apperrors.ErrAccessDenied)
	}

	switch user.Role {
	case models.RoleRestricted:
		// Explicit grant or nothing. A missing table and a missing grant
		// are indistinguishable to the caller.
		granted, err := g.grants.HasGrant(ctx, user.ID, db, table)
		if err != nil {
			return fmt.Errorf("check table grant: %w", err)
		}
		if !granted {
			g.logger.Info("Denied table access",
				zap.String("user_id", user.ID.String()),
				zap.String("role", user.Role),
				zap.String("database", db),
				zap.String("table", table))
			return fmt.Errorf("%w: table %s.%s", apperrors.ErrAccessDenied, db, table)
		}
		return nil

	case models.RoleMember, models.RoleAdmin:
		if opts.BypassVisibility || user.Role == models.RoleAdmin {
			return nil
		}
		visible, err := g.visibility.IsVisible(ctx, db, table)
		if err != nil {
			return fmt.Errorf("check table visibility: %w", err)
		}
		if !visible {
			g.logger.Info("Denied table access",
				zap.String("user_id", user.ID.String()),
				zap.String("role", user.Role),
				zap.String("database", db),
				zap.String("table", table))
			return fmt.Errorf("%w: table %s.%s", apperrors.ErrAccessDenied, db, table)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, user.Role)
	}
}
