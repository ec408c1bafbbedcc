package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// GrantRepository defines the interface for per-table grant data access.
type GrantRepository interface {
	Grant(ctx context.Context, userID uuid.UUID, db, table string) error
	Revoke(ctx context.Context, userID uuid.UUID, db, table string) error
	// HasGrant reports whether an explicit grant row exists for the user
	// and table. No grant means deny for restricted users; it never falls
	// back to visibility.
	HasGrant(ctx context.Context, userID uuid.UUID, db, table string) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.TableGrant, error)
}

type grantRepository struct {
	db *database.DB
}

// NewGrantRepository creates a new grant repository.
func NewGrantRepository(db *database.DB) GrantRepository {
	return &grantRepository{db: db}
}

var _ GrantRepository = (*grantRepository)(nil)

func (r *grantRepository) Grant(ctx context.Context, userID uuid.UUID, db, table string) error {
	query := `
		INSERT INTO rowgate_table_grants (user_id, database, table_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, database, table_name) DO NOTHING`

	_, err := r.db.Exec(ctx, query, userID, db, table)
	if err != nil {
		return fmt.Errorf("failed to grant table access: %w", err)
	}
	return nil
}

func (r *grantRepository) Revoke(ctx context.Context, userID uuid.UUID, db, table string) error {
	query := `
		DELETE FROM rowgate_table_grants
		WHERE user_id = $1 AND database = $2 AND table_name = $3`

	result, err := r.db.Exec(ctx, query, userID, db, table)
	if err != nil {
		return fmt.Errorf("failed to revoke table access: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: grant", apperrors.ErrNotFound)
	}
	return nil
}

func (r *grantRepository) HasGrant(ctx context.Context, userID uuid.UUID, db, table string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rowgate_table_grants
			WHERE user_id = $1 AND database = $2 AND table_name = $3
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, db, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table grant: %w", err)
	}
	return exists, nil
}

func (r *grantRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.TableGrant, error) {
	query := `
		SELECT user_id, database, table_name, created_at
		FROM rowgate_table_grants
		WHERE user_id = $1
		ORDER BY database, table_name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.TableGrant
	for rows.Next() {
		var g models.TableGrant
		if err := rows.Scan(&g.UserID, &g.Database, &g.TableName, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grants: %w", err)
	}
	return grants, nil
}
