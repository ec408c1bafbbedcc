package repositories

import (
	"context"
	"fmt"

	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// VisibilityRepository defines the interface for table visibility flags.
type VisibilityRepository interface {
	Set(ctx context.Context, db, table string, visible bool) error
	// IsVisible reports whether the table should appear in the default
	// browse path. Tables with no row default to visible.
	IsVisible(ctx context.Context, db, table string) (bool, error)
	List(ctx context.Context, db string) ([]*models.TableVisibility, error)
}

type visibilityRepository struct {
	db *database.DB
}

// NewVisibilityRepository creates a new visibility repository.
func NewVisibilityRepository(db *database.DB) VisibilityRepository {
	return &visibilityRepository{db: db}
}

var _ VisibilityRepository = (*visibilityRepository)(nil)

func (r *visibilityRepository) Set(ctx context.Context, db, table string, visible bool) error {
	query := `
		INSERT INTO rowgate_table_visibility (database, table_name, visible, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (database, table_name) DO UPDATE
		SET visible = EXCLUDED.visible, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query, db, table, visible)
	if err != nil {
		return fmt.Errorf("failed to set table visibility: %w", err)
	}
	return nil
}

func (r *visibilityRepository) IsVisible(ctx context.Context, db, table string) (bool, error) {
	query := `
		SELECT COALESCE(
			(SELECT visible FROM rowgate_table_visibility
			 WHERE database = $1 AND table_name = $2),
			true)`

	var visible bool
	if err := r.db.QueryRow(ctx, query, db, table).Scan(&visible); err != nil {
		return false, fmt.Errorf("failed to check table visibility: %w", err)
	}
	return visible, nil
}

func (r *visibilityRepository) List(ctx context.Context, db string) ([]*models.TableVisibility, error) {
	query := `
		SELECT database, table_name, visible, updated_at
		FROM rowgate_table_visibility
		WHERE database = $1
		ORDER BY table_name`

	rows, err := r.db.Query(ctx, query, db)
	if err != nil {
		return nil, fmt.Errorf("failed to list table visibility: %w", err)
	}
	defer rows.Close()

	var entries []*models.TableVisibility
	for rows.Next() {
		var v models.TableVisibility
		if err := rows.Scan(&v.Database, &v.TableName, &v.Visible, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table visibility: %w", err)
		}
		entries = append(entries, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table visibility: %w", err)
	}
	return entries, nil
}
