package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// FilterDefinitionRepository defines the interface for stored filter access.
type FilterDefinitionRepository interface {
	Create(ctx context.Context, def *models.FilterDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FilterDefinition, error)
	ListForTable(ctx context.Context, db, table string) ([]*models.FilterDefinition, error)
	Update(ctx context.Context, def *models.FilterDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type filterDefinitionRepository struct {
	db *database.DB
}

// NewFilterDefinitionRepository creates a new filter definition repository.
func NewFilterDefinitionRepository(db *database.DB) FilterDefinitionRepository {
	return &filterDefinitionRepository{db: db}
}

var _ FilterDefinitionRepository = (*filterDefinitionRepository)(nil)

func (r *filterDefinitionRepository) Create(ctx context.Context, def *models.FilterDefinition) error {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now

	value, err := json.Marshal(def.Value)
	if err != nil {
		return fmt.Errorf("failed to encode filter value: %w", err)
	}

	query := `
		INSERT INTO rowgate_filter_definitions
			(id, database, table_name, name, column_name, operator, value, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		def.ID, def.Database, def.TableName, def.Name,
		def.Column, def.Operator, value, def.CreatedBy, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create filter definition: %w", err)
	}
	return nil
}

func (r *filterDefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FilterDefinition, error) {
	query := `
		SELECT id, database, table_name, name, column_name, operator, value, created_by, created_at, updated_at
		FROM rowgate_filter_definitions
		WHERE id = $1`

	def, err := scanFilterDefinition(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: filter definition %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter definition: %w", err)
	}
	return def, nil
}

func (r *filterDefinitionRepository) ListForTable(ctx context.Context, db, table string) ([]*models.FilterDefinition, error) {
	query := `
		SELECT id, database, table_name, name, column_name, operator, value, created_by, created_at, updated_at
		FROM rowgate_filter_definitions
		WHERE database = $1 AND table_name = $2
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, db, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list filter definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.FilterDefinition
	for rows.Next() {
		def, err := scanFilterDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate filter definitions: %w", err)
	}
	return defs, nil
}

func (r *filterDefinitionRepository) Update(ctx context.Context, def *models.FilterDefinition) error {
	def.UpdatedAt = time.Now()

	value, err := json.Marshal(def.Value)
	if err != nil {
		return fmt.Errorf("failed to encode filter value: %w", err)
	}

	query := `
		UPDATE rowgate_filter_definitions
		SET name = $1, column_name = $2, operator = $3, value = $4, updated_at = $5
		WHERE id = $6`

	result, err := r.db.Exec(ctx, query,
		def.Name, def.Column, def.Operator, value, def.UpdatedAt, def.ID)
	if err != nil {
		return fmt.Errorf("failed to update filter definition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: filter definition %s", apperrors.ErrNotFound, def.ID)
	}
	return nil
}

func (r *filterDefinitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM rowgate_filter_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete filter definition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: filter definition %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func scanFilterDefinition(row pgx.Row) (*models.FilterDefinition, error) {
	var def models.FilterDefinition
	var value []byte
	err := row.Scan(&def.ID, &def.Database, &def.TableName, &def.Name,
		&def.Column, &def.Operator, &value, &def.CreatedBy, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(value) > 0 {
		if err := json.Unmarshal(value, &def.Value); err != nil {
			return nil, fmt.Errorf("decode filter value: %w", err)
		}
	}
	return &def, nil
}
