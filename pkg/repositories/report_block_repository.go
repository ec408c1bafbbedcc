package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// ReportBlockRepository defines the interface for report block access.
type ReportBlockRepository interface {
	Create(ctx context.Context, block *models.ReportBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReportBlock, error)
	List(ctx context.Context) ([]*models.ReportBlock, error)
	Update(ctx context.Context, block *models.ReportBlock) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reportBlockRepository struct {
	db *database.DB
}

// NewReportBlockRepository creates a new report block repository.
func NewReportBlockRepository(db *database.DB) ReportBlockRepository {
	return &reportBlockRepository{db: db}
}

var _ ReportBlockRepository = (*reportBlockRepository)(nil)

const reportBlockColumns = `id, name, kind, database, table_name, filters, join_spec, sort_by, sort_desc, created_by, created_at, updated_at`

func (r *reportBlockRepository) Create(ctx context.Context, block *models.ReportBlock) error {
	if block.ID == uuid.Nil {
		block.ID = uuid.New()
	}
	now := time.Now()
	block.CreatedAt = now
	block.UpdatedAt = now

	query := `
		INSERT INTO rowgate_report_blocks
			(` + reportBlockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		block.ID, block.Name, block.Kind, block.Database, block.TableName,
		rawOrNil(block.Filters), rawOrNil(block.Join),
		block.SortBy, block.SortDesc, block.CreatedBy, block.CreatedAt, block.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report block: %w", err)
	}
	return nil
}

func (r *reportBlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportBlock, error) {
	query := `SELECT ` + reportBlockColumns + ` FROM rowgate_report_blocks WHERE id = $1`

	block, err := scanReportBlock(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: report block %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report block: %w", err)
	}
	return block, nil
}

func (r *reportBlockRepository) List(ctx context.Context) ([]*models.ReportBlock, error) {
	query := `SELECT ` + reportBlockColumns + ` FROM rowgate_report_blocks ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list report blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.ReportBlock
	for rows.Next() {
		block, err := scanReportBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report blocks: %w", err)
	}
	return blocks, nil
}

func (r *reportBlockRepository) Update(ctx context.Context, block *models.ReportBlock) error {
	block.UpdatedAt = time.Now()

	query := `
		UPDATE rowgate_report_blocks
		SET name = $1, kind = $2, database = $3, table_name = $4,
		    filters = $5, join_spec = $6, sort_by = $7, sort_desc = $8, updated_at = $9
		WHERE id = $10`

	result, err := r.db.Exec(ctx, query,
		block.Name, block.Kind, block.Database, block.TableName,
		rawOrNil(block.Filters), rawOrNil(block.Join),
		block.SortBy, block.SortDesc, block.UpdatedAt, block.ID)
	if err != nil {
		return fmt.Errorf("failed to update report block: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: report block %s", apperrors.ErrNotFound, block.ID)
	}
	return nil
}

func (r *reportBlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM rowgate_report_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report block: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: report block %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func scanReportBlock(row pgx.Row) (*models.ReportBlock, error) {
	var block models.ReportBlock
	var filters, join []byte
	err := row.Scan(&block.ID, &block.Name, &block.Kind, &block.Database, &block.TableName,
		&filters, &join, &block.SortBy, &block.SortDesc,
		&block.CreatedBy, &block.CreatedAt, &block.UpdatedAt)
	if err != nil {
		return nil, err
	}
	block.Filters = filters
	block.Join = join
	return &block, nil
}

// rawOrNil maps empty JSON payloads to SQL NULL.
func rawOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
