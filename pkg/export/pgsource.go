package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/query"
)

// TxBeginner is the subset of pgxpool.Pool the source needs.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// pgSource streams a compiled export statement from PostgreSQL. The count
// and the row stream run inside one repeatable-read transaction so the
// pre-flight count cannot be invalidated by concurrent writes before the
// stream starts.
type pgSource struct {
	db        TxBeginner
	countStmt query.Statement
	selStmt   query.Statement

	tx pgx.Tx
}

// NewPgSource creates a RowSource over compiled count and export
// statements. Close must be called when the export is done.
func NewPgSource(db TxBeginner, countStmt, selStmt query.Statement) *pgSource {
	return &pgSource{db: db, countStmt: countStmt, selStmt: selStmt}
}

var _ RowSource = (*pgSource)(nil)

func (s *pgSource) begin(ctx context.Context) (pgx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: begin export transaction: %v", apperrors.ErrQueryFailed, err)
	}
	s.tx = tx
	return tx, nil
}

func (s *pgSource) CountRows(ctx context.Context) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.QueryRow(ctx, s.countStmt.SQL, s.countStmt.Args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: export count: %v", apperrors.ErrQueryFailed, err)
	}
	return count, nil
}

func (s *pgSource) StreamRows(ctx context.Context, header func(columns []string) error, row func(values []any) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx, s.selStmt.SQL, s.selStmt.Args...)
	if err != nil {
		return fmt.Errorf("%w: export query: %v", apperrors.ErrQueryFailed, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}
	if err := header(columns); err != nil {
		return err
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("%w: read export row: %v", apperrors.ErrQueryFailed, err)
		}
		if err := row(values); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate export rows: %v", apperrors.ErrQueryFailed, err)
	}
	return nil
}

// Close ends the export transaction. The transaction is read-only, so a
// rollback is always the right way to end it.
func (s *pgSource) Close(ctx context.Context) {
	if s.tx != nil {
		_ = s.tx.Rollback(ctx)
		s.tx = nil
	}
}
