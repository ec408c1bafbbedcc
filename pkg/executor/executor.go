// Package executor runs compiled statements against a source database and
// shapes the results for the HTTP surface.
package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/query"
)

// Querier is the subset of pgxpool.Pool the executor needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResultPage is one page of rows plus the result column order.
type ResultPage struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Count runs a compiled COUNT(*) statement.
func Count(ctx context.Context, db Querier, stmt query.Statement) (int, error) {
	var count int
	if err := db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %v", apperrors.ErrQueryFailed, err)
	}
	return count, nil
}

// FetchPage runs a compiled page SELECT and collects the rows as maps
// keyed by result column name.
func FetchPage(ctx context.Context, db Querier, stmt query.Statement) (*ResultPage, error) {
	rows, err := db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: page query: %v", apperrors.ErrQueryFailed, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: read row values: %v", apperrors.ErrQueryFailed, err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", apperrors.ErrQueryFailed, err)
	}

	return &ResultPage{Columns: columns, Rows: resultRows}, nil
}
