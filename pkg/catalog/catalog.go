// Package catalog inspects live PostgreSQL table metadata. Browse and
// export requests validate every table and column reference against this
// metadata before any statement text is built.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// DefaultSchema is assumed when a request omits the schema.
const DefaultSchema = "public"

// Table describes one user table.
type Table struct {
	Schema        string `json:"schema"`
	Name          string `json:"name"`
	EstimatedRows int64  `json:"estimated_rows"`
}

// Column describes one column of a table.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
	IsPrimary  bool   `json:"is_primary"`
	Position   int    `json:"position"`
}

// Inspector reads table metadata from a source database.
type Inspector interface {
	// Tables lists all user tables, excluding system schemas.
	Tables(ctx context.Context) ([]Table, error)
	// Columns returns the columns of one table in ordinal order, or
	// ErrNotFound when the table does not exist.
	Columns(ctx context.Context, schema, table string) ([]Column, error)
}

// ColumnNames extracts the name list from column metadata.
func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key column names in ordinal order.
func PrimaryKey(columns []Column) []string {
	var pk []string
	for _, c := range columns {
		if c.IsPrimary {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// Querier is the subset of pgxpool.Pool the inspector needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgInspector struct {
	db Querier
}

// NewInspector creates an Inspector over a PostgreSQL connection pool.
func NewInspector(db Querier) Inspector {
	return &pgInspector{db: db}
}

var _ Inspector = (*pgInspector)(nil)

func (i *pgInspector) Tables(ctx context.Context) ([]Table, error) {
	const query = `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(c.reltuples::bigint, 0) AS row_count
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := i.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.EstimatedRows); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Columns validates the identifiers before querying so a hostile name can
// never reach the catalog query, even as a bound parameter.
func (i *pgInspector) Columns(ctx context.Context, schema, table string) ([]Column, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if err := safesql.ValidateIdentifier(schema, safesql.KindSchema); err != nil {
		return nil, err
	}
	if err := safesql.ValidateIdentifier(table, safesql.KindTable); err != nil {
		return nil, err
	}

	// pg_index.indisprimary detects primary keys even when created as
	// unique indexes by an ORM.
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			COALESCE(pk.is_pk, false) AS is_primary,
			c.ordinal_position
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname AS column_name, true AS is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = $1
			  AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := i.db.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimary, &c.Position); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	// information_schema returns zero rows for a missing table rather
	// than an error.
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s.%s", apperrors.ErrNotFound, schema, table)
	}
	return columns, nil
}
