package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// psq builds statements with PostgreSQL dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Sort is the requested ordering. The column goes through the same
// resolver as filter columns.
type Sort struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending"`
}

// Statement is a rendered SQL statement with its bound parameters.
type Statement struct {
	SQL  string
	Args []any
}

// Source identifies the compiled FROM clause: the validated, quoted main
// table plus an optional rendered join chain.
type Source struct {
	Table   string // quoted qualified table, e.g. `"public"."orders"`
	JoinSQL string // rendered JOIN clauses, empty when no join
}

// NewSource builds a Source from validated schema/table identifiers.
func NewSource(schema, table string) Source {
	return Source{Table: safesql.QualifiedTable(schema, table)}
}

func (s Source) from() string {
	return s.Table + " AS " + sqlAlias[AliasMain]
}

// ResolveOrder renders the ORDER BY expression for a request:
// the requested sort column when present, otherwise the fallback (primary
// key, or physical row identity as a last resort) so paging stays
// deterministic while the table is concurrently written.
func ResolveOrder(sort *Sort, resolve ColumnResolver, fallback string) (string, error) {
	if sort == nil || sort.Column == "" {
		return fallback, nil
	}
	col, err := resolve(sort.Column)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	return col + " " + dir, nil
}

// FallbackOrder returns the default ORDER BY expression given the main
// table's primary key columns. With no declared key it falls back to ctid,
// which is stable for the duration of one statement.
func FallbackOrder(primaryKey []string) string {
	if len(primaryKey) == 0 {
		return sqlAlias[AliasMain] + ".ctid"
	}
	order := ""
	for i, col := range primaryKey {
		if i > 0 {
			order += ", "
		}
		order += sqlAlias[AliasMain] + "." + safesql.QuoteIdentifier(col)
	}
	return order
}

// BuildCount renders the COUNT(*) statement sharing the page query's
// WHERE clause and parameters.
func BuildCount(src Source, where sq.Sqlizer) (Statement, error) {
	b := psq.Select("COUNT(*)").From(src.from())
	if src.JoinSQL != "" {
		b = b.JoinClause(src.JoinSQL)
	}
	if where != nil {
		b = b.Where(where)
	}
	sqlText, args, err := b.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build count statement: %w", err)
	}
	return Statement{SQL: sqlText, Args: args}, nil
}

// BuildPage renders the bounded page SELECT.
func BuildPage(src Source, where sq.Sqlizer, orderBy string, page Page) (Statement, error) {
	b := psq.Select(sqlAlias[AliasMain] + ".*").From(src.from())
	if src.JoinSQL != "" {
		b = b.JoinClause(src.JoinSQL)
	}
	if where != nil {
		b = b.Where(where)
	}
	b = b.OrderBy(orderBy).
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset()))

	sqlText, args, err := b.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build page statement: %w", err)
	}
	return Statement{SQL: sqlText, Args: args}, nil
}

// BuildExport renders the unbounded SELECT used by the streaming export.
// Same shape as the page query minus LIMIT/OFFSET; the export engine
// enforces row ceilings before this statement ever runs.
func BuildExport(src Source, where sq.Sqlizer, orderBy string) (Statement, error) {
	b := psq.Select(sqlAlias[AliasMain] + ".*").From(src.from())
	if src.JoinSQL != "" {
		b = b.JoinClause(src.JoinSQL)
	}
	if where != nil {
		b = b.Where(where)
	}
	b = b.OrderBy(orderBy)

	sqlText, args, err := b.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build export statement: %w", err)
	}
	return Statement{SQL: sqlText, Args: args}, nil
}
