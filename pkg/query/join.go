package query

import (
	"fmt"
	"strings"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// Table aliases used in compiled SQL. Clients qualify cross-join column
// references with the matching token ("main", "joined", "subjoined"); any
// other prefix is rejected rather than guessed at.
const (
	AliasMain      = "main"
	AliasJoined    = "joined"
	AliasSubJoined = "subjoined"
)

// sqlAlias maps an alias token to the short alias used in statement text.
var sqlAlias = map[string]string{
	AliasMain:      "m",
	AliasJoined:    "j",
	AliasSubJoined: "s",
}

// Join types accepted from clients.
const (
	JoinInner = "inner"
	JoinLeft  = "left"
)

// MaxJoinDepth caps the join chain at main -> joined -> sub-joined.
const MaxJoinDepth = 2

// JoinSpec describes one edge of the join chain. The chain is linear, not
// a tree: Sub hangs the next table off this one's right side.
type JoinSpec struct {
	Schema     string    `json:"schema,omitempty"`
	Table      string    `json:"table"`
	FromColumn string    `json:"from_column"`
	ToColumn   string    `json:"to_column"`
	Type       string    `json:"type"` // 'inner' or 'left'
	Sub        *JoinSpec `json:"sub_join,omitempty"`
}

// Depth returns the number of table hops in the join chain.
func (j *JoinSpec) Depth() int {
	if j == nil {
		return 0
	}
	return 1 + j.Sub.Depth()
}

// TableLookup returns the column names of a table, or an error when the
// table is absent or the caller is not allowed to read it. Implementations
// close over the request context, the live catalog and the access gate.
type TableLookup func(schema, table string) ([]string, error)

// Join is a validated, rendered join chain.
type Join struct {
	// SQL is the rendered JOIN clause text, e.g.
	// `INNER JOIN "public"."orders" AS j ON m."id" = j."customer_id"`.
	SQL string

	columns map[string][]string // alias token -> column names
}

// BuildJoin validates the join chain top-down against live table metadata
// and renders it. mainColumns are the already-fetched columns of the main
// table; lookup resolves each joined table (existence + authorization +
// columns) as the chain is walked.
func BuildJoin(spec *JoinSpec, mainColumns []string, lookup TableLookup) (*Join, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: missing join spec", apperrors.ErrInvalidJoin)
	}
	if depth := spec.Depth(); depth > MaxJoinDepth {
		return nil, fmt.Errorf("%w: join depth %d exceeds maximum %d", apperrors.ErrInvalidJoin, depth, MaxJoinDepth)
	}

	j := &Join{
		columns: map[string][]string{AliasMain: mainColumns},
	}

	var clauses []string
	leftAlias := sqlAlias[AliasMain]
	leftColumns := mainColumns
	aliasTokens := []string{AliasJoined, AliasSubJoined}

	for level := 0; spec != nil; level, spec = level+1, spec.Sub {
		token := aliasTokens[level]
		clause, rightColumns, err := buildJoinEdge(spec, leftAlias, leftColumns, sqlAlias[token], lookup)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
		j.columns[token] = rightColumns

		leftAlias = sqlAlias[token]
		leftColumns = rightColumns
	}

	j.SQL = strings.Join(clauses, " ")
	return j, nil
}

// buildJoinEdge validates and renders one edge of the chain: the from
// column must belong to the left-side table, the to column to the table
// being joined.
func buildJoinEdge(spec *JoinSpec, leftAlias string, leftColumns []string, rightAlias string, lookup TableLookup) (string, []string, error) {
	var keyword string
	switch spec.Type {
	case JoinInner:
		keyword = "INNER JOIN"
	case JoinLeft:
		keyword = "LEFT JOIN"
	default:
		return "", nil, fmt.Errorf("%w: join type %q", apperrors.ErrInvalidJoin, spec.Type)
	}

	if spec.Schema != "" {
		if err := safesql.ValidateIdentifier(spec.Schema, safesql.KindSchema); err != nil {
			return "", nil, err
		}
	}
	if err := safesql.ValidateIdentifier(spec.Table, safesql.KindTable); err != nil {
		return "", nil, err
	}
	if err := safesql.ValidateIdentifier(spec.FromColumn, safesql.KindColumn); err != nil {
		return "", nil, err
	}
	if err := safesql.ValidateIdentifier(spec.ToColumn, safesql.KindColumn); err != nil {
		return "", nil, err
	}

	if !containsColumn(leftColumns, spec.FromColumn) {
		return "", nil, fmt.Errorf("%w: from column %q does not exist in the left-side table", apperrors.ErrInvalidJoin, spec.FromColumn)
	}

	rightColumns, err := lookup(spec.Schema, spec.Table)
	if err != nil {
		return "", nil, err
	}
	if !containsColumn(rightColumns, spec.ToColumn) {
		return "", nil, fmt.Errorf("%w: to column %q does not exist in table %q", apperrors.ErrInvalidJoin, spec.ToColumn, spec.Table)
	}

	clause := fmt.Sprintf("%s %s AS %s ON %s.%s = %s.%s",
		keyword,
		safesql.QualifiedTable(spec.Schema, spec.Table),
		rightAlias,
		leftAlias, safesql.QuoteIdentifier(spec.FromColumn),
		rightAlias, safesql.QuoteIdentifier(spec.ToColumn),
	)
	return clause, rightColumns, nil
}

// Resolver returns a ColumnResolver over the full join chain. Bare column
// names resolve against the main table; qualified references must use one
// of the closed alias tokens and resolve against that level's columns.
func (j *Join) Resolver() ColumnResolver {
	return func(ref string) (string, error) {
		token := AliasMain
		name := ref
		if prefix, rest, ok := strings.Cut(ref, "."); ok {
			token, name = prefix, rest
		}

		columns, ok := j.columns[token]
		if !ok {
			return "", fmt.Errorf("%w: column prefix %q is not one of main, joined, subjoined", apperrors.ErrInvalidJoin, token)
		}
		if err := safesql.ValidateIdentifier(name, safesql.KindColumn); err != nil {
			return "", err
		}
		if !containsColumn(columns, name) {
			return "", unknownColumnError(name, columns)
		}
		return sqlAlias[token] + "." + safesql.QuoteIdentifier(name), nil
	}
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
