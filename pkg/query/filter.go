// Package query compiles untrusted structured browse requests (filters,
// joins, sort, pagination) into parameterized PostgreSQL statements.
// Identifiers are validated and quoted through pkg/sql before they touch
// statement text; values only ever travel as bound parameters.
package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// Operator kinds accepted from clients.
const (
	OpEq       = "eq"
	OpContains = "contains"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpBetween  = "between"
	OpIn       = "in"
)

// KnownOperator reports whether op is one of the accepted operator kinds.
func KnownOperator(op string) bool {
	switch op {
	case OpEq, OpContains, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn:
		return true
	}
	return false
}

// Filter is one (column, operator, value) triple from client input or a
// stored filter definition. Filters are never mutated after validation; a
// compiled fragment is derived from them instead.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"` // scalar, or []any for between/in
}

// ColumnResolver maps a client column reference to quoted SQL text. The
// reference may be a bare column of the main table or an alias-qualified
// "alias.column" form when a join is active.
type ColumnResolver func(ref string) (string, error)

// NewColumnResolver builds a resolver over the main table's columns.
// References must be bare column names; dotted references are rejected
// because there is no join to resolve them against.
func NewColumnResolver(alias string, columns []string) ColumnResolver {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	return func(ref string) (string, error) {
		name := ref
		if prefix, rest, ok := strings.Cut(ref, "."); ok {
			if prefix != AliasMain {
				return "", fmt.Errorf("%w: reference %q is qualified but no join is active", apperrors.ErrInvalidColumn, ref)
			}
			name = rest
		}
		if err := safesql.ValidateIdentifier(name, safesql.KindColumn); err != nil {
			return "", err
		}
		if !known[name] {
			return "", unknownColumnError(name, columns)
		}
		return alias + "." + safesql.QuoteIdentifier(name), nil
	}
}

// unknownColumnError builds an ErrInvalidColumn carrying ranked
// "did you mean" candidates. Suggestions are only computed here, for
// syntactically valid names absent from the column set.
func unknownColumnError(name string, known []string) error {
	suggestions := safesql.SuggestColumns(name, known)
	if len(suggestions) == 0 {
		return fmt.Errorf("%w: unknown column %q", apperrors.ErrInvalidColumn, name)
	}
	return fmt.Errorf("%w: unknown column %q (did you mean %s?)",
		apperrors.ErrInvalidColumn, name, strings.Join(suggestions, ", "))
}

// CompileFilters turns filters into a parameterized WHERE conjunction.
// Returns nil when the filter list is empty.
func CompileFilters(filters []Filter, resolve ColumnResolver) (sq.Sqlizer, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	conj := make(sq.And, 0, len(filters))
	for i := range filters {
		expr, err := compileFilter(&filters[i], resolve)
		if err != nil {
			return nil, err
		}
		conj = append(conj, expr)
	}
	return conj, nil
}

func compileFilter(f *Filter, resolve ColumnResolver) (sq.Sqlizer, error) {
	col, err := resolve(f.Column)
	if err != nil {
		return nil, err
	}

	switch f.Operator {
	case OpEq, OpContains, OpGt, OpGte, OpLt, OpLte:
		value, err := scalarValue(f)
		if err != nil {
			return nil, err
		}
		return compileScalar(f.Operator, col, value)
	case OpBetween:
		values, err := arrayValue(f)
		if err != nil {
			return nil, err
		}
		if len(values) != 2 {
			return nil, fmt.Errorf("%w: between requires exactly 2 values, got %d", apperrors.ErrInvalidValue, len(values))
		}
		return compileBetween(col, values[0], values[1])
	case OpIn:
		values, err := arrayValue(f)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: in requires a non-empty array", apperrors.ErrInvalidValue)
		}
		return sq.Expr(col+" = ANY(?)", values), nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidOperator, f.Operator)
	}
}

// compileScalar renders a single-placeholder comparison, applying Pacific
// calendar-day normalization when the value is a YYYY-MM-DD string.
func compileScalar(op, col string, value any) (sq.Sqlizer, error) {
	if s, ok := value.(string); ok && isCalendarDate(s) && op != OpContains {
		return compileDateScalar(op, col, s)
	}

	switch op {
	case OpEq:
		return sq.Eq{col: value}, nil
	case OpContains:
		return sq.ILike{col: "%" + toComparableString(value) + "%"}, nil
	case OpGt:
		return sq.Gt{col: value}, nil
	case OpGte:
		return sq.GtOrEq{col: value}, nil
	case OpLt:
		return sq.Lt{col: value}, nil
	case OpLte:
		return sq.LtOrEq{col: value}, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidOperator, op)
}

// compileDateScalar maps a calendar-date comparison onto UTC instants.
// Lower-bound operators (eq/gt/gte) anchor at the start of the Pacific
// day; upper-bound operators (lt/lte) anchor at the start of the NEXT
// Pacific day and always compare strictly below it, so a whole calendar
// day is covered without 23:59:59 truncation errors.
func compileDateScalar(op, col, date string) (sq.Sqlizer, error) {
	switch op {
	case OpEq:
		start, err := pacificDayStart(date)
		if err != nil {
			return nil, err
		}
		return sq.Eq{col: start}, nil
	case OpGt:
		start, err := pacificDayStart(date)
		if err != nil {
			return nil, err
		}
		return sq.Gt{col: start}, nil
	case OpGte:
		start, err := pacificDayStart(date)
		if err != nil {
			return nil, err
		}
		return sq.GtOrEq{col: start}, nil
	case OpLt, OpLte:
		end, err := pacificNextDayStart(date)
		if err != nil {
			return nil, err
		}
		return sq.Lt{col: end}, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidOperator, op)
}

// compileBetween renders a two-placeholder range. A pair of calendar dates
// becomes a half-open UTC range per the same exclusive-upper-bound rule;
// anything else is a plain inclusive BETWEEN.
func compileBetween(col string, lo, hi any) (sq.Sqlizer, error) {
	loStr, loIsStr := lo.(string)
	hiStr, hiIsStr := hi.(string)
	if loIsStr && hiIsStr && isCalendarDate(loStr) && isCalendarDate(hiStr) {
		start, err := pacificDayStart(loStr)
		if err != nil {
			return nil, err
		}
		end, err := pacificNextDayStart(hiStr)
		if err != nil {
			return nil, err
		}
		return sq.And{sq.GtOrEq{col: start}, sq.Lt{col: end}}, nil
	}
	return sq.Expr(col+" BETWEEN ? AND ?", lo, hi), nil
}

// scalarValue enforces single-scalar arity for non-array operators.
func scalarValue(f *Filter) (any, error) {
	switch f.Value.(type) {
	case nil:
		return nil, fmt.Errorf("%w: %s requires a value", apperrors.ErrInvalidValue, f.Operator)
	case []any:
		return nil, fmt.Errorf("%w: %s requires a single scalar, got an array", apperrors.ErrInvalidValue, f.Operator)
	}
	return f.Value, nil
}

// arrayValue enforces array arity for between/in.
func arrayValue(f *Filter) ([]any, error) {
	values, ok := f.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires an array of values", apperrors.ErrInvalidValue, f.Operator)
	}
	return values, nil
}

func toComparableString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
