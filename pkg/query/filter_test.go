package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

var testColumns = []string{"id", "customer_name", "status", "total_amount", "date_due"}

func testResolver() ColumnResolver {
	return NewColumnResolver("m", testColumns)
}

// renderWhere compiles filters and renders the conjunction with ?
// placeholders for assertion.
func renderWhere(t *testing.T, filters []Filter) (string, []any) {
	t.Helper()
	where, err := CompileFilters(filters, testResolver())
	require.NoError(t, err)
	require.NotNil(t, where)
	sqlText, args, err := where.ToSql()
	require.NoError(t, err)
	return sqlText, args
}

func TestCompileFilters_Empty(t *testing.T) {
	where, err := CompileFilters(nil, testResolver())
	require.NoError(t, err)
	assert.Nil(t, where)
}

func TestCompileFilters_Operators(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "eq",
			filter:   Filter{Column: "status", Operator: OpEq, Value: "open"},
			wantSQL:  `(m."status" = ?)`,
			wantArgs: []any{"open"},
		},
		{
			name:     "contains wraps value in wildcards",
			filter:   Filter{Column: "customer_name", Operator: OpContains, Value: "acme"},
			wantSQL:  `(m."customer_name" ILIKE ?)`,
			wantArgs: []any{"%acme%"},
		},
		{
			name:     "gt",
			filter:   Filter{Column: "total_amount", Operator: OpGt, Value: 100},
			wantSQL:  `(m."total_amount" > ?)`,
			wantArgs: []any{100},
		},
		{
			name:     "gte",
			filter:   Filter{Column: "total_amount", Operator: OpGte, Value: 100},
			wantSQL:  `(m."total_amount" >= ?)`,
			wantArgs: []any{100},
		},
		{
			name:     "lt",
			filter:   Filter{Column: "total_amount", Operator: OpLt, Value: 100},
			wantSQL:  `(m."total_amount" < ?)`,
			wantArgs: []any{100},
		},
		{
			name:     "lte",
			filter:   Filter{Column: "total_amount", Operator: OpLte, Value: 100},
			wantSQL:  `(m."total_amount" <= ?)`,
			wantArgs: []any{100},
		},
		{
			name:     "between non-date",
			filter:   Filter{Column: "total_amount", Operator: OpBetween, Value: []any{10, 20}},
			wantSQL:  `(m."total_amount" BETWEEN ? AND ?)`,
			wantArgs: []any{10, 20},
		},
		{
			name:     "in uses one array placeholder",
			filter:   Filter{Column: "status", Operator: OpIn, Value: []any{"open", "closed"}},
			wantSQL:  `(m."status" = ANY(?))`,
			wantArgs: []any{[]any{"open", "closed"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlText, args := renderWhere(t, []Filter{tt.filter})
			assert.Equal(t, tt.wantSQL, sqlText)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompileFilters_MultipleFiltersConjoin(t *testing.T) {
	sqlText, args := renderWhere(t, []Filter{
		{Column: "status", Operator: OpEq, Value: "open"},
		{Column: "total_amount", Operator: OpGt, Value: 50},
	})
	assert.Equal(t, `(m."status" = ? AND m."total_amount" > ?)`, sqlText)
	assert.Equal(t, []any{"open", 50}, args)
}

func TestCompileFilters_ArityErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"between with one value", Filter{Column: "total_amount", Operator: OpBetween, Value: []any{10}}},
		{"between with three values", Filter{Column: "total_amount", Operator: OpBetween, Value: []any{10, 20, 30}}},
		{"between with scalar", Filter{Column: "total_amount", Operator: OpBetween, Value: 10}},
		{"in with empty array", Filter{Column: "status", Operator: OpIn, Value: []any{}}},
		{"in with scalar", Filter{Column: "status", Operator: OpIn, Value: "open"}},
		{"eq with array", Filter{Column: "status", Operator: OpEq, Value: []any{"open"}}},
		{"gt with array", Filter{Column: "total_amount", Operator: OpGt, Value: []any{1, 2}}},
		{"eq with no value", Filter{Column: "status", Operator: OpEq}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileFilters([]Filter{tt.filter}, testResolver())
			assert.ErrorIs(t, err, apperrors.ErrInvalidValue)
		})
	}
}

func TestCompileFilters_UnknownOperator(t *testing.T) {
	_, err := CompileFilters([]Filter{{Column: "status", Operator: "regex", Value: ".*"}}, testResolver())
	assert.ErrorIs(t, err, apperrors.ErrInvalidOperator)
}

func TestCompileFilters_UnknownColumn(t *testing.T) {
	_, err := CompileFilters([]Filter{{Column: "statuss", Operator: OpEq, Value: "x"}}, testResolver())
	require.ErrorIs(t, err, apperrors.ErrInvalidColumn)
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "status")
}

func TestCompileFilters_HostileColumnNeverReachesSQL(t *testing.T) {
	hostile := []string{
		`status"; DROP TABLE users--`,
		"status' OR '1'='1",
		"status;--",
	}
	for _, col := range hostile {
		_, err := CompileFilters([]Filter{{Column: col, Operator: OpEq, Value: "x"}}, testResolver())
		if !errors.Is(err, apperrors.ErrInvalidIdentifier) && !errors.Is(err, apperrors.ErrInvalidColumn) {
			t.Errorf("column %q: got %v, want identifier/column rejection", col, err)
		}
	}
}

func TestCompileFilters_QualifiedReferenceWithoutJoin(t *testing.T) {
	// "main.status" is allowed (it names the only table), anything else is not.
	_, err := CompileFilters([]Filter{{Column: "main.status", Operator: OpEq, Value: "x"}}, testResolver())
	assert.NoError(t, err)

	_, err = CompileFilters([]Filter{{Column: "joined.status", Operator: OpEq, Value: "x"}}, testResolver())
	assert.ErrorIs(t, err, apperrors.ErrInvalidColumn)
}

func TestCompileFilters_DateNormalization(t *testing.T) {
	utc := func(s string) time.Time {
		tm, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return tm.UTC()
	}

	tests := []struct {
		name     string
		filter   Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			// Winter date: Pacific is -08:00.
			name:     "gte maps to day start",
			filter:   Filter{Column: "date_due", Operator: OpGte, Value: "2025-01-15"},
			wantSQL:  `(m."date_due" >= ?)`,
			wantArgs: []any{utc("2025-01-15T08:00:00Z")},
		},
		{
			// Summer date: Pacific is -07:00.
			name:     "lte maps to exclusive next-day start",
			filter:   Filter{Column: "date_due", Operator: OpLte, Value: "2025-07-04"},
			wantSQL:  `(m."date_due" < ?)`,
			wantArgs: []any{utc("2025-07-05T07:00:00Z")},
		},
		{
			name:     "lt also maps to exclusive next-day start",
			filter:   Filter{Column: "date_due", Operator: OpLt, Value: "2025-07-04"},
			wantSQL:  `(m."date_due" < ?)`,
			wantArgs: []any{utc("2025-07-05T07:00:00Z")},
		},
		{
			name:     "eq maps to day start instant",
			filter:   Filter{Column: "date_due", Operator: OpEq, Value: "2025-01-15"},
			wantSQL:  `(m."date_due" = ?)`,
			wantArgs: []any{utc("2025-01-15T08:00:00Z")},
		},
		{
			name:     "contains leaves date strings alone",
			filter:   Filter{Column: "customer_name", Operator: OpContains, Value: "2025-01-15"},
			wantSQL:  `(m."customer_name" ILIKE ?)`,
			wantArgs: []any{"%2025-01-15%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlText, args := renderWhere(t, []Filter{tt.filter})
			assert.Equal(t, tt.wantSQL, sqlText)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompileFilters_DateBetweenSpansDSTSpringForward(t *testing.T) {
	// 2025-03-09 is the US "spring forward" date: the Pacific day runs from
	// 00:00 -08:00 to the next midnight at -07:00. The compiled half-open
	// UTC range must reflect the offset change at the upper bound.
	sqlText, args := renderWhere(t, []Filter{{
		Column:   "date_due",
		Operator: OpBetween,
		Value:    []any{"2025-03-09", "2025-03-09"},
	}})

	assert.Equal(t, `((m."date_due" >= ? AND m."date_due" < ?))`, sqlText)
	require.Len(t, args, 2)

	start := args[0].(time.Time)
	end := args[1].(time.Time)
	assert.Equal(t, "2025-03-09T08:00:00Z", start.UTC().Format(time.RFC3339))
	assert.Equal(t, "2025-03-10T07:00:00Z", end.UTC().Format(time.RFC3339))

	// One Pacific wall-clock day, but only 23 real hours: the skipped hour
	// is exactly what the naive fixed-offset math gets wrong.
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestCompileFilters_DateBetweenFallDSTIsTwentyFiveHours(t *testing.T) {
	// 2025-11-02 is "fall back": the Pacific day has 25 real hours.
	sqlText, args := renderWhere(t, []Filter{{
		Column:   "date_due",
		Operator: OpBetween,
		Value:    []any{"2025-11-02", "2025-11-02"},
	}})

	require.True(t, strings.Contains(sqlText, ">=") && strings.Contains(sqlText, "<"))
	require.Len(t, args, 2)
	start := args[0].(time.Time)
	end := args[1].(time.Time)
	assert.Equal(t, "2025-11-02T07:00:00Z", start.UTC().Format(time.RFC3339))
	assert.Equal(t, "2025-11-03T08:00:00Z", end.UTC().Format(time.RFC3339))
	assert.Equal(t, 25*time.Hour, end.Sub(start))
}

func TestIsCalendarDate(t *testing.T) {
	assert.True(t, isCalendarDate("2025-03-09"))
	assert.False(t, isCalendarDate("2025-3-9"))
	assert.False(t, isCalendarDate("2025-03-09T10:00:00Z"))
	assert.False(t, isCalendarDate("not a date"))
	assert.False(t, isCalendarDate(""))
}
