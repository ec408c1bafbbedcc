package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

// fakeSource serves generated rows without a database.
type fakeSource struct {
	columns  []string
	rowCount int
	countErr error
}

func (f *fakeSource) CountRows(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.rowCount, nil
}

func (f *fakeSource) StreamRows(ctx context.Context, header func([]string) error, row func([]any) error) error {
	if err := header(f.columns); err != nil {
		return err
	}
	for i := 0; i < f.rowCount; i++ {
		if err := row([]any{i, fmt.Sprintf("row-%d", i)}); err != nil {
			return err
		}
	}
	return nil
}

func testLimits() Limits {
	return Limits{MaxRows: 10000, WarnThreshold: 2000}
}

func TestEngine_Check(t *testing.T) {
	tests := []struct {
		name        string
		rowCount    int
		wantAllowed bool
		wantWarn    bool
	}{
		{"small export", 100, true, false},
		{"at warn threshold", 2000, true, false},
		{"above warn threshold", 2001, true, true},
		{"at ceiling", 10000, true, true},
		{"above ceiling", 10001, false, false},
	}

	engine := NewEngine(1000, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Check(context.Background(),
				&fakeSource{columns: []string{"id", "name"}, rowCount: tt.rowCount}, testLimits())
			require.NoError(t, err)
			assert.Equal(t, tt.rowCount, result.RowCount)
			assert.Equal(t, 10000, result.MaxRows)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantWarn, result.Warn)
		})
	}
}

func TestEngine_StreamWritesHeaderAndRows(t *testing.T) {
	engine := NewEngine(1000, zap.NewNop())
	var buf bytes.Buffer

	written, err := engine.Stream(context.Background(),
		&fakeSource{columns: []string{"id", "name"}, rowCount: 3}, testLimits(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, "0,row-0", lines[1])
	assert.Equal(t, "2,row-2", lines[3])
}

func TestEngine_StreamJustUnderCeiling(t *testing.T) {
	engine := NewEngine(1000, zap.NewNop())
	var buf bytes.Buffer

	written, err := engine.Stream(context.Background(),
		&fakeSource{columns: []string{"id", "name"}, rowCount: 9999}, testLimits(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 9999, written)

	// Header plus one line per data row.
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 10000)
}

func TestEngine_StreamRefusesOversizedExportBeforeAnyBytes(t *testing.T) {
	engine := NewEngine(1000, zap.NewNop())
	var buf bytes.Buffer

	written, err := engine.Stream(context.Background(),
		&fakeSource{columns: []string{"id", "name"}, rowCount: 10001}, testLimits(), &buf)
	assert.ErrorIs(t, err, apperrors.ErrExportTooLarge)
	assert.Zero(t, written)
	assert.Zero(t, buf.Len())
}

func TestEngine_StreamCountErrorPropagates(t *testing.T) {
	engine := NewEngine(1000, zap.NewNop())
	var buf bytes.Buffer

	countErr := errors.New("relation vanished")
	_, err := engine.Stream(context.Background(), &fakeSource{countErr: countErr}, testLimits(), &buf)
	assert.ErrorIs(t, err, countErr)
	assert.Zero(t, buf.Len())
}

// failingWriter fails every write after the first n bytes.
type failingWriter struct {
	limit   int
	written int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, errors.New("broken pipe")
	}
	w.written += len(p)
	return len(p), nil
}

func TestEngine_StreamInterruptedByWriteFailure(t *testing.T) {
	// Small batch size so the csv writer flushes into the broken writer
	// mid-stream.
	engine := NewEngine(10, zap.NewNop())
	w := &failingWriter{limit: 64}

	_, err := engine.Stream(context.Background(),
		&fakeSource{columns: []string{"id", "name"}, rowCount: 500}, testLimits(), w)
	assert.ErrorIs(t, err, apperrors.ErrStreamInterrupted)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil is empty", nil, ""},
		{"string passes through", "hello", "hello"},
		{"bytes decode", []byte("raw"), "raw"},
		{"int", 42, "42"},
		{"float", 3.5, "3.5"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}

func TestEngine_StreamEscapesCSVMetacharacters(t *testing.T) {
	src := &literalSource{
		columns: []string{"note"},
		rows: [][]any{
			{`comma, inside`},
			{`quote "inside"`},
			{"newline\ninside"},
		},
	}
	engine := NewEngine(1000, zap.NewNop())
	var buf bytes.Buffer

	_, err := engine.Stream(context.Background(), src, testLimits(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"comma, inside"`)
	assert.Contains(t, out, `"quote ""inside"""`)
	assert.Contains(t, out, "\"newline\ninside\"")
}

type literalSource struct {
	columns []string
	rows    [][]any
}

func (l *literalSource) CountRows(ctx context.Context) (int, error) {
	return len(l.rows), nil
}

func (l *literalSource) StreamRows(ctx context.Context, header func([]string) error, row func([]any) error) error {
	if err := header(l.columns); err != nil {
		return err
	}
	for _, r := range l.rows {
		if err := row(r); err != nil {
			return err
		}
	}
	return nil
}
