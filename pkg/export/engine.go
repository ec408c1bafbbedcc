// Package export streams query results as CSV under per-role row
// ceilings. The ceiling is enforced against a count taken before the
// first byte is written, so an oversized export is refused outright
// rather than truncated mid-file.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

// RowSource produces the rows of one export.
type RowSource interface {
	// CountRows returns the exact number of rows the export would emit.
	CountRows(ctx context.Context) (int, error)
	// StreamRows streams the rows. header is called once with the result
	// column names before the first row; row is called once per row.
	// Returning an error from either callback aborts the stream.
	StreamRows(ctx context.Context, header func(columns []string) error, row func(values []any) error) error
}

// Limits bound one export.
type Limits struct {
	// MaxRows is the row ceiling for the requesting role. Exports whose
	// row count exceeds it are refused before any bytes are written.
	MaxRows int
	// WarnThreshold marks exports that are allowed but large enough to
	// flag in the pre-flight check.
	WarnThreshold int
}

// CheckResult is the pre-flight answer for an export request.
type CheckResult struct {
	RowCount int  `json:"row_count"`
	MaxRows  int  `json:"max_rows"`
	Allowed  bool `json:"allowed"`
	Warn     bool `json:"warn"`
}

// Engine runs exports.
type Engine struct {
	batchSize int
	logger    *zap.Logger
}

// NewEngine creates an export engine. batchSize controls the flush
// cadence of the CSV writer.
func NewEngine(batchSize int, logger *zap.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Engine{
		batchSize: batchSize,
		logger:    logger.Named("export"),
	}
}

// Check counts the export without streaming it.
func (e *Engine) Check(ctx context.Context, src RowSource, limits Limits) (CheckResult, error) {
	count, err := src.CountRows(ctx)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{
		RowCount: count,
		MaxRows:  limits.MaxRows,
		Allowed:  count <= limits.MaxRows,
		Warn:     count <= limits.MaxRows && count > limits.WarnThreshold,
	}, nil
}

// Stream writes the export as CSV to w. The row count is verified against
// the ceiling first; a refused export writes nothing. Returns the number
// of data rows written.
func (e *Engine) Stream(ctx context.Context, src RowSource, limits Limits, w io.Writer) (int, error) {
	// CountRows opens the source's repeatable-read transaction, so the
	// ceiling check and the stream see one snapshot. A refusal still
	// writes nothing; the transaction is read-only and rolled back.
	count, err := src.CountRows(ctx)
	if err != nil {
		return 0, err
	}
	if count > limits.MaxRows {
		return 0, fmt.Errorf("%w: %d rows exceeds the limit of %d",
			apperrors.ErrExportTooLarge, count, limits.MaxRows)
	}

	cw := csv.NewWriter(w)
	written := 0

	err = src.StreamRows(ctx,
		func(columns []string) error {
			if err := cw.Write(columns); err != nil {
				return fmt.Errorf("%w: write header: %v", apperrors.ErrStreamInterrupted, err)
			}
			return nil
		},
		func(values []any) error {
			record := make([]string, len(values))
			for i, v := range values {
				record[i] = formatValue(v)
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("%w: write row %d: %v", apperrors.ErrStreamInterrupted, written, err)
			}
			written++
			if written%e.batchSize == 0 {
				cw.Flush()
				if err := cw.Error(); err != nil {
					return fmt.Errorf("%w: flush at row %d: %v", apperrors.ErrStreamInterrupted, written, err)
				}
			}
			return nil
		})
	if err != nil {
		return written, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("%w: final flush: %v", apperrors.ErrStreamInterrupted, err)
	}

	e.logger.Debug("Export stream complete", zap.Int("rows", written))
	return written, nil
}

// formatValue renders one cell. NULL becomes the empty string; times are
// RFC 3339 in UTC so exports are stable across server timezones.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
