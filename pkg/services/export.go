package services

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/config"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/export"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
)

// ExportCheck is the pre-flight answer for an export request.
type ExportCheck struct {
	TotalCount    int  `json:"totalCount"`
	MaxRows       int  `json:"maxRowsForRole"`
	NeedsWarning  bool `json:"needsWarning"`
	ExceedsLimit  bool `json:"exceedsLimit"`
	WarnThreshold int  `json:"warnThreshold"`
}

// ExportService serves export pre-flight checks and CSV streams.
type ExportService interface {
	Check(ctx context.Context, user *models.User, req *BrowseRequest) (*ExportCheck, error)
	// Stream writes the CSV to w and returns the number of data rows
	// written. Oversized exports fail before the first byte.
	Stream(ctx context.Context, user *models.User, req *BrowseRequest, w io.Writer) (int, error)
}

type exportService struct {
	planner  *planner
	engine   *export.Engine
	recorder audit.Recorder
	limits   config.ExportConfig
	logger   *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(gate access.Gate, registry *database.Registry, recorder audit.Recorder, limits config.ExportConfig, logger *zap.Logger) ExportService {
	logger = logger.Named("export")
	return &exportService{
		planner:  newPlanner(gate, registry, logger),
		engine:   export.NewEngine(limits.BatchSize, logger),
		recorder: recorder,
		limits:   limits,
		logger:   logger,
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) limitsForRole(role string) export.Limits {
	return export.Limits{
		MaxRows:       s.limits.MaxRowsForRole(models.IsElevatedRole(role)),
		WarnThreshold: s.limits.WarnThreshold,
	}
}

func (s *exportService) Check(ctx context.Context, user *models.User, req *BrowseRequest) (*ExportCheck, error) {
	src, cleanup, err := s.source(ctx, user, req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	limits := s.limitsForRole(user.Role)
	result, err := s.engine.Check(ctx, src, limits)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, user.ID, models.AuditActionExportCheck, req.Database, req.Table, map[string]any{
		"total_count":   result.RowCount,
		"max_rows":      result.MaxRows,
		"exceeds_limit": !result.Allowed,
	})

	return &ExportCheck{
		TotalCount:    result.RowCount,
		MaxRows:       result.MaxRows,
		NeedsWarning:  result.Warn,
		ExceedsLimit:  !result.Allowed,
		WarnThreshold: limits.WarnThreshold,
	}, nil
}

func (s *exportService) Stream(ctx context.Context, user *models.User, req *BrowseRequest, w io.Writer) (int, error) {
	src, cleanup, err := s.source(ctx, user, req)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	written, err := s.engine.Stream(ctx, src, s.limitsForRole(user.Role), w)

	details := map[string]any{"rows_written": written}
	if err != nil {
		details["failed"] = true
	}
	s.recorder.Record(ctx, user.ID, models.AuditActionExport, req.Database, req.Table, details)

	if err != nil {
		s.logger.Warn("Export stream ended with error",
			zap.String("database", req.Database),
			zap.String("table", req.Table),
			zap.Int("rows_written", written),
			zap.Error(err))
		return written, err
	}
	return written, nil
}

// source compiles the request and wraps it in a transactional row source.
func (s *exportService) source(ctx context.Context, user *models.User, req *BrowseRequest) (export.RowSource, func(), error) {
	plan, err := s.planner.plan(ctx, user, req, access.Options{})
	if err != nil {
		return nil, nil, err
	}

	countStmt, err := query.BuildCount(plan.source, plan.where)
	if err != nil {
		return nil, nil, err
	}
	selStmt, err := query.BuildExport(plan.source, plan.where, plan.orderBy)
	if err != nil {
		return nil, nil, err
	}

	src := export.NewPgSource(plan.pool, countStmt, selStmt)
	return src, func() { src.Close(context.WithoutCancel(ctx)) }, nil
}
