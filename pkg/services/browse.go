// Package services implements the engine's operations: paginated
// browsing, export pre-flight and streaming, report block execution and
// dashboard metrics. Services compose the access gate, catalog, query
// compiler and executors; handlers stay thin.
package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/executor"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
)

// BrowseResult is one page of rows with its pagination state.
type BrowseResult struct {
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	TotalCount int              `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// BrowseService serves paginated table reads.
type BrowseService interface {
	Browse(ctx context.Context, user *models.User, req *BrowseRequest) (*BrowseResult, error)
}

type browseService struct {
	planner  *planner
	recorder audit.Recorder
	pageSize int
	logger   *zap.Logger
}

// NewBrowseService creates a BrowseService.
func NewBrowseService(gate access.Gate, registry *database.Registry, recorder audit.Recorder, pageSize int, logger *zap.Logger) BrowseService {
	logger = logger.Named("browse")
	return &browseService{
		planner:  newPlanner(gate, registry, logger),
		recorder: recorder,
		pageSize: pageSize,
		logger:   logger,
	}
}

var _ BrowseService = (*browseService)(nil)

func (s *browseService) Browse(ctx context.Context, user *models.User, req *BrowseRequest) (*BrowseResult, error) {
	plan, err := s.planner.plan(ctx, user, req, access.Options{})
	if err != nil {
		return nil, err
	}

	countStmt, err := query.BuildCount(plan.source, plan.where)
	if err != nil {
		return nil, err
	}
	totalCount, err := executor.Count(ctx, plan.pool, countStmt)
	if err != nil {
		return nil, err
	}

	page := query.Paginate(req.Page, totalCount, s.pageSize)

	pageStmt, err := query.BuildPage(plan.source, plan.where, plan.orderBy, page)
	if err != nil {
		return nil, err
	}
	result, err := executor.FetchPage(ctx, plan.pool, pageStmt)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, user.ID, models.AuditActionBrowse, req.Database, req.Table, map[string]any{
		"filters":     len(req.Filters),
		"joined":      req.Join != nil,
		"page":        page.Page,
		"total_count": totalCount,
	})

	s.logger.Debug("Served browse page",
		zap.String("database", req.Database),
		zap.String("table", req.Table),
		zap.Int("page", page.Page),
		zap.Int("total_count", totalCount))

	return &BrowseResult{
		Columns:    result.Columns,
		Rows:       result.Rows,
		TotalCount: totalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}
