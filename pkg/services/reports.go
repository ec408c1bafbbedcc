package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/executor"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
	"github.com/rowgate-io/rowgate/pkg/repositories"
)

// ReportService executes persisted report blocks through the same
// compiler as ad-hoc browsing.
type ReportService interface {
	RunBlock(ctx context.Context, user *models.User, blockID uuid.UUID, page int) (*BrowseResult, error)
}

type reportService struct {
	planner  *planner
	blocks   repositories.ReportBlockRepository
	recorder audit.Recorder
	pageSize int
	logger   *zap.Logger
}

// NewReportService creates a ReportService.
func NewReportService(gate access.Gate, registry *database.Registry, blocks repositories.ReportBlockRepository, recorder audit.Recorder, pageSize int, logger *zap.Logger) ReportService {
	logger = logger.Named("reports")
	return &reportService{
		planner:  newPlanner(gate, registry, logger),
		blocks:   blocks,
		recorder: recorder,
		pageSize: pageSize,
		logger:   logger,
	}
}

var _ ReportService = (*reportService)(nil)

// RunBlock loads the block, re-validates its stored configuration and
// executes it. Blocks may reference hidden tables, so visibility is
// bypassed; grants for restricted users are not.
func (s *reportService) RunBlock(ctx context.Context, user *models.User, blockID uuid.UUID, page int) (*BrowseResult, error) {
	block, err := s.blocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}

	req, err := requestFromBlock(block)
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.plan(ctx, user, req, access.Options{BypassVisibility: true})
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

	pageState := query.Paginate(page, totalCount, s.pageSize)
	pageStmt, err := query.BuildPage(plan.source, plan.where, plan.orderBy, pageState)
	if err != nil {
		return nil, err
	}
	result, err := executor.FetchPage(ctx, plan.pool, pageStmt)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, user.ID, models.AuditActionReportRun, block.Database, block.TableName, map[string]any{
		"block_id":    block.ID.String(),
		"block_kind":  block.Kind,
		"total_count": totalCount,
	})

	s.logger.Debug("Ran report block",
		zap.String("block_id", block.ID.String()),
		zap.String("kind", block.Kind),
		zap.Int("total_count", totalCount))

	return &BrowseResult{
		Columns:    result.Columns,
		Rows:       result.Rows,
		TotalCount: totalCount,
		Page:       pageState.Page,
		PageSize:   pageState.PageSize,
		TotalPages: pageState.TotalPages,
	}, nil
}

// requestFromBlock decodes the block's stored JSON configuration. Stored
// configurations are data, not trusted input; they go through the full
// validation path on every run.
func requestFromBlock(block *models.ReportBlock) (*BrowseRequest, error) {
	req := &BrowseRequest{
		Database: block.Database,
		Table:    block.TableName,
		Page:     1,
	}

	if len(block.Filters) > 0 {
		if err := json.Unmarshal(block.Filters, &req.Filters); err != nil {
			return nil, fmt.Errorf("%w: stored filters: %v", apperrors.ErrInvalidValue, err)
		}
	}
	if len(block.Join) > 0 {
		var join query.JoinSpec
		if err := json.Unmarshal(block.Join, &join); err != nil {
			return nil, fmt.Errorf("%w: stored join: %v", apperrors.ErrInvalidJoin, err)
		}
		req.Join = &join
	}
	if block.SortBy != "" {
		req.Sort = &query.Sort{Column: block.SortBy, Descending: block.SortDesc}
	}
	return req, nil
}
