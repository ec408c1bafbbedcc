package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/config"
	"github.com/rowgate-io/rowgate/pkg/dashcache"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/executor"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
	"github.com/rowgate-io/rowgate/pkg/repositories"
)

// Period types accepted by the dashboard.
const (
	PeriodMonth = "month"
	PeriodDay   = "day"
	PeriodAll   = "all"
)

// BlockMetric is one computed dashboard figure.
type BlockMetric struct {
	BlockID   string `json:"block_id"`
	BlockName string `json:"block_name"`
	Database  string `json:"database"`
	TableName string `json:"table_name"`
	RowCount  int    `json:"row_count"`
}

// DashboardMetrics is the cached answer for one (database, period) pair.
type DashboardMetrics struct {
	Database   string        `json:"database"`
	PeriodType string        `json:"period_type"`
	PeriodID   string        `json:"period_id"`
	Metrics    []BlockMetric `json:"metrics"`
	ComputedAt time.Time     `json:"computed_at"`
}

// DashboardService computes dashboard metrics from metric-kind report
// blocks, cached per period.
type DashboardService interface {
	Metrics(ctx context.Context, user *models.User, db, periodType, periodID string) (*DashboardMetrics, error)
}

type dashboardService struct {
	planner  *planner
	blocks   repositories.ReportBlockRepository
	recorder audit.Recorder
	cache    *dashcache.Cache[*DashboardMetrics]
	ttl      config.CacheConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(gate access.Gate, registry *database.Registry, blocks repositories.ReportBlockRepository, recorder audit.Recorder, cacheCfg config.CacheConfig, logger *zap.Logger) DashboardService {
	logger = logger.Named("dashboard")
	return &dashboardService{
		planner:  newPlanner(gate, registry, logger),
		blocks:   blocks,
		recorder: recorder,
		cache:    dashcache.New[*DashboardMetrics](cacheCfg.Capacity),
		ttl:      cacheCfg,
		now:      time.Now,
		logger:   logger,
	}
}

var _ DashboardService = (*dashboardService)(nil)

// Metrics serves the cached figures when available, computing and caching
// them otherwise. Current periods get the short TTL; closed historical
// periods are immutable and get the long one. The gate runs per request
// on every block's table before the cache is consulted: a warm entry
// must not widen what the caller could compute for themselves.
func (s *dashboardService) Metrics(ctx context.Context, user *models.User, db, periodType, periodID string) (*DashboardMetrics, error) {
	blocks, err := s.metricBlocks(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, block := range blocks {
		if err := s.planner.gate.Authorize(ctx, user, block.Database, block.TableName, access.Options{BypassVisibility: true}); err != nil {
			return nil, err
		}
	}

	key := dashcache.Key{
		Kind:       "block_counts",
		Database:   db,
		PeriodType: periodType,
		PeriodID:   periodID,
	}

	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("Dashboard cache hit", zap.String("key", key.String()))
		return cached, nil
	}

	metrics, err := s.compute(ctx, user, blocks, db, periodType, periodID)
	if err != nil {
		return nil, err
	}

	ttl := s.ttl.ClosedTTL
	if s.isCurrentPeriod(periodType, periodID) {
		ttl = s.ttl.CurrentTTL
	}
	s.cache.Set(key, metrics, ttl)

	return metrics, nil
}

// metricBlocks returns the metric-kind blocks for one database.
func (s *dashboardService) metricBlocks(ctx context.Context, db string) ([]*models.ReportBlock, error) {
	all, err := s.blocks.List(ctx)
	if err != nil {
		return nil, err
	}
	blocks := make([]*models.ReportBlock, 0, len(all))
	for _, block := range all {
		if block.Kind == models.BlockKindMetric && block.Database == db {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (s *dashboardService) compute(ctx context.Context, user *models.User, blocks []*models.ReportBlock, db, periodType, periodID string) (*DashboardMetrics, error) {
	result := &DashboardMetrics{
		Database:   db,
		PeriodType: periodType,
		PeriodID:   periodID,
		Metrics:    []BlockMetric{},
		ComputedAt: s.now(),
	}

	for _, block := range blocks {
		req, err := requestFromBlock(block)
		if err != nil {
			return nil, err
		}
		if filter, ok := periodFilter(periodType, periodID); ok {
			req.Filters = append(req.Filters, filter)
		}

		plan, err := s.planner.plan(ctx, user, req, access.Options{BypassVisibility: true})
		if err != nil {
			return nil, err
		}
		countStmt, err := query.BuildCount(plan.source, plan.where)
		if err != nil {
			return nil, err
		}
		count, err := executor.Count(ctx, plan.pool, countStmt)
		if err != nil {
			return nil, err
		}

		result.Metrics = append(result.Metrics, BlockMetric{
			BlockID:   block.ID.String(),
			BlockName: block.Name,
			Database:  block.Database,
			TableName: block.TableName,
			RowCount:  count,
		})
	}

	s.recorder.Record(ctx, user.ID, models.AuditActionReportRun, db, "", map[string]any{
		"dashboard":   true,
		"period_type": periodType,
		"period_id":   periodID,
		"blocks":      len(result.Metrics),
	})

	return result, nil
}

// periodFilter narrows a metric block to the requested period using the
// conventional created_at column. The "all" period applies no filter.
func periodFilter(periodType, periodID string) (query.Filter, bool) {
	switch periodType {
	case PeriodDay:
		return query.Filter{
			Column:   "created_at",
			Operator: query.OpBetween,
			Value:    []any{periodID, periodID},
		}, true
	case PeriodMonth:
		start, end, err := monthBounds(periodID)
		if err != nil {
			return query.Filter{}, false
		}
		return query.Filter{
			Column:   "created_at",
			Operator: query.OpBetween,
			Value:    []any{start, end},
		}, true
	default:
		return query.Filter{}, false
	}
}

// monthBounds expands "2026-08" to its first and last calendar day.
func monthBounds(periodID string) (string, string, error) {
	t, err := time.Parse("2006-01", periodID)
	if err != nil {
		return "", "", err
	}
	first := t
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
}

func (s *dashboardService) isCurrentPeriod(periodType, periodID string) bool {
	now := s.now()
	switch periodType {
	case PeriodDay:
		return periodID == now.Format("2006-01-02")
	case PeriodMonth:
		return periodID == now.Format("2006-01")
	default:
		// The "all" period always includes today.
		return true
	}
}
