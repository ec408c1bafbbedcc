package services

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/catalog"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/query"
	safesql "github.com/rowgate-io/rowgate/pkg/sql"
)

// BrowseRequest is the validated-on-compile input shared by browsing,
// export and report execution.
type BrowseRequest struct {
	Database string          `json:"database"`
	Schema   string          `json:"schema,omitempty"`
	Table    string          `json:"table"`
	Filters  []query.Filter  `json:"filters,omitempty"`
	Join     *query.JoinSpec `json:"join,omitempty"`
	Sort     *query.Sort     `json:"sort,omitempty"`
	Page     int             `json:"page,omitempty"`
}

// queryPlan is a fully compiled request: authorized, validated against
// live metadata, and rendered down to statement fragments.
type queryPlan struct {
	pool    *database.DB
	source  query.Source
	where   sq.Sqlizer
	orderBy string
	schema  string
}

// planner compiles requests. It owns the cross-cutting ordering rule:
// authorize first, then touch metadata, then compile.
type planner struct {
	gate     access.Gate
	registry *database.Registry
	security *audit.SecurityAuditor
	logger   *zap.Logger
}

func newPlanner(gate access.Gate, registry *database.Registry, logger *zap.Logger) *planner {
	return &planner{
		gate:     gate,
		registry: registry,
		security: audit.NewSecurityAuditor(logger),
		logger:   logger,
	}
}

// plan authorizes and compiles one request end to end.
func (p *planner) plan(ctx context.Context, user *models.User, req *BrowseRequest, opts access.Options) (*queryPlan, error) {
	if err := safesql.ValidateIdentifier(req.Table, safesql.KindTable); err != nil {
		p.security.LogIdentifierRejected(user.ID, req.Database, err.Error())
		return nil, err
	}
	schema := req.Schema
	if schema == "" {
		schema = catalog.DefaultSchema
	}
	if err := safesql.ValidateIdentifier(schema, safesql.KindSchema); err != nil {
		p.security.LogIdentifierRejected(user.ID, req.Database, err.Error())
		return nil, err
	}

	if err := p.gate.Authorize(ctx, user, req.Database, req.Table, opts); err != nil {
		return nil, err
	}

	pool, err := p.registry.Get(ctx, req.Database)
	if err != nil {
		return nil, err
	}

	inspector := catalog.NewInspector(pool)
	columns, err := inspector.Columns(ctx, schema, req.Table)
	if err != nil {
		return nil, err
	}
	columnNames := catalog.ColumnNames(columns)

	source := query.NewSource(schema, req.Table)
	resolve := query.NewColumnResolver("m", columnNames)

	if req.Join != nil {
		join, err := query.BuildJoin(req.Join, columnNames, p.joinLookup(ctx, user, req.Database, opts, pool))
		if err != nil {
			return nil, err
		}
		source.JoinSQL = join.SQL
		resolve = join.Resolver()
	}

	p.screenFilterValues(user, req)

	where, err := query.CompileFilters(req.Filters, resolve)
	if err != nil {
		return nil, err
	}

	orderBy, err := query.ResolveOrder(req.Sort, resolve, query.FallbackOrder(catalog.PrimaryKey(columns)))
	if err != nil {
		return nil, err
	}

	return &queryPlan{
		pool:    pool,
		source:  source,
		where:   where,
		orderBy: orderBy,
		schema:  schema,
	}, nil
}

// joinLookup resolves joined tables during join compilation. Every table
// in the chain goes through the same access gate as the main table; a
// denied or missing joined table reads as an invalid join, not as an
// existence oracle.
func (p *planner) joinLookup(ctx context.Context, user *models.User, db string, opts access.Options, pool *database.DB) query.TableLookup {
	inspector := catalog.NewInspector(pool)
	return func(schema, table string) ([]string, error) {
		if err := p.gate.Authorize(ctx, user, db, table, opts); err != nil {
			if errors.Is(err, apperrors.ErrAccessDenied) {
				return nil, fmt.Errorf("%w: table %q", apperrors.ErrInvalidJoin, table)
			}
			return nil, err
		}
		columns, err := inspector.Columns(ctx, schema, table)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: table %q", apperrors.ErrInvalidJoin, table)
			}
			return nil, err
		}
		return catalog.ColumnNames(columns), nil
	}
}

// screenFilterValues runs the injection screen over string filter values.
// Values only ever travel as bound parameters, so a hit is telemetry for
// the audit trail rather than a rejection.
func (p *planner) screenFilterValues(user *models.User, req *BrowseRequest) {
	for _, f := range req.Filters {
		if result := safesql.CheckFilterValue(f.Column, f.Value); result != nil {
			p.security.LogInjectionAttempt(user.ID, req.Database, req.Table, audit.SQLInjectionDetails{
				Column:      f.Column,
				Value:       fmt.Sprintf("%v", result.Value),
				Fingerprint: result.Fingerprint,
			})
		}
	}
}
