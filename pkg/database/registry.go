package database

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
	"github.com/rowgate-io/rowgate/pkg/config"
	"github.com/rowgate-io/rowgate/pkg/logging"
	"github.com/rowgate-io/rowgate/pkg/retry"
)

// Registry holds one lazily-opened connection pool per configured source
// database. Pools are opened on first use and shared for the process
// lifetime; Close releases all of them on shutdown.
type Registry struct {
	sources  map[string]config.SourceConfig
	settings PoolSettings
	logger   *zap.Logger

	mu    sync.Mutex
	pools map[string]*DB
}

// NewRegistry creates a registry over the configured sources.
func NewRegistry(sources []config.SourceConfig, settings PoolSettings, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]config.SourceConfig, len(sources))
	for _, src := range sources {
		byName[src.Name] = src
	}
	return &Registry{
		sources:  byName,
		settings: settings,
		logger:   logger,
		pools:    make(map[string]*DB),
	}
}

// Names lists the configured source names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// Get returns the pool for a named source, opening it on first use.
// Unknown names return ErrNotFound so handlers can map them to 404
// without inspecting pool errors.
func (r *Registry) Get(ctx context.Context, name string) (*DB, error) {
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: source database %q", apperrors.ErrNotFound, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[name]; ok {
		return pool, nil
	}

	// Transient connect failures (source restarting, pool briefly full)
	// are retried with backoff; permanent ones fail straight through.
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*DB, error) {
		return Connect(ctx, src.ConnectionString(), r.settings)
	})
	if err != nil {
		r.logger.Error("Failed to open source database pool",
			zap.String("source", name),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect source %q: %w", name, err)
	}

	r.logger.Info("Opened source database pool",
		zap.String("source", name),
		zap.Int32("max_conns", r.settings.MaxConns))

	r.pools[name] = pool
	return pool, nil
}

// Close releases every open pool.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, pool := range r.pools {
		pool.Close()
		delete(r.pools, name)
	}
}
