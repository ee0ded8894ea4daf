package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-insight/components/dashboard"
)

// Catalog looks up the records a resolver needs. *dashboard.Service
// satisfies it.
type Catalog interface {
	DataSource(id string) (dashboard.DataSource, error)
	SavedQuery(id string) (dashboard.SavedQuery, error)
}

// Resolver turns source refs into rows. Rows fetched by a sync are cached per
// data source and served until the next sync; uncached sources are fetched
// live.
type Resolver struct {
	catalog  Catalog
	registry *Registry
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]dashboard.Dataset
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver wires a catalog with a connector registry. A nil registry means
// DefaultRegistry.
func NewResolver(catalog Catalog, registry *Registry, opts ...ResolverOption) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	r := &Resolver{
		catalog:  catalog,
		registry: registry,
		logger:   zap.NewNop(),
		cache:    map[string]dashboard.Dataset{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	_ dashboard.RowResolver = (*Resolver)(nil)
	_ dashboard.Syncer      = (*Resolver)(nil)
	_ dashboard.RefreshHook = (*Resolver)(nil)
)

// SetCatalog binds the catalog after construction.
func (r *Resolver) SetCatalog(catalog Catalog) {
	r.mu.Lock()
	r.catalog = catalog
	r.mu.Unlock()
}

// Resolve implements dashboard.RowResolver. A saved query without a data
// source runs against the sales demo rows.
func (r *Resolver) Resolve(ctx context.Context, ref dashboard.SourceRef) (dashboard.Dataset, error) {
	r.mu.RLock()
	catalog := r.catalog
	r.mu.RUnlock()
	if catalog == nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: resolver has no catalog")
	}
	switch ref.Kind {
	case dashboard.SourceKindQuery:
		q, err := catalog.SavedQuery(ref.ID)
		if err != nil {
			return dashboard.Dataset{}, err
		}
		if q.DataSourceID == "" {
			return QueryDataset(ctx, SalesData(), q.SQL, SampleSales)
		}
		ds, err := catalog.DataSource(q.DataSourceID)
		if err != nil {
			return dashboard.Dataset{}, err
		}
		return r.fetch(ctx, ds, q.SQL)
	default:
		if cached, ok := r.cached(ref.ID); ok {
			return cached, nil
		}
		ds, err := catalog.DataSource(ref.ID)
		if err != nil {
			return dashboard.Dataset{}, err
		}
		return r.fetch(ctx, ds, "")
	}
}

// Sync implements dashboard.Syncer: it fetches the source and replaces the
// cached rows. The cache keeps the previous rows when the fetch fails.
func (r *Resolver) Sync(ctx context.Context, ds dashboard.DataSource) error {
	rows, err := r.fetch(ctx, ds, "")
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cache[ds.ID] = rows
	r.mu.Unlock()
	r.logger.Debug("source synced", zap.String("data_source_id", ds.ID), zap.Int("rows", rows.Len()))
	return nil
}

// Forget drops cached rows for a data source.
func (r *Resolver) Forget(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

// DashboardUpdated implements dashboard.RefreshHook. Deleting a workspace
// drops the cached rows of every source the catalog no longer knows.
func (r *Resolver) DashboardUpdated(_ context.Context, event dashboard.DashboardEvent) error {
	if event.Reason != "workspace.deleted" {
		return nil
	}
	r.mu.RLock()
	catalog := r.catalog
	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	if catalog == nil {
		return nil
	}
	for _, id := range ids {
		if _, err := catalog.DataSource(id); errors.Is(err, dashboard.ErrNotFound) {
			r.Forget(id)
			r.logger.Debug("source cache dropped", zap.String("data_source_id", id), zap.String("workspace_id", event.WorkspaceID))
		}
	}
	return nil
}

func (r *Resolver) cached(id string) (dashboard.Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.cache[id]
	if !ok {
		return dashboard.Dataset{}, false
	}
	return ds.Clone(), true
}

func (r *Resolver) fetch(ctx context.Context, ds dashboard.DataSource, query string) (dashboard.Dataset, error) {
	rows, err := r.registry.Fetch(ctx, ds.Connection, query)
	if err != nil {
		r.logger.Warn("source fetch failed",
			zap.String("data_source_id", ds.ID),
			zap.String("type", string(ds.Type)),
			zap.Error(err),
		)
		return dashboard.Dataset{}, fmt.Errorf("sources: %s: %w", ds.Name, err)
	}
	return rows, nil
}
