package dashboard

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store. Collections keep insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	workspaces []Workspace
	dashboards []Dashboard
	sources    []DataSource
	queries    []SavedQuery
	logs       []AuditLog
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) ListWorkspaces(context.Context) ([]Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Workspace(nil), m.workspaces...), nil
}

func (m *MemoryStore) CreateWorkspace(_ context.Context, ws Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.workspaces {
		if existing.ID == ws.ID {
			return fmt.Errorf("dashboard: workspace %s already exists", ws.ID)
		}
	}
	m.workspaces = append(m.workspaces, ws)
	return nil
}

func (m *MemoryStore) DeleteWorkspace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces = removeWhere(m.workspaces, func(w Workspace) bool { return w.ID == id })
	m.dashboards = removeWhere(m.dashboards, func(d Dashboard) bool { return d.WorkspaceID == id })
	m.sources = removeWhere(m.sources, func(ds DataSource) bool { return ds.WorkspaceID == id })
	m.queries = removeWhere(m.queries, func(q SavedQuery) bool { return q.WorkspaceID == id })
	return nil
}

func (m *MemoryStore) ListDashboards(context.Context) ([]Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Dashboard, len(m.dashboards))
	for i, d := range m.dashboards {
		out[i] = d.clone()
	}
	return out, nil
}

func (m *MemoryStore) CreateDashboard(_ context.Context, dash Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboards = append(m.dashboards, dash.clone())
	return nil
}

// SaveDashboard overwrites the stored dashboard; last write wins.
func (m *MemoryStore) SaveDashboard(_ context.Context, dash Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.dashboards {
		if m.dashboards[i].ID == dash.ID {
			m.dashboards[i] = dash.clone()
			return nil
		}
	}
	return fmt.Errorf("%w: dashboard %s", ErrNotFound, dash.ID)
}

func (m *MemoryStore) DeleteDashboard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboards = removeWhere(m.dashboards, func(d Dashboard) bool { return d.ID == id })
	return nil
}

func (m *MemoryStore) ListDataSources(context.Context) ([]DataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DataSource(nil), m.sources...), nil
}

func (m *MemoryStore) CreateDataSource(_ context.Context, ds DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, ds)
	return nil
}

func (m *MemoryStore) SaveDataSource(_ context.Context, ds DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == ds.ID {
			m.sources[i] = ds
			return nil
		}
	}
	return fmt.Errorf("%w: data source %s", ErrNotFound, ds.ID)
}

func (m *MemoryStore) ListSavedQueries(context.Context) ([]SavedQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SavedQuery(nil), m.queries...), nil
}

func (m *MemoryStore) CreateSavedQuery(_ context.Context, q SavedQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return nil
}

func (m *MemoryStore) AppendAuditLog(_ context.Context, entry AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// RecentAuditLogs returns up to limit entries, newest first.
func (m *MemoryStore) RecentAuditLogs(_ context.Context, limit int) ([]AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditLog, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.logs[i])
	}
	return out, nil
}
