package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// state is the canonical local copy of everything the session can see.
type state struct {
	workspaces []Workspace
	dashboards []Dashboard
	sources    []DataSource
	queries    []SavedQuery
	logs       []AuditLog
}

// mutation is a reversible command. apply changes local state and returns
// the compensating revert; persist writes the change to the store.
type mutation struct {
	event   string
	apply   func(st *state) (revert func(st *state), err error)
	persist func(ctx context.Context) error
	audit   func() (action, details string)
	notify  DashboardEvent
}

// execute applies m locally, persists it and appends the audit entry. A
// failed persist runs the revert and surfaces the error.
func (s *Service) execute(ctx context.Context, m mutation) error {
	s.writeMu.Lock()
	s.mu.Lock()
	revert, err := m.apply(&s.state)
	s.mu.Unlock()
	if err != nil {
		s.writeMu.Unlock()
		return err
	}
	persistErr := m.persist(ctx)
	if persistErr != nil && revert != nil {
		s.mu.Lock()
		revert(&s.state)
		s.mu.Unlock()
	}
	s.writeMu.Unlock()

	if persistErr != nil {
		s.logger.Warn("persist failed, local change rolled back",
			zap.String("event", m.event),
			zap.Error(persistErr))
		s.recordTelemetry(ctx, "dashboard.mutation.rollback", map[string]any{
			"event": m.event,
			"error": persistErr.Error(),
		})
		rollback := m.notify
		rollback.Reason = "rollback"
		rollback.Error = persistErr.Error()
		s.publish(ctx, rollback)
		return fmt.Errorf("%w: %s: %w", ErrPersistFailed, m.event, persistErr)
	}

	if m.audit != nil {
		action, details := m.audit()
		s.AddLog(ctx, action, details)
	}
	s.recordTelemetry(ctx, m.event, eventPayload(m.notify))
	s.publish(ctx, m.notify)
	return nil
}

func eventPayload(e DashboardEvent) map[string]any {
	payload := map[string]any{"reason": e.Reason}
	if e.WorkspaceID != "" {
		payload["workspace_id"] = e.WorkspaceID
	}
	if e.DashboardID != "" {
		payload["dashboard_id"] = e.DashboardID
	}
	if e.WidgetID != "" {
		payload["widget_id"] = e.WidgetID
	}
	if e.DataSourceID != "" {
		payload["data_source_id"] = e.DataSourceID
	}
	return payload
}

func (st *state) dashboardIndex(id string) int {
	for i, d := range st.dashboards {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) sourceIndex(id string) int {
	for i, ds := range st.sources {
		if ds.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) workspaceIndex(id string) int {
	for i, ws := range st.workspaces {
		if ws.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) queryIndex(id string) int {
	for i, q := range st.queries {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// replaceDashboard swaps in next and returns a revert restoring prev.
func (st *state) replaceDashboard(next Dashboard) func(*state) {
	idx := st.dashboardIndex(next.ID)
	if idx < 0 {
		return nil
	}
	prev := st.dashboards[idx]
	st.dashboards[idx] = next
	return func(st *state) {
		if i := st.dashboardIndex(prev.ID); i >= 0 {
			st.dashboards[i] = prev
		}
	}
}

func (st *state) replaceSource(next DataSource) func(*state) {
	idx := st.sourceIndex(next.ID)
	if idx < 0 {
		return nil
	}
	prev := st.sources[idx]
	st.sources[idx] = next
	return func(st *state) {
		if i := st.sourceIndex(prev.ID); i >= 0 {
			st.sources[i] = prev
		}
	}
}

func insertAt[T any](items []T, idx int, item T) []T {
	if idx < 0 || idx > len(items) {
		idx = len(items)
	}
	items = append(items, item)
	copy(items[idx+1:], items[idx:])
	items[idx] = item
	return items
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}

func (d Dashboard) clone() Dashboard {
	out := d
	out.Widgets = make([]Widget, len(d.Widgets))
	for i, w := range d.Widgets {
		out.Widgets[i] = w.clone()
	}
	out.Filters = append([]DashboardFilter(nil), d.Filters...)
	return out
}

func (w Widget) clone() Widget {
	out := w
	out.Config.DataKeys = append([]string(nil), w.Config.DataKeys...)
	out.Config.Colors = append([]string(nil), w.Config.Colors...)
	if w.Config.FilterMapping != nil {
		out.Config.FilterMapping = cloneMapping(w.Config.FilterMapping)
	}
	return out
}
