package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditLogLimit = 50

// Audit actions recorded by the service.
const (
	ActionCreateWorkspace    = "Create Workspace"
	ActionDeleteWorkspace    = "Delete Workspace"
	ActionCreateDashboard    = "Create Dashboard"
	ActionUpdateDashboard    = "Update Dashboard"
	ActionDeleteDashboard    = "Delete Dashboard"
	ActionAddDataSource      = "Add Data Source"
	ActionSaveQuery          = "Save Query"
	ActionUpdateSchedule     = "Update Schedule"
	ActionRefreshSuccess     = "Data Refresh Success"
	ActionRefreshFailed      = "Data Refresh Failed"
	defaultSavedQueryDetails = "Saved Query"
	defaultAuditUser         = "System"
)

var (
	ErrNotFound             = errors.New("dashboard: not found")
	ErrConfirmationRequired = errors.New("dashboard: deletion requires confirmation")
	ErrPersistFailed        = errors.New("dashboard: persist failed")
	ErrRefreshInProgress    = errors.New("dashboard: refresh already in progress")
	ErrInvalidWidget        = errors.New("dashboard: invalid widget")
	ErrNotStarted           = errors.New("dashboard: service not started")

	errMissingStore = errors.New("dashboard: store not configured")
)

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	Store           Store
	Providers       ProviderRegistry
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	Syncer          Syncer
	Logger          *zap.Logger
	Clock           func() time.Time
	IDGenerator     func() string
}

// Service owns the local state of one operator session. Mutations are applied
// locally first, then persisted; a failed persist is rolled back. Mutations
// run one at a time so a revert never undoes a later write.
type Service struct {
	opts   Options
	logger *zap.Logger

	// writeMu serializes mutations from apply through persist and revert;
	// mu alone guards reads of state.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   state
	started bool
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	if opts.Syncer == nil {
		opts.Syncer = DelaySyncer{Delay: DefaultSyncDelay}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = uuid.NewString
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{opts: opts, logger: opts.Logger.Named("dashboard")}
}

// Start loads every collection from the store. The audit log is loaded newest
// first and capped at 50 entries.
func (s *Service) Start(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	var loaded state
	if loaded.workspaces, err = store.ListWorkspaces(ctx); err != nil {
		return fmt.Errorf("dashboard: load workspaces: %w", err)
	}
	if loaded.dashboards, err = store.ListDashboards(ctx); err != nil {
		return fmt.Errorf("dashboard: load dashboards: %w", err)
	}
	if loaded.sources, err = store.ListDataSources(ctx); err != nil {
		return fmt.Errorf("dashboard: load data sources: %w", err)
	}
	if loaded.queries, err = store.ListSavedQueries(ctx); err != nil {
		return fmt.Errorf("dashboard: load saved queries: %w", err)
	}
	if loaded.logs, err = store.RecentAuditLogs(ctx, auditLogLimit); err != nil {
		return fmt.Errorf("dashboard: load audit log: %w", err)
	}
	// no refresh can be in flight for a freshly loaded session
	for i := range loaded.sources {
		loaded.sources[i].Schedule.IsSyncing = false
	}

	s.mu.Lock()
	s.state = loaded
	s.started = true
	s.mu.Unlock()

	s.logger.Info("session started",
		zap.Int("workspaces", len(loaded.workspaces)),
		zap.Int("dashboards", len(loaded.dashboards)),
		zap.Int("data_sources", len(loaded.sources)))
	s.recordTelemetry(ctx, "dashboard.session.start", map[string]any{
		"dashboards": len(loaded.dashboards),
	})
	return nil
}

// Close ends the session and drops local state.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{}
	s.started = false
	return nil
}

// Started reports whether Start completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Workspaces lists workspaces in load order.
func (s *Service) Workspaces() []Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Workspace(nil), s.state.workspaces...)
}

// Dashboards lists dashboards, optionally restricted to a workspace.
func (s *Service) Dashboards(workspaceID string) []Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Dashboard
	for _, d := range s.state.dashboards {
		if workspaceID == "" || d.WorkspaceID == workspaceID {
			out = append(out, d.clone())
		}
	}
	return out
}

// Dashboard returns a dashboard by id.
func (s *Service) Dashboard(id string) (Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.dashboardIndex(id)
	if idx < 0 {
		return Dashboard{}, fmt.Errorf("%w: dashboard %s", ErrNotFound, id)
	}
	return s.state.dashboards[idx].clone(), nil
}

// DataSources lists data sources, optionally restricted to a workspace.
func (s *Service) DataSources(workspaceID string) []DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DataSource
	for _, ds := range s.state.sources {
		if workspaceID == "" || ds.WorkspaceID == workspaceID {
			out = append(out, ds)
		}
	}
	return out
}

// DataSource returns a data source by id.
func (s *Service) DataSource(id string) (DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.sourceIndex(id)
	if idx < 0 {
		return DataSource{}, fmt.Errorf("%w: data source %s", ErrNotFound, id)
	}
	return s.state.sources[idx], nil
}

// SavedQueries lists saved queries, optionally restricted to a workspace.
func (s *Service) SavedQueries(workspaceID string) []SavedQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SavedQuery
	for _, q := range s.state.queries {
		if workspaceID == "" || q.WorkspaceID == workspaceID {
			out = append(out, q)
		}
	}
	return out
}

// SavedQuery returns a saved query by id.
func (s *Service) SavedQuery(id string) (SavedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.queryIndex(id)
	if idx < 0 {
		return SavedQuery{}, fmt.Errorf("%w: saved query %s", ErrNotFound, id)
	}
	return s.state.queries[idx], nil
}

// AuditLogs returns the local audit trail, newest first.
func (s *Service) AuditLogs() []AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditLog(nil), s.state.logs...)
}

// AddLog records an audit entry for the acting user. The entry is shown
// immediately; a failed append is logged and not retried.
func (s *Service) AddLog(ctx context.Context, action, details string) {
	entry := AuditLog{
		ID:        s.opts.IDGenerator(),
		Timestamp: s.now(),
		User:      actorName(ctx),
		Action:    action,
		Details:   details,
	}
	s.mu.Lock()
	s.state.logs = append([]AuditLog{entry}, s.state.logs...)
	if len(s.state.logs) > auditLogLimit {
		s.state.logs = s.state.logs[:auditLogLimit]
	}
	s.mu.Unlock()
	if s.opts.Store == nil {
		return
	}
	if err := s.opts.Store.AppendAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

// AddWorkspace creates a workspace.
func (s *Service) AddWorkspace(ctx context.Context, req AddWorkspaceRequest) (Workspace, error) {
	store, err := s.store()
	if err != nil {
		return Workspace{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Workspace{}, errors.New("dashboard: workspace name is required")
	}
	owner := req.OwnerID
	if owner == "" {
		owner = activityContextFrom(ctx).UserID
	}
	ws := Workspace{ID: s.opts.IDGenerator(), Name: name, Description: req.Description, OwnerID: owner}
	err = s.execute(ctx, mutation{
		event: "dashboard.workspace.create",
		apply: func(st *state) (func(*state), error) {
			st.workspaces = append(st.workspaces, ws)
			return func(st *state) {
				st.workspaces = removeWhere(st.workspaces, func(w Workspace) bool { return w.ID == ws.ID })
			}, nil
		},
		persist: func(ctx context.Context) error { return store.CreateWorkspace(ctx, ws) },
		audit: func() (string, string) {
			return ActionCreateWorkspace, fmt.Sprintf("Created workspace %q", ws.Name)
		},
		notify: DashboardEvent{Reason: "workspace.created", WorkspaceID: ws.ID},
	})
	if err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// DeleteWorkspace removes a workspace with its dashboards, data sources and
// saved queries.
func (s *Service) DeleteWorkspace(ctx context.Context, req DeleteWorkspaceRequest) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	if !req.Confirmed {
		return ErrConfirmationRequired
	}
	id := req.WorkspaceID
	return s.execute(ctx, mutation{
		event: "dashboard.workspace.delete",
		apply: func(st *state) (func(*state), error) {
			idx := st.workspaceIndex(id)
			if idx < 0 {
				return nil, fmt.Errorf("%w: workspace %s", ErrNotFound, id)
			}
			prev := state{
				workspaces: append([]Workspace(nil), st.workspaces...),
				dashboards: append([]Dashboard(nil), st.dashboards...),
				sources:    append([]DataSource(nil), st.sources...),
				queries:    append([]SavedQuery(nil), st.queries...),
			}
			st.workspaces = removeWhere(st.workspaces, func(w Workspace) bool { return w.ID == id })
			st.dashboards = removeWhere(st.dashboards, func(d Dashboard) bool { return d.WorkspaceID == id })
			st.sources = removeWhere(st.sources, func(ds DataSource) bool { return ds.WorkspaceID == id })
			st.queries = removeWhere(st.queries, func(q SavedQuery) bool { return q.WorkspaceID == id })
			return func(st *state) {
				st.workspaces = prev.workspaces
				st.dashboards = prev.dashboards
				st.sources = prev.sources
				st.queries = prev.queries
			}, nil
		},
		persist: func(ctx context.Context) error { return store.DeleteWorkspace(ctx, id) },
		audit: func() (string, string) {
			return ActionDeleteWorkspace, fmt.Sprintf("Deleted workspace ID %s", id)
		},
		notify: DashboardEvent{Reason: "workspace.deleted", WorkspaceID: id},
	})
}

// AddDashboard creates an empty dashboard in a workspace.
func (s *Service) AddDashboard(ctx context.Context, req AddDashboardRequest) (Dashboard, error) {
	store, err := s.store()
	if err != nil {
		return Dashboard{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Dashboard{}, errors.New("dashboard: dashboard name is required")
	}
	dash := Dashboard{
		ID:          s.opts.IDGenerator(),
		WorkspaceID: req.WorkspaceID,
		Name:        name,
		Description: req.Description,
		Widgets:     []Widget{},
		Filters:     append([]DashboardFilter{}, req.Filters...),
	}
	err = s.execute(ctx, mutation{
		event: "dashboard.create",
		apply: func(st *state) (func(*state), error) {
			if st.workspaceIndex(req.WorkspaceID) < 0 {
				return nil, fmt.Errorf("%w: workspace %s", ErrNotFound, req.WorkspaceID)
			}
			st.dashboards = append(st.dashboards, dash)
			return func(st *state) {
				st.dashboards = removeWhere(st.dashboards, func(d Dashboard) bool { return d.ID == dash.ID })
			}, nil
		},
		persist: func(ctx context.Context) error { return store.CreateDashboard(ctx, dash) },
		audit: func() (string, string) {
			return ActionCreateDashboard, fmt.Sprintf("Created dashboard %q", dash.Name)
		},
		notify: DashboardEvent{Reason: "dashboard.created", WorkspaceID: dash.WorkspaceID, DashboardID: dash.ID},
	})
	if err != nil {
		return Dashboard{}, err
	}
	return dash.clone(), nil
}

// RenameDashboard updates the dashboard name and description.
func (s *Service) RenameDashboard(ctx context.Context, req RenameDashboardRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.New("dashboard: dashboard name is required")
	}
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.rename", DashboardEvent{Reason: "dashboard.updated"}, func(d *Dashboard) error {
		d.Name = name
		d.Description = req.Description
		return nil
	})
}

// DeleteDashboard removes a dashboard.
func (s *Service) DeleteDashboard(ctx context.Context, req DeleteDashboardRequest) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	if !req.Confirmed {
		return ErrConfirmationRequired
	}
	id := req.DashboardID
	return s.execute(ctx, mutation{
		event: "dashboard.delete",
		apply: func(st *state) (func(*state), error) {
			idx := st.dashboardIndex(id)
			if idx < 0 {
				return nil, fmt.Errorf("%w: dashboard %s", ErrNotFound, id)
			}
			prev := st.dashboards[idx]
			st.dashboards = removeWhere(st.dashboards, func(d Dashboard) bool { return d.ID == id })
			return func(st *state) {
				st.dashboards = insertAt(st.dashboards, idx, prev)
			}, nil
		},
		persist: func(ctx context.Context) error { return store.DeleteDashboard(ctx, id) },
		audit: func() (string, string) {
			return ActionDeleteDashboard, fmt.Sprintf("Deleted dashboard ID %s", id)
		},
		notify: DashboardEvent{Reason: "dashboard.deleted", DashboardID: id},
	})
}

// SaveWidget inserts a widget or replaces the one with the same id. The
// configuration is validated against the chart type's schema.
func (s *Service) SaveWidget(ctx context.Context, req SaveWidgetRequest) error {
	w := req.Widget.clone()
	if err := s.validateWidget(&w); err != nil {
		return err
	}
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.save",
		DashboardEvent{Reason: "widget.saved", WidgetID: w.ID},
		func(d *Dashboard) error {
			for _, f := range req.Filters {
				d.Filters = ensureFilter(d.Filters, f)
			}
			if idx := widgetIndex(d.Widgets, w.ID); idx >= 0 {
				d.Widgets[idx] = w
			} else {
				d.Widgets = append(d.Widgets, w)
			}
			return nil
		})
}

// DeleteWidget removes a widget from its dashboard.
func (s *Service) DeleteWidget(ctx context.Context, req DeleteWidgetRequest) error {
	if !req.Confirmed {
		return ErrConfirmationRequired
	}
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.remove",
		DashboardEvent{Reason: "widget.deleted", WidgetID: req.WidgetID},
		func(d *Dashboard) error {
			if widgetIndex(d.Widgets, req.WidgetID) < 0 {
				return fmt.Errorf("%w: widget %s", ErrNotFound, req.WidgetID)
			}
			d.Widgets = removeWhere(d.Widgets, func(w Widget) bool { return w.ID == req.WidgetID })
			return nil
		})
}

// ReorderWidgets applies an explicit widget order.
func (s *Service) ReorderWidgets(ctx context.Context, req ReorderWidgetsRequest) error {
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.reorder",
		DashboardEvent{Reason: "widget.reordered"},
		func(d *Dashboard) error {
			d.Widgets = applyOrderOverride(d.Widgets, req.WidgetIDs)
			return nil
		})
}

// MoveWidget drags a widget from one index to another.
func (s *Service) MoveWidget(ctx context.Context, req MoveWidgetRequest) error {
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.move",
		DashboardEvent{Reason: "widget.reordered"},
		func(d *Dashboard) error {
			moved, ok := moveWidget(d.Widgets, req.From, req.To)
			if !ok {
				return fmt.Errorf("%w: cannot move widget %d to %d", ErrInvalidWidget, req.From, req.To)
			}
			d.Widgets = moved
			return nil
		})
}

// ShiftWidget swaps a widget with its neighbour above or below.
func (s *Service) ShiftWidget(ctx context.Context, req ShiftWidgetRequest) error {
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.shift",
		DashboardEvent{Reason: "widget.reordered", WidgetID: req.WidgetID},
		func(d *Dashboard) error {
			idx := widgetIndex(d.Widgets, req.WidgetID)
			if idx < 0 {
				return fmt.Errorf("%w: widget %s", ErrNotFound, req.WidgetID)
			}
			shifted, ok := shiftWidget(d.Widgets, idx, req.Direction)
			if !ok {
				return fmt.Errorf("%w: cannot shift widget %s %s", ErrInvalidWidget, req.WidgetID, req.Direction)
			}
			d.Widgets = shifted
			return nil
		})
}

// ResizeWidget changes the widget footprint.
func (s *Service) ResizeWidget(ctx context.Context, req ResizeWidgetRequest) error {
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.widget.resize",
		DashboardEvent{Reason: "widget.resized", WidgetID: req.WidgetID},
		func(d *Dashboard) error {
			idx := widgetIndex(d.Widgets, req.WidgetID)
			if idx < 0 {
				return fmt.Errorf("%w: widget %s", ErrNotFound, req.WidgetID)
			}
			if req.Width != nil {
				d.Widgets[idx].Layout.Width = clampWidth(*req.Width)
			}
			if req.Height != nil {
				d.Widgets[idx].Layout.Height = clampHeight(*req.Height)
			}
			return nil
		})
}

// AddFilter adds a dashboard filter unless one with the same id exists.
func (s *Service) AddFilter(ctx context.Context, req AddFilterRequest) error {
	if req.Filter.ID == "" {
		return errors.New("dashboard: filter id is required")
	}
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.filter.add",
		DashboardEvent{Reason: "filter.added"},
		func(d *Dashboard) error {
			d.Filters = ensureFilter(d.Filters, req.Filter)
			return nil
		})
}

// RemoveFilter drops a dashboard filter and clears widget mappings to it.
func (s *Service) RemoveFilter(ctx context.Context, req RemoveFilterRequest) error {
	return s.updateDashboard(ctx, req.DashboardID, "dashboard.filter.remove",
		DashboardEvent{Reason: "filter.removed"},
		func(d *Dashboard) error {
			d.Filters = removeWhere(d.Filters, func(f DashboardFilter) bool { return f.ID == req.FilterID })
			for i := range d.Widgets {
				delete(d.Widgets[i].Config.FilterMapping, req.FilterID)
			}
			return nil
		})
}

// ViewWidgets replays the live filter values over each saved widget snapshot.
// Date presets are resolved against the service clock first.
func (s *Service) ViewWidgets(dashboardID string, values FilterValues) ([]Widget, error) {
	dash, err := s.Dashboard(dashboardID)
	if err != nil {
		return nil, err
	}
	values = values.ResolvePresets(s.now())
	out := make([]Widget, len(dash.Widgets))
	for i, w := range dash.Widgets {
		w.Data = ApplyFilters(w.Data, w.Config.FilterMapping, dash.Filters, values)
		out[i] = w
	}
	return out, nil
}

// ExportWidget renders the filtered rows of a widget as CSV.
func (s *Service) ExportWidget(dashboardID, widgetID string, values FilterValues) (string, []byte, error) {
	widgets, err := s.ViewWidgets(dashboardID, values)
	if err != nil {
		return "", nil, err
	}
	idx := widgetIndex(widgets, widgetID)
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: widget %s", ErrNotFound, widgetID)
	}
	return ExportCSV(widgets[idx])
}

// Widget returns a saved widget.
func (s *Service) Widget(dashboardID, widgetID string) (Widget, error) {
	dash, err := s.Dashboard(dashboardID)
	if err != nil {
		return Widget{}, err
	}
	idx := widgetIndex(dash.Widgets, widgetID)
	if idx < 0 {
		return Widget{}, fmt.Errorf("%w: widget %s", ErrNotFound, widgetID)
	}
	return dash.Widgets[idx], nil
}

// DrillDown returns the row behind the index-th data point of a widget as it
// renders under values, falling back to each filter's default.
func (s *Service) DrillDown(dashboardID, widgetID string, index int, values FilterValues) (Row, error) {
	dash, err := s.Dashboard(dashboardID)
	if err != nil {
		return nil, err
	}
	live := DefaultFilterValues(dash.Filters)
	for id, v := range values {
		live[id] = v
	}
	widgets, err := s.ViewWidgets(dashboardID, live)
	if err != nil {
		return nil, err
	}
	idx := widgetIndex(widgets, widgetID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: widget %s", ErrNotFound, widgetID)
	}
	row, ok := widgets[idx].DrillDown(index)
	if !ok {
		return nil, fmt.Errorf("%w: row %d of widget %s", ErrNotFound, index, widgetID)
	}
	return row, nil
}

// AddDataSource registers a connected data source with a manual schedule.
func (s *Service) AddDataSource(ctx context.Context, req AddDataSourceRequest) (DataSource, error) {
	store, err := s.store()
	if err != nil {
		return DataSource{}, err
	}
	conn := req.Connection
	if conn.Type == "" {
		conn.Type = req.Type
	}
	if conn.Type != req.Type {
		return DataSource{}, fmt.Errorf("%w: settings tagged %s for a %s source", ErrInvalidConnection, conn.Type, req.Type)
	}
	if err := conn.Validate(); err != nil {
		return DataSource{}, err
	}
	ds := DataSource{
		ID:          s.opts.IDGenerator(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Type:        req.Type,
		Connection:  conn,
		Status:      StatusConnected,
		Schedule:    Schedule{Mode: ScheduleManual},
	}
	err = s.execute(ctx, mutation{
		event: "dashboard.source.add",
		apply: func(st *state) (func(*state), error) {
			if st.workspaceIndex(req.WorkspaceID) < 0 {
				return nil, fmt.Errorf("%w: workspace %s", ErrNotFound, req.WorkspaceID)
			}
			st.sources = append(st.sources, ds)
			return func(st *state) {
				st.sources = removeWhere(st.sources, func(d DataSource) bool { return d.ID == ds.ID })
			}, nil
		},
		persist: func(ctx context.Context) error { return store.CreateDataSource(ctx, ds) },
		audit: func() (string, string) {
			return ActionAddDataSource, fmt.Sprintf("Connected source %q", ds.Name)
		},
		notify: DashboardEvent{Reason: "source.added", WorkspaceID: ds.WorkspaceID, DataSourceID: ds.ID},
	})
	if err != nil {
		return DataSource{}, err
	}
	return ds, nil
}

// UpdateDataSourceSchedule replaces the schedule and recomputes NextSyncAt.
func (s *Service) UpdateDataSourceSchedule(ctx context.Context, req UpdateScheduleRequest) error {
	sched := Schedule{Mode: req.Mode, Interval: req.Interval}
	if err := sched.Validate(); err != nil {
		return err
	}
	if sched.Mode == ScheduleManual {
		sched.Interval = ""
	}
	now := s.now()
	return s.updateSource(ctx, req.DataSourceID, "dashboard.source.schedule",
		func(ds *DataSource) error {
			next := sched
			next.LastSyncedAt = ds.Schedule.LastSyncedAt
			next.IsSyncing = ds.Schedule.IsSyncing
			ds.Schedule = next.Rescheduled(now)
			return nil
		},
		func(DataSource) (string, string) {
			return ActionUpdateSchedule, fmt.Sprintf("Updated schedule for source %s", req.DataSourceID)
		})
}

// SaveQuery stores a SQL query in a workspace.
func (s *Service) SaveQuery(ctx context.Context, req SaveQueryRequest) (SavedQuery, error) {
	store, err := s.store()
	if err != nil {
		return SavedQuery{}, err
	}
	if strings.TrimSpace(req.SQL) == "" {
		return SavedQuery{}, errors.New("dashboard: query sql is required")
	}
	desc := req.Description
	if desc == "" {
		desc = defaultSavedQueryDetails
	}
	q := SavedQuery{
		ID:           s.opts.IDGenerator(),
		WorkspaceID:  req.WorkspaceID,
		Name:         req.Name,
		SQL:          req.SQL,
		Description:  desc,
		DataSourceID: req.DataSourceID,
	}
	err = s.execute(ctx, mutation{
		event: "dashboard.query.save",
		apply: func(st *state) (func(*state), error) {
			st.queries = append(st.queries, q)
			return func(st *state) {
				st.queries = removeWhere(st.queries, func(x SavedQuery) bool { return x.ID == q.ID })
			}, nil
		},
		persist: func(ctx context.Context) error { return store.CreateSavedQuery(ctx, q) },
		audit: func() (string, string) {
			return ActionSaveQuery, fmt.Sprintf("Saved query %q", q.Name)
		},
		notify: DashboardEvent{Reason: "query.saved", WorkspaceID: q.WorkspaceID},
	})
	if err != nil {
		return SavedQuery{}, err
	}
	return q, nil
}

// NotifyDashboardUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyDashboardUpdated(ctx context.Context, event DashboardEvent) error {
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.event", eventPayload(event))
	return nil
}

// Providers exposes the widget registry used to render and validate widgets.
func (s *Service) Providers() ProviderRegistry {
	return s.opts.Providers
}

func (s *Service) updateDashboard(ctx context.Context, id, event string, notify DashboardEvent, fn func(*Dashboard) error) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	var updated Dashboard
	notify.DashboardID = id
	return s.execute(ctx, mutation{
		event: event,
		apply: func(st *state) (func(*state), error) {
			idx := st.dashboardIndex(id)
			if idx < 0 {
				return nil, fmt.Errorf("%w: dashboard %s", ErrNotFound, id)
			}
			next := st.dashboards[idx].clone()
			if err := fn(&next); err != nil {
				return nil, err
			}
			updated = next
			return st.replaceDashboard(next), nil
		},
		persist: func(ctx context.Context) error { return store.SaveDashboard(ctx, updated) },
		audit: func() (string, string) {
			return ActionUpdateDashboard, fmt.Sprintf("Updated dashboard %q", updated.Name)
		},
		notify: notify,
	})
}

func (s *Service) updateSource(ctx context.Context, id, event string, fn func(*DataSource) error, audit func(DataSource) (string, string)) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	var updated DataSource
	m := mutation{
		event: event,
		apply: func(st *state) (func(*state), error) {
			idx := st.sourceIndex(id)
			if idx < 0 {
				return nil, fmt.Errorf("%w: data source %s", ErrNotFound, id)
			}
			next := st.sources[idx]
			if err := fn(&next); err != nil {
				return nil, err
			}
			updated = next
			return st.replaceSource(next), nil
		},
		persist: func(ctx context.Context) error { return store.SaveDataSource(ctx, updated) },
		notify:  DashboardEvent{Reason: "source.updated", DataSourceID: id},
	}
	if audit != nil {
		m.audit = func() (string, string) { return audit(updated) }
	}
	return s.execute(ctx, m)
}

func (s *Service) validateWidget(w *Widget) error {
	if !w.Type.Valid() {
		return fmt.Errorf("%w: unknown chart type %q", ErrInvalidWidget, w.Type)
	}
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrIncompleteConfiguration)
	}
	if w.ID == "" {
		w.ID = "w-" + s.opts.IDGenerator()
	}
	if w.Layout.Width == 0 && w.Layout.Height == 0 {
		w.Layout = defaultLayout(w.Type)
	}
	w.Layout.Width = clampWidth(w.Layout.Width)
	w.Layout.Height = clampHeight(w.Layout.Height)
	if w.Data.Rows == nil {
		w.Data.Rows = []Row{}
	}
	return s.validateConfiguration(w.Type, w.Config)
}

func (s *Service) validateConfiguration(chartType ChartType, config Configuration) error {
	if s.opts.ConfigValidator == nil || s.opts.Providers == nil {
		return nil
	}
	def, ok := s.opts.Providers.Definition(string(chartType))
	if !ok {
		return nil
	}
	if err := s.opts.ConfigValidator.Validate(def, config); err != nil {
		return fmt.Errorf("%w: %w", ErrIncompleteConfiguration, err)
	}
	return nil
}

func (s *Service) store() (Store, error) {
	if s.opts.Store == nil {
		return nil, errMissingStore
	}
	return s.opts.Store, nil
}

func (s *Service) now() time.Time {
	return s.opts.Clock()
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func (s *Service) publish(ctx context.Context, event DashboardEvent) {
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		s.logger.Warn("refresh hook failed", zap.String("reason", event.Reason), zap.Error(err))
	}
}

func ensureFilter(filters []DashboardFilter, f DashboardFilter) []DashboardFilter {
	for _, existing := range filters {
		if existing.ID == f.ID {
			return filters
		}
	}
	return append(filters, f)
}

func actorName(ctx context.Context) string {
	meta := activityContextFrom(ctx)
	switch {
	case meta.ActorName != "":
		return meta.ActorName
	case meta.UserID != "":
		return meta.UserID
	case meta.ActorID != "":
		return meta.ActorID
	}
	return defaultAuditUser
}

type noopRefreshHook struct{}

func (noopRefreshHook) DashboardUpdated(context.Context, DashboardEvent) error {
	return nil
}
