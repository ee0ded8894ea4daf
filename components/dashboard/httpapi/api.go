package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/components/dashboard/queries"
)

// ViewerFunc extracts the viewer from a request.
type ViewerFunc func(*http.Request) dashboard.ViewerContext

// Handlers exposes the executor over net/http.
type Handlers struct {
	Executor Executor
	Viewer   ViewerFunc
	// Broadcast, when set, serves dashboard events on /events.
	Broadcast *dashboard.BroadcastHook
	// EmbedBaseURL prefixes the iframe source of embed snippets.
	EmbedBaseURL string
}

// Mount registers every endpoint on mux.
func (h *Handlers) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /workspaces", h.HandleWorkspaces)
	mux.HandleFunc("POST /workspaces", h.HandleAddWorkspace)
	mux.HandleFunc("DELETE /workspaces/{id}", h.HandleDeleteWorkspace)
	mux.HandleFunc("GET /workspaces/{id}/dashboards", h.HandleDashboards)
	mux.HandleFunc("GET /workspaces/{id}/sources", h.HandleDataSources)
	mux.HandleFunc("GET /workspaces/{id}/queries", h.HandleSavedQueries)

	mux.HandleFunc("POST /dashboards", h.HandleAddDashboard)
	mux.HandleFunc("GET /dashboards/{id}", h.HandleView)
	mux.HandleFunc("POST /dashboards/{id}/view", h.HandleView)
	mux.HandleFunc("POST /dashboards/{id}/rename", h.HandleRenameDashboard)
	mux.HandleFunc("DELETE /dashboards/{id}", h.HandleDeleteDashboard)
	mux.HandleFunc("POST /dashboards/{id}/widgets", h.HandleSaveWidget)
	mux.HandleFunc("DELETE /dashboards/{id}/widgets/{widget}", h.HandleDeleteWidget)
	mux.HandleFunc("POST /dashboards/{id}/widgets/reorder", h.HandleReorderWidgets)
	mux.HandleFunc("POST /dashboards/{id}/widgets/move", h.HandleMoveWidget)
	mux.HandleFunc("POST /dashboards/{id}/widgets/{widget}/shift", h.HandleShiftWidget)
	mux.HandleFunc("POST /dashboards/{id}/widgets/{widget}/resize", h.HandleResizeWidget)
	mux.HandleFunc("POST /dashboards/{id}/widgets/{widget}/export", h.HandleExportWidget)
	mux.HandleFunc("GET /dashboards/{id}/widgets/{widget}/rows/{index}", h.HandleDrillDown)
	mux.HandleFunc("POST /dashboards/{id}/widgets/{widget}/rows/{index}", h.HandleDrillDown)
	mux.HandleFunc("POST /dashboards/{id}/filters", h.HandleAddFilter)
	mux.HandleFunc("DELETE /dashboards/{id}/filters/{filter}", h.HandleRemoveFilter)

	mux.HandleFunc("POST /sources", h.HandleAddDataSource)
	mux.HandleFunc("POST /sources/{id}/schedule", h.HandleUpdateSchedule)
	mux.HandleFunc("POST /sources/{id}/refresh", h.HandleRefreshDataSource)
	mux.HandleFunc("POST /queries", h.HandleSaveQuery)
	mux.HandleFunc("GET /audit", h.HandleAuditLogs)
	mux.HandleFunc("POST /preview", h.HandlePreview)
	mux.HandleFunc("GET /dashboards/{id}/embed", h.HandleEmbed)
	if h.Broadcast != nil {
		mux.HandleFunc("GET /events", h.Broadcast.ServeWebSocket)
		mux.HandleFunc("GET /events/stream", h.Broadcast.ServeSSE)
	}
}

func (h *Handlers) HandleWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := h.Executor.Workspaces(r.Context())
	respond(w, http.StatusOK, list, err)
}

func (h *Handlers) HandleAddWorkspace(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddWorkspaceRequest
	if !decode(w, r, &payload) {
		return
	}
	ws, err := h.Executor.AddWorkspace(r.Context(), payload)
	respond(w, http.StatusCreated, ws, err)
}

func (h *Handlers) HandleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	req := dashboard.DeleteWorkspaceRequest{WorkspaceID: r.PathValue("id"), Confirmed: confirmed(r)}
	respondEmpty(w, h.Executor.DeleteWorkspace(r.Context(), req))
}

func (h *Handlers) HandleDashboards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Executor.Dashboards(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, list, err)
}

func (h *Handlers) HandleAddDashboard(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddDashboardRequest
	if !decode(w, r, &payload) {
		return
	}
	dash, err := h.Executor.AddDashboard(r.Context(), payload)
	respond(w, http.StatusCreated, dash, err)
}

// HandleView renders a dashboard. POST bodies carry live filter values.
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	input := queries.DashboardViewInput{DashboardID: r.PathValue("id"), Viewer: h.viewer(r)}
	if r.Method == http.MethodPost {
		values, ok := decodeFilters(w, r)
		if !ok {
			return
		}
		input.Filters = values
	}
	view, err := h.Executor.View(r.Context(), input)
	respond(w, http.StatusOK, view, err)
}

func (h *Handlers) HandleRenameDashboard(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.RenameDashboardRequest
	payload.DashboardID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.RenameDashboard(r.Context(), payload))
}

func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	req := dashboard.DeleteDashboardRequest{DashboardID: r.PathValue("id"), Confirmed: confirmed(r)}
	respondEmpty(w, h.Executor.DeleteDashboard(r.Context(), req))
}

func (h *Handlers) HandleSaveWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.SaveWidgetRequest
	payload.DashboardID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	if err := h.Executor.SaveWidget(r.Context(), payload); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	req := dashboard.DeleteWidgetRequest{
		DashboardID: r.PathValue("id"),
		WidgetID:    r.PathValue("widget"),
		Confirmed:   confirmed(r),
	}
	respondEmpty(w, h.Executor.DeleteWidget(r.Context(), req))
}

func (h *Handlers) HandleReorderWidgets(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.ReorderWidgetsRequest
	payload.DashboardID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.ReorderWidgets(r.Context(), payload))
}

func (h *Handlers) HandleMoveWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.MoveWidgetRequest
	payload.DashboardID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.MoveWidget(r.Context(), payload))
}

func (h *Handlers) HandleShiftWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.ShiftWidgetRequest
	payload.DashboardID = r.PathValue("id")
	payload.WidgetID = r.PathValue("widget")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.ShiftWidget(r.Context(), payload))
}

func (h *Handlers) HandleResizeWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.ResizeWidgetRequest
	payload.DashboardID = r.PathValue("id")
	payload.WidgetID = r.PathValue("widget")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.ResizeWidget(r.Context(), payload))
}

// HandleExportWidget streams the filtered widget rows as a CSV attachment.
func (h *Handlers) HandleExportWidget(w http.ResponseWriter, r *http.Request) {
	values, ok := decodeFilters(w, r)
	if !ok {
		return
	}
	file, err := h.Executor.Export(r.Context(), queries.ExportWidgetInput{
		DashboardID: r.PathValue("id"),
		WidgetID:    r.PathValue("widget"),
		Filters:     values,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

// HandleDrillDown returns the row behind one rendered data point. POST bodies
// carry live filter values so the index matches what the viewer sees.
func (h *Handlers) HandleDrillDown(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		respondError(w, errors.Join(ErrBadRequest, errors.New("row index must be a non-negative integer")))
		return
	}
	input := queries.DrillDownInput{
		DashboardID: r.PathValue("id"),
		WidgetID:    r.PathValue("widget"),
		Index:       index,
	}
	if r.Method == http.MethodPost {
		values, ok := decodeFilters(w, r)
		if !ok {
			return
		}
		input.Filters = values
	}
	row, err := h.Executor.DrillDown(r.Context(), input)
	respond(w, http.StatusOK, row, err)
}

func (h *Handlers) HandleAddFilter(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddFilterRequest
	payload.DashboardID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.AddFilter(r.Context(), payload))
}

func (h *Handlers) HandleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	req := dashboard.RemoveFilterRequest{DashboardID: r.PathValue("id"), FilterID: r.PathValue("filter")}
	respondEmpty(w, h.Executor.RemoveFilter(r.Context(), req))
}

func (h *Handlers) HandleDataSources(w http.ResponseWriter, r *http.Request) {
	list, err := h.Executor.DataSources(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, list, err)
}

func (h *Handlers) HandleAddDataSource(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddDataSourceRequest
	if !decode(w, r, &payload) {
		return
	}
	ds, err := h.Executor.AddDataSource(r.Context(), payload)
	respond(w, http.StatusCreated, ds, err)
}

func (h *Handlers) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.UpdateScheduleRequest
	payload.DataSourceID = r.PathValue("id")
	if !decode(w, r, &payload) {
		return
	}
	respondEmpty(w, h.Executor.UpdateSchedule(r.Context(), payload))
}

func (h *Handlers) HandleRefreshDataSource(w http.ResponseWriter, r *http.Request) {
	if err := h.Executor.RefreshDataSource(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleSavedQueries(w http.ResponseWriter, r *http.Request) {
	list, err := h.Executor.SavedQueries(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, list, err)
}

func (h *Handlers) HandleSaveQuery(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.SaveQueryRequest
	if !decode(w, r, &payload) {
		return
	}
	q, err := h.Executor.SaveQuery(r.Context(), payload)
	respond(w, http.StatusCreated, q, err)
}

func (h *Handlers) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, errors.Join(ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	logs, err := h.Executor.AuditLogs(r.Context(), limit)
	respond(w, http.StatusOK, logs, err)
}

func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.PreviewRequest
	if !decode(w, r, &payload) {
		return
	}
	out, err := h.Executor.Preview(r.Context(), payload)
	respond(w, http.StatusOK, out, err)
}

func (h *Handlers) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	code := dashboard.EmbedCode(h.EmbedBaseURL, r.PathValue("id"))
	respond(w, http.StatusOK, map[string]string{"embed_code": code}, nil)
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer != nil {
		return h.Viewer(r)
	}
	return dashboard.ViewerContext{UserID: r.Header.Get("X-User-ID")}
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirmed"))
	return ok
}

// decode reads a JSON body into v, keeping path values already set, and
// validates it. It writes the error response itself.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, errors.Join(ErrBadRequest, err))
		return false
	}
	if err := Validate(v); err != nil {
		respondError(w, err)
		return false
	}
	return true
}

func decodeFilters(w http.ResponseWriter, r *http.Request) (dashboard.FilterValues, bool) {
	var values dashboard.FilterValues
	if r.Body == nil {
		return values, true
	}
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, errors.Join(ErrBadRequest, err))
		return nil, false
	}
	return values, true
}

func respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// WithActivity stores the acting user from the X-User-ID and X-User-Name
// headers on the request context, so audit entries name them.
func WithActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, name := r.Header.Get("X-User-ID"), r.Header.Get("X-User-Name")
		if id != "" || name != "" {
			ctx := dashboard.ContextWithActivity(r.Context(), dashboard.ActivityContext{UserID: id, ActorName: name})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
