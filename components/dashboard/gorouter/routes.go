package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/components/dashboard/httpapi"
	"github.com/goliatone/go-insight/components/dashboard/queries"
)

// ViewerResolver converts a request into a dashboard.ViewerContext.
type ViewerResolver func(Request) dashboard.ViewerContext

// Config wires go-router with the dashboard executor and refresh hooks.
type Config struct {
	Routes         Registrar
	API            httpapi.Executor
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	// EmbedBaseURL prefixes the iframe source of embed snippets.
	EmbedBaseURL string
}

// Mount registers every dashboard route under basePath (default /insight).
func Mount[T any](r router.Router[T], basePath string, cfg Config) error {
	if r == nil {
		return errors.New("gorouter: router is required")
	}
	if basePath == "" {
		basePath = "/insight"
	}
	cfg.Routes = FromRouter(r.Group(basePath))
	return Register(cfg)
}

// Register mounts dashboard routes (JSON, CSV, WebSocket) on cfg.Routes.
func Register(cfg Config) error {
	if cfg.Routes == nil {
		return errors.New("gorouter: routes are required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: executor is required")
	}
	viewer := cfg.ViewerResolver
	if viewer == nil {
		viewer = defaultViewerResolver
	}
	api := cfg.API
	r := cfg.Routes

	r.Get("/workspaces", func(ctx Request) error {
		list, err := api.Workspaces(ctx.Context())
		return respond(ctx, http.StatusOK, list, err)
	})
	r.Post("/workspaces", func(ctx Request) error {
		var payload dashboard.AddWorkspaceRequest
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		ws, err := api.AddWorkspace(ctx.Context(), payload)
		return respond(ctx, http.StatusCreated, ws, err)
	})
	r.Delete("/workspaces/:id", func(ctx Request) error {
		err := api.DeleteWorkspace(ctx.Context(), dashboard.DeleteWorkspaceRequest{
			WorkspaceID: ctx.Param("id"),
			Confirmed:   confirmed(ctx),
		})
		return respondStatus(ctx, "deleted", err)
	})
	r.Get("/workspaces/:id/dashboards", func(ctx Request) error {
		list, err := api.Dashboards(ctx.Context(), ctx.Param("id"))
		return respond(ctx, http.StatusOK, list, err)
	})
	r.Get("/workspaces/:id/sources", func(ctx Request) error {
		list, err := api.DataSources(ctx.Context(), ctx.Param("id"))
		return respond(ctx, http.StatusOK, list, err)
	})
	r.Get("/workspaces/:id/queries", func(ctx Request) error {
		list, err := api.SavedQueries(ctx.Context(), ctx.Param("id"))
		return respond(ctx, http.StatusOK, list, err)
	})

	registerDashboards(r, api, viewer, cfg.EmbedBaseURL)
	registerSources(r, api)

	r.Get("/audit", func(ctx Request) error {
		limit, err := strconv.Atoi(ctx.Query("limit", "0"))
		if err != nil || limit < 0 {
			return respondError(ctx, errors.Join(httpapi.ErrBadRequest, errors.New("limit must be a positive integer")))
		}
		logs, err := api.AuditLogs(ctx.Context(), limit)
		return respond(ctx, http.StatusOK, logs, err)
	})

	if cfg.Broadcast != nil {
		registerStream(r, cfg.Broadcast)
	}
	return nil
}

func registerDashboards(r Registrar, api httpapi.Executor, viewer ViewerResolver, embedBase string) {
	r.Get("/dashboards/:id/embed", func(ctx Request) error {
		code := dashboard.EmbedCode(embedBase, ctx.Param("id"))
		return ctx.JSON(http.StatusOK, map[string]string{"embed_code": code})
	})
	r.Post("/dashboards", func(ctx Request) error {
		var payload dashboard.AddDashboardRequest
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		dash, err := api.AddDashboard(ctx.Context(), payload)
		return respond(ctx, http.StatusCreated, dash, err)
	})
	view := func(ctx Request) error {
		values, err := decodeFilters(ctx)
		if err != nil {
			return respondError(ctx, err)
		}
		out, err := api.View(ctx.Context(), queries.DashboardViewInput{
			Viewer:      viewer(ctx),
			DashboardID: ctx.Param("id"),
			Filters:     values,
		})
		return respond(ctx, http.StatusOK, out, err)
	}
	r.Get("/dashboards/:id", view)
	r.Post("/dashboards/:id/view", view)
	r.Post("/dashboards/:id/rename", func(ctx Request) error {
		payload := dashboard.RenameDashboardRequest{DashboardID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "renamed", api.RenameDashboard(ctx.Context(), payload))
	})
	r.Delete("/dashboards/:id", func(ctx Request) error {
		err := api.DeleteDashboard(ctx.Context(), dashboard.DeleteDashboardRequest{
			DashboardID: ctx.Param("id"),
			Confirmed:   confirmed(ctx),
		})
		return respondStatus(ctx, "deleted", err)
	})

	r.Post("/dashboards/:id/widgets", func(ctx Request) error {
		payload := dashboard.SaveWidgetRequest{DashboardID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		if err := api.SaveWidget(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, map[string]string{"status": "saved"})
	})
	r.Delete("/dashboards/:id/widgets/:widget", func(ctx Request) error {
		err := api.DeleteWidget(ctx.Context(), dashboard.DeleteWidgetRequest{
			DashboardID: ctx.Param("id"),
			WidgetID:    ctx.Param("widget"),
			Confirmed:   confirmed(ctx),
		})
		return respondStatus(ctx, "removed", err)
	})
	r.Post("/dashboards/:id/widgets/reorder", func(ctx Request) error {
		payload := dashboard.ReorderWidgetsRequest{DashboardID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "reordered", api.ReorderWidgets(ctx.Context(), payload))
	})
	r.Post("/dashboards/:id/widgets/move", func(ctx Request) error {
		payload := dashboard.MoveWidgetRequest{DashboardID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "moved", api.MoveWidget(ctx.Context(), payload))
	})
	r.Post("/dashboards/:id/widgets/:widget/shift", func(ctx Request) error {
		payload := dashboard.ShiftWidgetRequest{DashboardID: ctx.Param("id"), WidgetID: ctx.Param("widget")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "shifted", api.ShiftWidget(ctx.Context(), payload))
	})
	r.Post("/dashboards/:id/widgets/:widget/resize", func(ctx Request) error {
		payload := dashboard.ResizeWidgetRequest{DashboardID: ctx.Param("id"), WidgetID: ctx.Param("widget")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "resized", api.ResizeWidget(ctx.Context(), payload))
	})
	r.Post("/dashboards/:id/widgets/:widget/export", func(ctx Request) error {
		values, err := decodeFilters(ctx)
		if err != nil {
			return respondError(ctx, err)
		}
		file, err := api.Export(ctx.Context(), queries.ExportWidgetInput{
			DashboardID: ctx.Param("id"),
			WidgetID:    ctx.Param("widget"),
			Filters:     values,
		})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/csv; charset=utf-8")
		ctx.SetHeader("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
		return ctx.Send(file.Body)
	})
	drillDown := func(ctx Request) error {
		index, err := strconv.Atoi(ctx.Param("index"))
		if err != nil || index < 0 {
			return respondError(ctx, errors.Join(httpapi.ErrBadRequest, errors.New("row index must be a non-negative integer")))
		}
		values, err := decodeFilters(ctx)
		if err != nil {
			return respondError(ctx, err)
		}
		row, err := api.DrillDown(ctx.Context(), queries.DrillDownInput{
			DashboardID: ctx.Param("id"),
			WidgetID:    ctx.Param("widget"),
			Index:       index,
			Filters:     values,
		})
		return respond(ctx, http.StatusOK, row, err)
	}
	r.Get("/dashboards/:id/widgets/:widget/rows/:index", drillDown)
	r.Post("/dashboards/:id/widgets/:widget/rows/:index", drillDown)

	r.Post("/dashboards/:id/filters", func(ctx Request) error {
		payload := dashboard.AddFilterRequest{DashboardID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "added", api.AddFilter(ctx.Context(), payload))
	})
	r.Delete("/dashboards/:id/filters/:filter", func(ctx Request) error {
		err := api.RemoveFilter(ctx.Context(), dashboard.RemoveFilterRequest{
			DashboardID: ctx.Param("id"),
			FilterID:    ctx.Param("filter"),
		})
		return respondStatus(ctx, "removed", err)
	})
}

func registerSources(r Registrar, api httpapi.Executor) {
	r.Post("/sources", func(ctx Request) error {
		var payload dashboard.AddDataSourceRequest
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		ds, err := api.AddDataSource(ctx.Context(), payload)
		return respond(ctx, http.StatusCreated, ds, err)
	})
	r.Post("/sources/:id/schedule", func(ctx Request) error {
		payload := dashboard.UpdateScheduleRequest{DataSourceID: ctx.Param("id")}
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		return respondStatus(ctx, "scheduled", api.UpdateSchedule(ctx.Context(), payload))
	})
	r.Post("/sources/:id/refresh", func(ctx Request) error {
		if err := api.RefreshDataSource(ctx.Context(), ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "refreshed"})
	})
	r.Post("/queries", func(ctx Request) error {
		var payload dashboard.SaveQueryRequest
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		q, err := api.SaveQuery(ctx.Context(), payload)
		return respond(ctx, http.StatusCreated, q, err)
	})
	r.Post("/preview", func(ctx Request) error {
		var payload dashboard.PreviewRequest
		if err := decode(ctx, &payload); err != nil {
			return respondError(ctx, err)
		}
		out, err := api.Preview(ctx.Context(), payload)
		return respond(ctx, http.StatusOK, out, err)
	})
}

// registerStream pushes every DashboardEvent to connected clients.
func registerStream(r Registrar, hook *dashboard.BroadcastHook) {
	r.Stream("/ws", func(ws Stream) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx Request) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	return viewer
}

func confirmed(ctx Request) bool {
	ok, _ := strconv.ParseBool(ctx.Query("confirmed"))
	return ok
}

func decode(ctx Request, v any) error {
	if body := ctx.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return errors.Join(httpapi.ErrBadRequest, err)
		}
	}
	return httpapi.Validate(v)
}

func decodeFilters(ctx Request) (dashboard.FilterValues, error) {
	body := ctx.Body()
	if len(body) == 0 {
		return nil, nil
	}
	var values dashboard.FilterValues
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, errors.Join(httpapi.ErrBadRequest, err)
	}
	return values, nil
}

func respond(ctx Request, status int, body any, err error) error {
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(status, body)
}

func respondStatus(ctx Request, status string, err error) error {
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": status})
}

func respondError(ctx Request, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), map[string]string{"error": err.Error()})
}
