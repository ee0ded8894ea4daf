package dashboard

import (
	"context"
	"errors"
	"fmt"
)

// SeedReport counts what Seed created.
type SeedReport struct {
	Workspaces  int
	DataSources int
	Queries     int
	Dashboards  int
	Widgets     int
}

// Seed creates everything described by doc through the service, so each step
// is validated, persisted and audited like an operator edit. Widgets are
// built with a Session over resolver.
func Seed(ctx context.Context, service *Service, doc *SeedManifest, resolver RowResolver) (SeedReport, error) {
	var report SeedReport
	if service == nil {
		return report, errors.New("dashboard: service is required to seed")
	}
	if doc == nil {
		return report, errors.New("dashboard: manifest is required to seed")
	}
	for _, mw := range doc.Workspaces {
		ws, err := service.AddWorkspace(ctx, AddWorkspaceRequest{Name: mw.Name, Description: mw.Description})
		if err != nil {
			return report, fmt.Errorf("seed workspace %s: %w", mw.Name, err)
		}
		report.Workspaces++

		sourceIDs := make(map[string]string, len(mw.DataSources))
		for _, src := range mw.DataSources {
			ds, err := service.AddDataSource(ctx, AddDataSourceRequest{
				WorkspaceID: ws.ID,
				Name:        src.Name,
				Type:        src.Connection.Type,
				Connection:  src.Connection,
			})
			if err != nil {
				return report, fmt.Errorf("seed data source %s: %w", src.Name, err)
			}
			if src.Schedule != nil && src.Schedule.Mode == ScheduleAuto {
				if err := service.UpdateDataSourceSchedule(ctx, UpdateScheduleRequest{
					DataSourceID: ds.ID,
					Mode:         src.Schedule.Mode,
					Interval:     src.Schedule.Interval,
				}); err != nil {
					return report, fmt.Errorf("seed schedule %s: %w", src.Name, err)
				}
			}
			sourceIDs[src.Name] = ds.ID
			report.DataSources++
		}

		queryIDs := make(map[string]string, len(mw.Queries))
		for _, q := range mw.Queries {
			saved, err := service.SaveQuery(ctx, SaveQueryRequest{
				WorkspaceID:  ws.ID,
				Name:         q.Name,
				SQL:          q.SQL,
				Description:  q.Description,
				DataSourceID: sourceIDs[q.DataSource],
			})
			if err != nil {
				return report, fmt.Errorf("seed query %s: %w", q.Name, err)
			}
			queryIDs[q.Name] = saved.ID
			report.Queries++
		}

		for _, md := range mw.Dashboards {
			dash, err := service.AddDashboard(ctx, AddDashboardRequest{
				WorkspaceID: ws.ID,
				Name:        md.Name,
				Description: md.Description,
				Filters:     md.Filters,
			})
			if err != nil {
				return report, fmt.Errorf("seed dashboard %s: %w", md.Name, err)
			}
			report.Dashboards++
			for _, mwid := range md.Widgets {
				ref := SourceRef{}
				switch {
				case mwid.Query != "":
					ref = QueryRef(queryIDs[mwid.Query])
				case mwid.Source != "":
					ref = DataSourceRef(sourceIDs[mwid.Source])
				}
				w, created, err := buildSeedWidget(ctx, resolver, dash.Filters, ref, mwid)
				if err != nil {
					return report, fmt.Errorf("seed widget %q: %w", mwid.Title, err)
				}
				if err := service.SaveWidget(ctx, SaveWidgetRequest{DashboardID: dash.ID, Widget: w, Filters: created}); err != nil {
					return report, fmt.Errorf("seed widget %q: %w", mwid.Title, err)
				}
				report.Widgets++
			}
		}
	}
	return report, nil
}

func buildSeedWidget(ctx context.Context, resolver RowResolver, filters []DashboardFilter, ref SourceRef, mw ManifestWidget) (Widget, []DashboardFilter, error) {
	session := NewSession(resolver, filters)
	session.SetTitle(mw.Title)
	session.SetChartType(mw.Type)
	if mw.Aggregation != "" {
		session.SetAggregation(mw.Aggregation)
	}
	if mw.HTMLContent != "" {
		session.SetHTMLContent(mw.HTMLContent)
	}
	if !ref.IsZero() {
		if _, err := session.SelectSource(ctx, ref); err != nil {
			return Widget{}, nil, err
		}
	}
	assign := func(slot Slot, field string) error {
		if field == "" {
			return nil
		}
		_, err := session.Assign(slot, field)
		return err
	}
	if err := assign(SlotXAxis, mw.XAxis); err != nil {
		return Widget{}, nil, err
	}
	if err := assign(SlotValue, mw.Value); err != nil {
		return Widget{}, nil, err
	}
	for _, col := range mw.Columns {
		if err := assign(SlotColumns, col); err != nil {
			return Widget{}, nil, err
		}
	}
	for filterID, field := range mw.FilterMapping {
		if err := session.MapFilter(filterID, field); err != nil {
			return Widget{}, nil, err
		}
	}
	w, err := session.Save()
	if err != nil {
		return Widget{}, nil, fmt.Errorf("%w: missing %v", err, session.Draft().Missing())
	}
	if len(mw.Colors) > 0 {
		w.Config.Colors = append([]string(nil), mw.Colors...)
	}
	if mw.Layout != nil {
		w.Layout = Layout{Width: clampWidth(mw.Layout.Width), Height: clampHeight(mw.Layout.Height)}
	}
	return w, session.CreatedFilters(), nil
}
