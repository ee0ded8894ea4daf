package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ettle/strcase"
	"go.uber.org/zap"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/pkg/insight"
	"github.com/goliatone/go-insight/pkg/sources"
)

type seedCmd struct {
	Manifest string `type:"existingfile" help:"Seed manifest (YAML or JSON). Defaults to the built-in demo."`
}

func (cmd *seedCmd) Run(ctx context.Context, g *Globals) error {
	app, logger, err := g.open()
	if err != nil {
		return err
	}
	defer closeApp(app, logger)
	if err := app.Start(ctx, false); err != nil {
		return err
	}

	var doc *dashboard.SeedManifest
	if cmd.Manifest != "" {
		doc, err = dashboard.ReadManifest(cmd.Manifest)
	} else {
		doc, err = insight.DefaultManifest()
	}
	if err != nil {
		return err
	}
	report, err := app.Seed(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "seeded %d workspaces, %d data sources, %d queries, %d dashboards, %d widgets\n",
		report.Workspaces, report.DataSources, report.Queries, report.Dashboards, report.Widgets)
	return nil
}

type listCmd struct {
	Workspace string `help:"Only list this workspace id."`
}

func (cmd *listCmd) Run(ctx context.Context, g *Globals) error {
	app, logger, err := g.open()
	if err != nil {
		return err
	}
	defer closeApp(app, logger)
	if err := app.Start(ctx, false); err != nil {
		return err
	}
	return writeListing(os.Stdout, app.Service(), cmd.Workspace)
}

func writeListing(out io.Writer, svc *dashboard.Service, workspaceID string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKSPACE\tDASHBOARD\tWIDGET\tTYPE\tROWS")
	for _, ws := range svc.Workspaces() {
		if workspaceID != "" && ws.ID != workspaceID {
			continue
		}
		dashboards := svc.Dashboards(ws.ID)
		if len(dashboards) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", ws.Name)
		}
		for _, d := range dashboards {
			if len(d.Widgets) == 0 {
				fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", ws.Name, d.Name)
			}
			for _, w := range d.Widgets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", ws.Name, d.Name, w.Title, w.Type, w.Data.Len())
			}
		}
	}
	return tw.Flush()
}

type previewCmd struct {
	File        string   `arg:"" type:"existingfile" help:"CSV or JSON file with the raw rows."`
	Type        string   `default:"BAR" help:"Chart type (BAR, LINE, PIE, AREA, SCATTER, HEATMAP, TABLE, INDICATOR)."`
	X           string   `help:"Field bound to the x axis."`
	Value       string   `help:"Field bound to the value."`
	Columns     []string `help:"Table columns."`
	Aggregation string   `name:"agg" default:"SUM" help:"Aggregation (NONE, SUM, AVG, MIN, MAX, COUNT)."`
	Query       string   `help:"SQL run over the file rows before aggregating; the table is named after the file."`
	HTML        string   `name:"html" type:"path" help:"Write a rendered chart to this file (a directory picks a name from the title)."`
	Title       string   `help:"Chart title."`
}

func (cmd *previewCmd) Run(ctx context.Context) error {
	raw, err := readRows(cmd.File)
	if err != nil {
		return err
	}
	if cmd.Query != "" {
		table := strings.TrimSuffix(filepath.Base(cmd.File), filepath.Ext(cmd.File))
		raw, err = sources.QueryDataset(ctx, raw, cmd.Query, table)
		if err != nil {
			return err
		}
	}

	draft := dashboard.NewDraft()
	draft.Type = dashboard.ChartType(strings.ToUpper(cmd.Type))
	draft.Aggregation = dashboard.AggregationType(strings.ToUpper(cmd.Aggregation))
	draft.XField = cmd.X
	draft.ValueField = cmd.Value
	draft.Columns = cmd.Columns
	if missing := draft.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", dashboard.ErrIncompleteConfiguration, strings.Join(missing, ", "))
	}
	data := dashboard.BuildPreview(draft, raw)

	if cmd.HTML == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return cmd.renderHTML(ctx, draft, data)
}

func (cmd *previewCmd) renderHTML(ctx context.Context, draft dashboard.Draft, data dashboard.Dataset) error {
	title := cmd.Title
	if title == "" {
		title = fmt.Sprintf("%s by %s", cmd.Value, cmd.X)
	}
	widget := dashboard.Widget{
		Type:  draft.Type,
		Title: title,
		Data:  data,
		Config: dashboard.Configuration{
			XAxis:       draft.XField,
			DataKeys:    []string{draft.ValueField},
			Aggregation: draft.Aggregation,
		},
	}
	provider := dashboard.NewEChartsProvider(draft.Type, dashboard.WithChartCache(nil))
	out, err := provider.Fetch(ctx, dashboard.WidgetContext{Widget: widget})
	if err != nil {
		return err
	}
	html, _ := out["chart_html"].(string)

	path := cmd.HTML
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, strcase.ToKebab(title)+".html")
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("insightctl: write chart: %w", err)
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}

func readRows(path string) (dashboard.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return sources.ReadJSON(f)
	case ".csv":
		return sources.ReadCSV(f)
	}
	return dashboard.Dataset{}, fmt.Errorf("insightctl: unsupported file type %q", filepath.Ext(path))
}

type exportCmd struct {
	Dashboard string            `required:"" help:"Dashboard id."`
	Widget    string            `required:"" help:"Widget id."`
	Filter    map[string]string `help:"Filter values as id=value; date ranges use start..end."`
	Out       string            `type:"path" help:"Output directory (defaults to stdout)."`
}

func (cmd *exportCmd) Run(ctx context.Context, g *Globals) error {
	app, logger, err := g.open()
	if err != nil {
		return err
	}
	defer closeApp(app, logger)
	if err := app.Start(ctx, false); err != nil {
		return err
	}
	name, body, err := app.Service().ExportWidget(cmd.Dashboard, cmd.Widget, parseFilterValues(cmd.Filter))
	if err != nil {
		return err
	}
	if cmd.Out == "" {
		_, err = os.Stdout.Write(append(body, '\n'))
		return err
	}
	path := filepath.Join(cmd.Out, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("insightctl: write export: %w", err)
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}

func parseFilterValues(raw map[string]string) dashboard.FilterValues {
	values := dashboard.FilterValues{}
	for id, v := range raw {
		if start, end, ok := strings.Cut(v, ".."); ok {
			values[id] = dashboard.RangeValue(start, end)
			continue
		}
		values[id] = dashboard.TextValue(v)
	}
	return values
}

type nextSyncCmd struct {
	Interval string `arg:"" enum:"15m,30m,1h,midnight" help:"Sync interval (15m, 30m, 1h, midnight)."`
	From     string `help:"Reference time in RFC3339 (defaults to now)."`
}

func (cmd *nextSyncCmd) Run() error {
	now := time.Now()
	if cmd.From != "" {
		parsed, err := time.Parse(time.RFC3339, cmd.From)
		if err != nil {
			return fmt.Errorf("insightctl: --from: %w", err)
		}
		now = parsed
	}
	next, ok := dashboard.NextSyncAt(dashboard.SyncInterval(cmd.Interval), now)
	if !ok {
		return fmt.Errorf("%w: %s", dashboard.ErrInvalidInterval, cmd.Interval)
	}
	fmt.Fprintln(os.Stdout, next.Format(time.RFC3339))
	return nil
}

func closeApp(app *insight.App, logger *zap.Logger) {
	if err := app.Close(); err != nil {
		logger.Warn("close app", zap.Error(err))
	}
	_ = logger.Sync()
}
