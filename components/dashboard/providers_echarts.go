package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "300px"

var sharedChartCache = NewChartCache(5 * time.Minute)

// ThemeResolver selects a chart theme per viewer.
type ThemeResolver func(ViewerContext) string

// EChartsProvider renders server-side chart HTML for a grouped chart type.
// The widget rows are expected in their aggregated shape: one row per group
// with the x_axis field as label and the first data key as value.
type EChartsProvider struct {
	chartType     ChartType
	cache         RenderCache
	theme         string
	themeResolver ThemeResolver
	assetsHost    string
}

// EChartsProviderOption customizes provider behavior.
type EChartsProviderOption func(*EChartsProvider)

// WithChartCache injects a render cache. A nil cache renders every time.
func WithChartCache(cache RenderCache) EChartsProviderOption {
	return func(p *EChartsProvider) {
		p.cache = cache
	}
}

// WithChartTheme sets a static theme (defaults to Westeros).
func WithChartTheme(theme string) EChartsProviderOption {
	return func(p *EChartsProvider) {
		p.theme = theme
	}
}

// WithChartThemeResolver resolves themes dynamically per viewer.
func WithChartThemeResolver(resolver ThemeResolver) EChartsProviderOption {
	return func(p *EChartsProvider) {
		p.themeResolver = resolver
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) EChartsProviderOption {
	return func(p *EChartsProvider) {
		p.assetsHost = host
	}
}

// NewEChartsProvider builds a provider for a specific chart type.
func NewEChartsProvider(chartType ChartType, opts ...EChartsProviderOption) *EChartsProvider {
	p := &EChartsProvider{
		chartType:  chartType,
		cache:      sharedChartCache,
		theme:      types.ThemeWesteros,
		assetsHost: EChartsAssetsHost(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// chartPoint is one plotted row; its position matches the widget row used
// for drill-down.
type chartPoint struct {
	Label string
	Value float64
}

// Fetch converts the widget rows into go-echarts markup.
func (p *EChartsProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	w := meta.Widget
	cfg := w.Config
	if cfg.XAxis == "" || len(cfg.DataKeys) == 0 || cfg.DataKeys[0] == "" {
		return nil, fmt.Errorf("%w: %s chart needs x_axis and a value field", ErrIncompleteConfiguration, p.chartType)
	}
	valueField := cfg.DataKeys[0]
	points := chartPoints(w.Data, cfg.XAxis, valueField)
	theme := p.resolveTheme(meta.Viewer)

	render := func() (string, error) {
		return p.render(w, valueField, points, theme)
	}
	var (
		html string
		err  error
	)
	if p.cache != nil {
		key := fmt.Sprintf("%s:%s:%s", w.ID, p.chartType, contentHash(w, theme))
		html, err = p.cache.GetOrRender(key, render)
	} else {
		html, err = render()
	}
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, pt := range points {
		labels[i] = pt.Label
		values[i] = pt.Value
	}
	return WidgetData{
		"chart_html":  html,
		"chart_type":  string(p.chartType),
		"title":       w.Title,
		"theme":       theme,
		"x_axis":      cfg.XAxis,
		"value_field": valueField,
		"labels":      labels,
		"values":      values,
	}, nil
}

func chartPoints(ds Dataset, labelField, valueField string) []chartPoint {
	points := make([]chartPoint, len(ds.Rows))
	for i, row := range ds.Rows {
		points[i] = chartPoint{
			Label: formatValue(row[labelField]),
			Value: float64Value(row[valueField]),
		}
	}
	return points
}

func (p *EChartsProvider) render(w Widget, valueField string, points []chartPoint, theme string) (string, error) {
	global := p.globalChartOptions(w.Title, theme)
	color := seriesColor(w.Config.Colors, 0)
	switch p.chartType {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(pointLabels(points))
		bar.AddSeries(valueField, toBarData(points))
		bar.SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		return renderChart(bar)
	case ChartLine, ChartArea:
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(pointLabels(points))
		line.AddSeries(valueField, toLineData(points))
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		}
		if p.chartType == ChartArea {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{}))
		}
		line.SetSeriesOptions(seriesOpts...)
		return renderChart(line)
	case ChartPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(global...)
		pie.AddSeries(valueField, toPieData(points, w.Config.Colors))
		return renderChart(pie)
	case ChartScatter:
		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(global...)
		scatter.AddSeries(valueField, toScatterData(w.Data, w.Config.XAxis, valueField))
		scatter.SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		return renderChart(scatter)
	default:
		return "", fmt.Errorf("unsupported chart type: %s", p.chartType)
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *EChartsProvider) globalChartOptions(title, theme string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if p.assetsHost != "" {
		initOpts.AssetsHost = p.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithToolboxOpts(opts.Toolbox{Show: opts.Bool(true)}),
	}
}

func (p *EChartsProvider) resolveTheme(viewer ViewerContext) string {
	if p.themeResolver != nil {
		if theme := p.themeResolver(viewer); theme != "" {
			return theme
		}
	}
	if p.theme != "" {
		return p.theme
	}
	return types.ThemeWesteros
}

func pointLabels(points []chartPoint) []string {
	labels := make([]string, len(points))
	for i, pt := range points {
		labels[i] = pt.Label
	}
	return labels
}

func toBarData(points []chartPoint) []opts.BarData {
	data := make([]opts.BarData, len(points))
	for i, point := range points {
		data[i] = opts.BarData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toLineData(points []chartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toPieData(points []chartPoint, colors []string) []opts.PieData {
	data := make([]opts.PieData, len(points))
	for i, point := range points {
		name := point.Label
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{
			Name:      name,
			Value:     point.Value,
			ItemStyle: &opts.ItemStyle{Color: seriesColor(colors, i)},
		}
	}
	return data
}

// toScatterData plots x_axis against the value field, both coerced to numbers.
func toScatterData(ds Dataset, xField, valueField string) []opts.ScatterData {
	data := make([]opts.ScatterData, len(ds.Rows))
	for i, row := range ds.Rows {
		data[i] = opts.ScatterData{
			Name:  formatValue(row[xField]),
			Value: []float64{float64Value(row[xField]), float64Value(row[valueField])},
		}
	}
	return data
}

// seriesColor cycles through colors, falling back to the default palette.
func seriesColor(colors []string, i int) string {
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return colors[i%len(colors)]
}

func init() {
	RegisterWidgetHook(func(reg *Registry) error {
		for _, chartType := range []ChartType{ChartBar, ChartLine, ChartArea, ChartPie, ChartScatter} {
			code := string(chartType)
			if _, ok := reg.Provider(code); ok {
				continue
			}
			if _, ok := reg.Definition(code); !ok {
				continue
			}
			if err := reg.RegisterProvider(code, NewEChartsProvider(chartType)); err != nil {
				return err
			}
		}
		return nil
	})
}
