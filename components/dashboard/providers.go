package dashboard

import (
	"context"
	"math"
)

const heatmapColumns = 10

func defaultProviders() map[ChartType]Provider {
	return map[ChartType]Provider{
		ChartTable:     ProviderFunc(tableProvider),
		ChartIndicator: ProviderFunc(indicatorProvider),
		ChartHTML:      ProviderFunc(htmlProvider),
		ChartHeatmap:   ProviderFunc(heatmapProvider),
	}
}

// tableProvider returns the configured columns and rows. Widgets without data
// keys show every field.
func tableProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	w := meta.Widget
	columns := w.Config.DataKeys
	if len(columns) == 0 {
		columns = w.Data.Fields
	}
	rows := make([][]string, len(w.Data.Rows))
	for i, row := range w.Data.Rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = formatValue(row[col])
		}
		rows[i] = cells
	}
	return WidgetData{
		"title":   w.Title,
		"columns": append([]string(nil), columns...),
		"rows":    rows,
	}, nil
}

// indicatorProvider shows the first value of the first row, labelled with the
// value field.
func indicatorProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	w := meta.Widget
	label := "Value"
	if len(w.Config.DataKeys) > 0 && w.Config.DataKeys[0] != "" {
		label = w.Config.DataKeys[0]
	}
	var value any = 0
	if len(w.Data.Rows) > 0 {
		first := w.Data.Rows[0]
		if v, ok := first[label]; ok {
			value = v
		} else if len(w.Data.Fields) > 0 {
			value = first[w.Data.Fields[0]]
		}
	}
	data := WidgetData{
		"title":   w.Title,
		"label":   label,
		"value":   value,
		"display": formatValue(value),
	}
	if agg := w.Config.Aggregation; agg != "" && agg != AggregateNone {
		data["aggregation"] = string(agg)
	}
	return data, nil
}

func htmlProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	content := meta.Widget.Config.HTMLContent
	if content == "" {
		content = DefaultHTMLContent
	}
	return WidgetData{"title": meta.Widget.Title, "html": content}, nil
}

// HeatCell is one square of a heatmap. Intensity is the value clamped to
// 0..100 and scaled to 0..1.
type HeatCell struct {
	Value     float64 `json:"value"`
	Intensity float64 `json:"intensity"`
	Row       int     `json:"row"`
	Column    int     `json:"column"`
}

// heatmapProvider lays rows out on a fixed ten-column grid, shading each cell
// by the first field of its row.
func heatmapProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	w := meta.Widget
	field := ""
	if len(w.Data.Fields) > 0 {
		field = w.Data.Fields[0]
	}
	if len(w.Config.DataKeys) > 0 && w.Data.HasField(w.Config.DataKeys[0]) {
		field = w.Config.DataKeys[0]
	}
	cells := make([]HeatCell, len(w.Data.Rows))
	for i, row := range w.Data.Rows {
		v := float64Value(row[field])
		cells[i] = HeatCell{
			Value:     v,
			Intensity: math.Min(100, math.Max(0, v)) / 100,
			Row:       i / heatmapColumns,
			Column:    i % heatmapColumns,
		}
	}
	return WidgetData{
		"title":   w.Title,
		"columns": heatmapColumns,
		"cells":   cells,
		"color":   seriesColor(w.Config.Colors, 0),
	}, nil
}
