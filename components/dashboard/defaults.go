package dashboard

func aggregationSchema() map[string]any {
	return map[string]any{
		"type": "string",
		"enum": []string{
			string(AggregateNone), string(AggregateSum), string(AggregateAvg),
			string(AggregateMin), string(AggregateMax), string(AggregateCount),
		},
	}
}

func colorsSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "pattern": "^#[0-9a-fA-F]{3,8}$"},
	}
}

func filterMappingSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string", "minLength": 1},
	}
}

// groupedChartSchema covers chart types that group by x_axis and plot one value field.
func groupedChartSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"x_axis", "data_keys"},
		"properties": map[string]any{
			"x_axis": map[string]any{"type": "string", "minLength": 1},
			"data_keys": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
			"aggregation":    aggregationSchema(),
			"colors":         colorsSchema(),
			"query_id":       map[string]any{"type": "string"},
			"filter_mapping": filterMappingSchema(),
		},
	}
}

func tableSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"data_keys"},
		"properties": map[string]any{
			"data_keys": map[string]any{
				"type":        "array",
				"minItems":    1,
				"uniqueItems": true,
				"items":       map[string]any{"type": "string", "minLength": 1},
			},
			"colors":         colorsSchema(),
			"query_id":       map[string]any{"type": "string"},
			"filter_mapping": filterMappingSchema(),
		},
	}
}

func indicatorSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"data_keys"},
		"properties": map[string]any{
			"data_keys": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
			"aggregation":    aggregationSchema(),
			"colors":         colorsSchema(),
			"query_id":       map[string]any{"type": "string"},
			"filter_mapping": filterMappingSchema(),
		},
	}
}

func htmlSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"html_content": map[string]any{"type": "string"},
			"colors":       colorsSchema(),
		},
	}
}

var defaultWidgetDefinitions = []WidgetDefinition{
	{Code: string(ChartBar), Name: "Bar Chart", Description: "Grouped values as vertical bars.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartLine), Name: "Line Chart", Description: "Grouped values as a smoothed line.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartPie), Name: "Pie Chart", Description: "Share of each group.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartArea), Name: "Area Chart", Description: "Grouped values as a filled line.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartScatter), Name: "Scatter Chart", Description: "Value against value.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartHeatmap), Name: "Heatmap", Description: "Cell grid shaded by value.", Category: "charts", Schema: groupedChartSchema()},
	{Code: string(ChartTable), Name: "Table", Description: "Selected columns, first rows.", Category: "data", Schema: tableSchema()},
	{Code: string(ChartHTML), Name: "HTML", Description: "Static markup block.", Category: "content", Schema: htmlSchema()},
	{Code: string(ChartIndicator), Name: "Indicator", Description: "A single aggregated number.", Category: "stats", Schema: indicatorSchema()},
}

// DefaultWidgetDefinitions returns copies of built-in chart type definitions.
func DefaultWidgetDefinitions() []WidgetDefinition {
	out := make([]WidgetDefinition, len(defaultWidgetDefinitions))
	copy(out, defaultWidgetDefinitions)
	return out
}
