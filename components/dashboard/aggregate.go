package dashboard

import "math"

// Aggregate groups rows by the string form of groupField and reduces the
// numeric values of valueField with op. Groups keep first-seen order and each
// output row is {groupField: key, valueField: reduced}.
func Aggregate(ds Dataset, groupField, valueField string, op AggregationType) Dataset {
	fields := []string{groupField}
	if valueField != groupField {
		fields = append(fields, valueField)
	}
	if len(ds.Rows) == 0 {
		return Dataset{Fields: fields, Rows: []Row{}}
	}

	var order []string
	groups := make(map[string][]float64)
	for _, row := range ds.Rows {
		key := formatValue(row[groupField])
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], float64Value(row[valueField]))
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		row := Row{groupField: key}
		row[valueField] = Reduce(groups[key], op)
		rows = append(rows, row)
	}
	return Dataset{Fields: fields, Rows: rows}
}

// Indicator reduces every row to a single {valueField: scalar} row.
func Indicator(ds Dataset, valueField string, op AggregationType) Dataset {
	values := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		values[i] = float64Value(row[valueField])
	}
	return Dataset{
		Fields: []string{valueField},
		Rows:   []Row{{valueField: Reduce(values, op)}},
	}
}

// Reduce applies op to values and rounds the result to two decimals. An empty
// input reduces to 0. Unknown operations fall back to NONE.
func Reduce(values []float64, op AggregationType) float64 {
	if len(values) == 0 {
		return 0
	}
	var result float64
	switch op {
	case AggregateSum:
		result = sum(values)
	case AggregateAvg:
		result = sum(values) / float64(len(values))
	case AggregateMin:
		result = math.Inf(1)
		for _, v := range values {
			result = math.Min(result, v)
		}
	case AggregateMax:
		result = math.Inf(-1)
		for _, v := range values {
			result = math.Max(result, v)
		}
	case AggregateCount:
		result = float64(len(values))
	default:
		result = values[0]
	}
	return round2(result)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
