package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SelectAll is the SELECT option that matches every row.
const SelectAll = "All"

// DateRange bounds a DATE_RANGE filter. Both ends are inclusive ISO dates.
type DateRange struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// FilterValue is the live value of a dashboard filter: a string for SELECT and
// TEXT filters or a date range for DATE_RANGE filters. A DATE_RANGE value may
// carry a relative preset instead, resolved against the clock when applied.
type FilterValue struct {
	Text   string     `yaml:"text,omitempty"`
	Range  *DateRange `yaml:"range,omitempty"`
	Preset DatePreset `yaml:"preset,omitempty"`
}

// FilterValues maps filter ids to their live value.
type FilterValues map[string]FilterValue

// TextValue builds a SELECT/TEXT filter value.
func TextValue(s string) FilterValue { return FilterValue{Text: s} }

// RangeValue builds a DATE_RANGE filter value.
func RangeValue(start, end string) FilterValue {
	return FilterValue{Range: &DateRange{Start: start, End: end}}
}

// IsSet reports whether the value constrains anything.
func (v FilterValue) IsSet() bool {
	return v.Text != "" || v.Range != nil || v.Preset != ""
}

type presetPayload struct {
	Preset DatePreset `json:"preset"`
	Start  string     `json:"start,omitempty"`
	End    string     `json:"end,omitempty"`
}

// MarshalJSON encodes the value as a string, a {start,end} object, a
// {preset} object, or null.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Preset != "":
		p := presetPayload{Preset: v.Preset}
		if v.Range != nil {
			p.Start, p.End = v.Range.Start, v.Range.End
		}
		return json.Marshal(p)
	case v.Range != nil:
		return json.Marshal(v.Range)
	case v.Text != "":
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string, a {start,end} object, a {preset} object, or
// null. CUSTOM presets keep their start and end.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	*v = FilterValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &v.Text)
	case '{':
		var p presetPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("dashboard: decode date range: %w", err)
		}
		v.Preset = p.Preset
		if p.Start != "" || p.End != "" || p.Preset == "" {
			v.Range = &DateRange{Start: p.Start, End: p.End}
		}
		return nil
	default:
		return fmt.Errorf("dashboard: unsupported filter value %s", string(data))
	}
}

// ApplyFilters returns the rows of ds that match every dashboard filter that
// is both mapped onto a row field and currently set. The input is not mutated.
func ApplyFilters(ds Dataset, mapping map[string]string, filters []DashboardFilter, values FilterValues) Dataset {
	if len(mapping) == 0 || len(values) == 0 || len(ds.Rows) == 0 {
		return ds
	}
	type predicate struct {
		field string
		match func(any) bool
	}
	var preds []predicate
	for _, f := range filters {
		field := mapping[f.ID]
		if field == "" {
			continue
		}
		value, ok := values[f.ID]
		if !ok || !value.IsSet() {
			continue
		}
		if match := matcherFor(f.Type, value); match != nil {
			preds = append(preds, predicate{field: field, match: match})
		}
	}
	if len(preds) == 0 {
		return ds
	}
	rows := make([]Row, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		keep := true
		for _, p := range preds {
			if !p.match(row[p.field]) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}
	return Dataset{Fields: ds.Fields, Rows: rows}
}

func matcherFor(kind FilterType, value FilterValue) func(any) bool {
	switch kind {
	case FilterSelect:
		if value.Text == "" {
			return nil
		}
		return func(rv any) bool {
			if value.Text == SelectAll {
				return true
			}
			s, ok := rv.(string)
			return ok && s == value.Text
		}
	case FilterDateRange:
		if value.Range == nil {
			return nil
		}
		return dateRangeMatcher(*value.Range)
	case FilterText:
		if value.Text == "" {
			return nil
		}
		needle := strings.ToLower(value.Text)
		return func(rv any) bool {
			return strings.Contains(strings.ToLower(formatValue(rv)), needle)
		}
	}
	return nil
}

// dateRangeMatcher keeps rows without a date. A bound or row date that cannot
// be parsed never satisfies the comparison.
func dateRangeMatcher(r DateRange) func(any) bool {
	return func(rv any) bool {
		if isBlank(rv) {
			return true
		}
		if r.Start == "" && r.End == "" {
			return true
		}
		rowDate, ok := parseDate(rv)
		if !ok {
			return false
		}
		if r.Start != "" {
			start, ok := parseDate(r.Start)
			if !ok || rowDate.Before(start) {
				return false
			}
		}
		if r.End != "" {
			end, ok := parseDate(r.End)
			if !ok || rowDate.After(end) {
				return false
			}
		}
		return true
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case []byte:
		return parseDate(string(val))
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// DatePreset names a relative range offered by the date filter control.
type DatePreset string

const (
	PresetAllTime   DatePreset = ""
	PresetThisMonth DatePreset = "THIS_MONTH"
	PresetLastMonth DatePreset = "LAST_MONTH"
	Preset7Days     DatePreset = "7_DAYS"
	Preset30Days    DatePreset = "30_DAYS"
	PresetCustom    DatePreset = "CUSTOM"
)

// ResolveDatePreset turns a preset into a filter value relative to now. The
// second result is false for CUSTOM, which leaves the current value alone.
// Unknown presets and the all-time preset clear the filter.
func ResolveDatePreset(preset DatePreset, now time.Time) (FilterValue, bool) {
	const day = "2006-01-02"
	today := now.Format(day)
	switch preset {
	case Preset7Days:
		return RangeValue(now.AddDate(0, 0, -7).Format(day), today), true
	case Preset30Days:
		return RangeValue(now.AddDate(0, 0, -30).Format(day), today), true
	case PresetThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return RangeValue(first.Format(day), today), true
	case PresetLastMonth:
		first := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		last := time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location())
		return RangeValue(first.Format(day), last.Format(day)), true
	case PresetCustom:
		return FilterValue{}, false
	default:
		return FilterValue{}, true
	}
}

// ResolvePresets returns a copy of values with every preset replaced by the
// concrete range it covers at now. A CUSTOM preset keeps its own range;
// all-time and unknown presets clear the filter.
func (values FilterValues) ResolvePresets(now time.Time) FilterValues {
	out := make(FilterValues, len(values))
	for id, v := range values {
		if v.Preset != "" {
			resolved, ok := ResolveDatePreset(v.Preset, now)
			if ok {
				v = resolved
			} else {
				v.Preset = ""
			}
		}
		if v.IsSet() {
			out[id] = v
		}
	}
	return out
}

// DefaultFilterValues seeds live filter values from each filter's default.
func DefaultFilterValues(filters []DashboardFilter) FilterValues {
	values := FilterValues{}
	for _, f := range filters {
		if f.DefaultValue != nil && f.DefaultValue.IsSet() {
			values[f.ID] = *f.DefaultValue
		}
	}
	return values
}
