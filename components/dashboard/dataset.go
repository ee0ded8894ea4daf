package dashboard

import "sort"

// Row is a single record keyed by field name.
type Row map[string]any

// Dataset is an ordered set of rows. Fields preserves the key order of the
// first row so exports and field pickers stay stable.
type Dataset struct {
	Fields []string `json:"fields"`
	Rows   []Row    `json:"rows"`
}

// NewDataset builds a dataset, inferring the field order from the rows when
// fields is empty.
func NewDataset(fields []string, rows []Row) Dataset {
	if rows == nil {
		rows = []Row{}
	}
	if len(fields) == 0 {
		fields = inferFields(rows)
	}
	return Dataset{Fields: append([]string(nil), fields...), Rows: rows}
}

// DatasetFromMaps converts generic maps into a dataset. Map iteration order is
// unspecified so fields are sorted unless provided.
func DatasetFromMaps(fields []string, items []map[string]any) Dataset {
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Row(item)
	}
	return NewDataset(fields, rows)
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Rows) }

// IsEmpty reports whether the dataset carries no rows.
func (d Dataset) IsEmpty() bool { return len(d.Rows) == 0 }

// Head returns the first n rows without copying them.
func (d Dataset) Head(n int) Dataset {
	if n >= len(d.Rows) {
		return d
	}
	return Dataset{Fields: d.Fields, Rows: d.Rows[:n]}
}

// Clone returns a copy whose row slice and row maps can be mutated freely.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Fields: append([]string(nil), d.Fields...),
		Rows:   make([]Row, len(d.Rows)),
	}
	for i, row := range d.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// HasField reports whether name is one of the dataset fields.
func (d Dataset) HasField(name string) bool {
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

func inferFields(rows []Row) []string {
	seen := map[string]struct{}{}
	var fields []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			fields = append(fields, k)
		}
	}
	return fields
}
