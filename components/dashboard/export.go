package dashboard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrNothingToExport = errors.New("dashboard: widget has no rows to export")

var filenameUnsafe = regexp.MustCompile(`(?i)[^a-z0-9]`)

// ExportCSV renders the widget snapshot as CSV and returns it with a filename
// derived from the title. The header lists the dataset fields in order and
// every value is double quoted.
func ExportCSV(w Widget) (string, []byte, error) {
	if w.Data.IsEmpty() {
		return "", nil, ErrNothingToExport
	}
	fields := w.Data.Fields
	if len(fields) == 0 {
		fields = inferFields(w.Data.Rows[:1])
	}
	lines := make([]string, 0, len(w.Data.Rows)+1)
	lines = append(lines, strings.Join(fields, ","))
	for _, row := range w.Data.Rows {
		cells := make([]string, len(fields))
		for i, field := range fields {
			cells[i] = quoteCSV(formatValue(row[field]))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return ExportFilename(w.Title), []byte(strings.Join(lines, "\n")), nil
}

// ExportFilename lowercases title, replaces anything outside [a-z0-9] with an
// underscore and appends .csv.
func ExportFilename(title string) string {
	name := strings.ToLower(filenameUnsafe.ReplaceAllString(title, "_"))
	if name == "" {
		name = "export"
	}
	return name + ".csv"
}

func quoteCSV(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// EmbedCode returns the iframe snippet that embeds a dashboard.
func EmbedCode(baseURL, dashboardID string) string {
	base := strings.TrimRight(baseURL, "/")
	return fmt.Sprintf(`<iframe src="%s/#/embed/%s" width="100%%" height="100%%" frameborder="0" style="border:none; overflow:hidden;"></iframe>`, base, dashboardID)
}

// DrillDown returns the full row behind a rendered data point.
func (w Widget) DrillDown(index int) (Row, bool) {
	if index < 0 || index >= len(w.Data.Rows) {
		return nil, false
	}
	return w.Data.Rows[index], true
}
