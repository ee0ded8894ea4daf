package sources

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-insight/components/dashboard"
)

// CSVConnector reads a CSV file whose first record is the header. Numeric
// cells become float64.
type CSVConnector struct{}

func (CSVConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	if conn.File == nil {
		return dashboard.Dataset{}, fmt.Errorf("%w: file settings missing", dashboard.ErrInvalidConnection)
	}
	f, err := os.Open(conn.File.Path)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: open csv: %w", err)
	}
	defer f.Close()
	ds, err := ReadCSV(f)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return withQuery(ctx, query, fileTable(conn.File.Path), ds)
}

// ReadCSV parses CSV rows into a dataset.
func ReadCSV(r io.Reader) (dashboard.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return dashboard.NewDataset(nil, nil), nil
	}
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	var rows []dashboard.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dashboard.Dataset{}, fmt.Errorf("sources: read csv: %w", err)
		}
		row := make(dashboard.Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = cell(record[i])
			}
		}
		rows = append(rows, row)
	}
	return dashboard.NewDataset(header, rows), nil
}

func cell(raw string) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// JSONConnector reads a file holding a JSON array of objects.
type JSONConnector struct{}

func (JSONConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	if conn.File == nil {
		return dashboard.Dataset{}, fmt.Errorf("%w: file settings missing", dashboard.ErrInvalidConnection)
	}
	f, err := os.Open(conn.File.Path)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: open json: %w", err)
	}
	defer f.Close()
	ds, err := ReadJSON(f)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return withQuery(ctx, query, fileTable(conn.File.Path), ds)
}

// ReadJSON decodes an array of objects, or an object with a "data" or
// "rows" array.
func ReadJSON(r io.Reader) (dashboard.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: read json: %w", err)
	}
	items, err := decodeItems(raw)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return dashboard.DatasetFromMaps(nil, items), nil
}

func decodeItems(raw []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Data []map[string]any `json:"data"`
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("sources: decode json rows: %w", err)
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return envelope.Rows, nil
}

func fileTable(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
