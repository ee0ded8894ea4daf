package dashboard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// SeedManifest describes workspaces to create, with their sources, saved
// queries and dashboards. Cross references use names, not ids.
type SeedManifest struct {
	Version    string              `yaml:"version"`
	Workspaces []ManifestWorkspace `yaml:"workspaces"`
	Source     string              `yaml:"-"`
}

// ManifestWorkspace is one workspace entry.
type ManifestWorkspace struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	DataSources []ManifestSource    `yaml:"data_sources,omitempty"`
	Queries     []ManifestQuery     `yaml:"queries,omitempty"`
	Dashboards  []ManifestDashboard `yaml:"dashboards,omitempty"`
}

// ManifestSource declares a data source and its schedule.
type ManifestSource struct {
	Name       string            `yaml:"name"`
	Connection ConnectionConfig  `yaml:"connection"`
	Schedule   *ManifestSchedule `yaml:"schedule,omitempty"`
}

// ManifestSchedule is the schedule of a seeded source.
type ManifestSchedule struct {
	Mode     ScheduleMode `yaml:"mode"`
	Interval SyncInterval `yaml:"interval,omitempty"`
}

// ManifestQuery declares a saved query. DataSource names a source of the
// same workspace.
type ManifestQuery struct {
	Name        string `yaml:"name"`
	SQL         string `yaml:"sql"`
	Description string `yaml:"description,omitempty"`
	DataSource  string `yaml:"data_source,omitempty"`
}

// ManifestDashboard declares a dashboard with its filters and widgets.
type ManifestDashboard struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Filters     []DashboardFilter `yaml:"filters,omitempty"`
	Widgets     []ManifestWidget  `yaml:"widgets,omitempty"`
}

// ManifestWidget is built through the widget builder, so its rows are
// derived from the named source exactly as an operator would get them.
// Source names a data source; Query names a saved query and wins when set.
type ManifestWidget struct {
	Title         string            `yaml:"title"`
	Type          ChartType         `yaml:"type"`
	Source        string            `yaml:"source,omitempty"`
	Query         string            `yaml:"query,omitempty"`
	XAxis         string            `yaml:"x_axis,omitempty"`
	Value         string            `yaml:"value,omitempty"`
	Columns       []string          `yaml:"columns,omitempty"`
	Aggregation   AggregationType   `yaml:"aggregation,omitempty"`
	Colors        []string          `yaml:"colors,omitempty"`
	HTMLContent   string            `yaml:"html_content,omitempty"`
	FilterMapping map[string]string `yaml:"filter_mapping,omitempty"`
	Layout        *Layout           `yaml:"layout,omitempty"`
}

// ReadManifest loads a seed manifest from disk.
func ReadManifest(path string) (*SeedManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader. Unknown keys are rejected.
func DecodeManifest(r io.Reader) (*SeedManifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc SeedManifest
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks required fields and that every name reference resolves.
func (doc *SeedManifest) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	for wi, ws := range doc.Workspaces {
		if ws.Name == "" {
			return fmt.Errorf("dashboard: manifest workspace at index %d is missing name", wi)
		}
		sources := make(map[string]struct{}, len(ws.DataSources))
		for _, src := range ws.DataSources {
			if src.Name == "" {
				return fmt.Errorf("dashboard: workspace %s has a data source without name", ws.Name)
			}
			if _, dup := sources[src.Name]; dup {
				return fmt.Errorf("dashboard: workspace %s duplicates data source %s", ws.Name, src.Name)
			}
			sources[src.Name] = struct{}{}
			if err := src.Connection.Validate(); err != nil {
				return fmt.Errorf("dashboard: data source %s: %w", src.Name, err)
			}
			if src.Schedule != nil {
				if err := (Schedule{Mode: src.Schedule.Mode, Interval: src.Schedule.Interval}).Validate(); err != nil {
					return fmt.Errorf("dashboard: data source %s: %w", src.Name, err)
				}
			}
		}
		queries := make(map[string]struct{}, len(ws.Queries))
		for _, q := range ws.Queries {
			if q.Name == "" || q.SQL == "" {
				return fmt.Errorf("dashboard: workspace %s has a query without name or sql", ws.Name)
			}
			if q.DataSource != "" {
				if _, ok := sources[q.DataSource]; !ok {
					return fmt.Errorf("dashboard: query %s references unknown data source %s", q.Name, q.DataSource)
				}
			}
			queries[q.Name] = struct{}{}
		}
		for _, dash := range ws.Dashboards {
			if dash.Name == "" {
				return fmt.Errorf("dashboard: workspace %s has a dashboard without name", ws.Name)
			}
			for _, w := range dash.Widgets {
				if !w.Type.Valid() {
					return fmt.Errorf("dashboard: widget %q has unknown type %q", w.Title, w.Type)
				}
				if w.Query != "" {
					if _, ok := queries[w.Query]; !ok {
						return fmt.Errorf("dashboard: widget %q references unknown query %s", w.Title, w.Query)
					}
				} else if w.Source != "" {
					if _, ok := sources[w.Source]; !ok {
						return fmt.Errorf("dashboard: widget %q references unknown data source %s", w.Title, w.Source)
					}
				}
			}
		}
	}
	return nil
}

func (doc *SeedManifest) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}
