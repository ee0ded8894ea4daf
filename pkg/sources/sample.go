package sources

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/goliatone/go-insight/components/dashboard"
)

// Built-in demo datasets.
const (
	SampleSales   = "sales"
	SampleScatter = "scatter"
)

// SalesData returns the monthly sales demo rows.
func SalesData() dashboard.Dataset {
	fields := []string{"month", "revenue", "profit", "churn", "status", "category", "date"}
	rows := []dashboard.Row{
		{"month": "Jan", "revenue": 4000.0, "profit": 2400.0, "churn": 100.0, "status": "Active", "category": "Electronics", "date": "2024-01-01"},
		{"month": "Feb", "revenue": 3000.0, "profit": 1398.0, "churn": 200.0, "status": "Active", "category": "Furniture", "date": "2024-02-01"},
		{"month": "Mar", "revenue": 2000.0, "profit": 9800.0, "churn": 150.0, "status": "Active", "category": "Electronics", "date": "2024-03-01"},
		{"month": "Apr", "revenue": 2780.0, "profit": 3908.0, "churn": 180.0, "status": "Inactive", "category": "Clothing", "date": "2024-04-01"},
		{"month": "May", "revenue": 1890.0, "profit": 4800.0, "churn": 220.0, "status": "Inactive", "category": "Furniture", "date": "2024-05-01"},
		{"month": "Jun", "revenue": 2390.0, "profit": 3800.0, "churn": 190.0, "status": "Active", "category": "Clothing", "date": "2024-06-01"},
		{"month": "Jul", "revenue": 3490.0, "profit": 4300.0, "churn": 170.0, "status": "Active", "category": "Electronics", "date": "2024-07-01"},
	}
	return dashboard.NewDataset(fields, rows)
}

// ScatterData returns 50 delivery points with a fixed seed so every call
// yields the same rows.
func ScatterData() dashboard.Dataset {
	rng := rand.New(rand.NewPCG(42, 7))
	rows := make([]dashboard.Row, 50)
	for i := range rows {
		route := "Standard"
		if i%2 == 0 {
			route = "Express"
		}
		rows[i] = dashboard.Row{
			"x":          float64(rng.IntN(100)),
			"y":          float64(rng.IntN(100)),
			"z":          float64(rng.IntN(500)),
			"route_type": route,
		}
	}
	return dashboard.NewDataset([]string{"x", "y", "z", "route_type"}, rows)
}

// SampleDataset looks up a demo dataset by name.
func SampleDataset(name string) (dashboard.Dataset, bool) {
	switch name {
	case SampleSales, "":
		return SalesData(), true
	case SampleScatter:
		return ScatterData(), true
	}
	return dashboard.Dataset{}, false
}

// SampleConnector serves the built-in datasets. Queries run against a table
// named after the dataset.
type SampleConnector struct{}

func (SampleConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	name := ""
	if conn.Sample != nil {
		name = conn.Sample.Dataset
	}
	ds, ok := SampleDataset(name)
	if !ok {
		return dashboard.Dataset{}, fmt.Errorf("%w: unknown sample dataset %q", dashboard.ErrInvalidConnection, name)
	}
	if name == "" {
		name = SampleSales
	}
	return withQuery(ctx, query, name, ds)
}
