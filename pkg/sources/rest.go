package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-insight/components/dashboard"
)

// RESTConnector fetches a JSON array of objects from an HTTP endpoint.
type RESTConnector struct {
	client *http.Client
}

// RESTOption customizes the REST connector.
type RESTOption func(*RESTConnector)

// WithHTTPClient swaps the HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTConnector) {
		if client != nil {
			c.client = client
		}
	}
}

// NewRESTConnector builds a connector with a 10s client timeout.
func NewRESTConnector(opts ...RESTOption) *RESTConnector {
	c := &RESTConnector{client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RESTConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	if conn.REST == nil {
		return dashboard.Dataset{}, fmt.Errorf("%w: rest settings missing", dashboard.ErrInvalidConnection)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.REST.URL, nil)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if conn.REST.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+conn.REST.APIKey)
	}
	for k, v := range conn.REST.Headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, 4<<10))
		return dashboard.Dataset{}, fmt.Errorf("sources: remote error %d: %s", resp.StatusCode, buf.String())
	}
	ds, err := ReadJSON(resp.Body)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return withQuery(ctx, query, "rest", ds)
}
