package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

// RefreshDataSourceInput names the source to sync now.
type RefreshDataSourceInput struct {
	DataSourceID string `json:"data_source_id"`
}

type refreshService interface {
	RefreshDataSource(ctx context.Context, id string) (dashboard.DataSource, error)
}

// RefreshDataSourceCommand runs a manual refresh. A sync failure is not an
// error here: it is recorded on the data source status.
type RefreshDataSourceCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshDataSourceCommand creates the command.
func NewRefreshDataSourceCommand(service refreshService, telemetry Telemetry) *RefreshDataSourceCommand {
	return &RefreshDataSourceCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshDataSourceInput] = (*RefreshDataSourceCommand)(nil)

// Execute triggers the refresh and waits for it to finish.
func (c *RefreshDataSourceCommand) Execute(ctx context.Context, msg RefreshDataSourceInput) error {
	if c.service == nil {
		return missingService("refresh")
	}
	if msg.DataSourceID == "" {
		return errors.New("refresh command requires data source id")
	}
	ds, err := c.service.RefreshDataSource(ctx, msg.DataSourceID)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.source.refresh.manual", map[string]any{
		"data_source_id": ds.ID,
		"status":         string(ds.Status),
	})
	return nil
}

// NotifyDashboardInput emits a refresh notification for transports.
type NotifyDashboardInput struct {
	Event dashboard.DashboardEvent
}

type notifier interface {
	NotifyDashboardUpdated(ctx context.Context, event dashboard.DashboardEvent) error
}

// NotifyDashboardCommand triggers refresh hooks without touching state.
type NotifyDashboardCommand struct {
	service   notifier
	telemetry Telemetry
}

// NewNotifyDashboardCommand creates the command.
func NewNotifyDashboardCommand(service notifier, telemetry Telemetry) *NotifyDashboardCommand {
	return &NotifyDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[NotifyDashboardInput] = (*NotifyDashboardCommand)(nil)

func (c *NotifyDashboardCommand) Execute(ctx context.Context, msg NotifyDashboardInput) error {
	if c.service == nil {
		return missingService("notify")
	}
	if err := c.service.NotifyDashboardUpdated(ctx, msg.Event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.notify", map[string]any{
		"reason":       msg.Event.Reason,
		"dashboard_id": msg.Event.DashboardID,
	})
	return nil
}
