package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

type sourceService interface {
	AddDataSource(ctx context.Context, req dashboard.AddDataSourceRequest) (dashboard.DataSource, error)
	UpdateDataSourceSchedule(ctx context.Context, req dashboard.UpdateScheduleRequest) error
	SaveQuery(ctx context.Context, req dashboard.SaveQueryRequest) (dashboard.SavedQuery, error)
}

// AddDataSourceInput registers a data source. Result receives it when non-nil.
type AddDataSourceInput struct {
	dashboard.AddDataSourceRequest
	Result *dashboard.DataSource `json:"-"`
}

// AddDataSourceCommand registers a data source.
type AddDataSourceCommand struct {
	service   sourceService
	telemetry Telemetry
}

// NewAddDataSourceCommand creates the command.
func NewAddDataSourceCommand(service sourceService, telemetry Telemetry) *AddDataSourceCommand {
	return &AddDataSourceCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddDataSourceInput] = (*AddDataSourceCommand)(nil)

func (c *AddDataSourceCommand) Execute(ctx context.Context, msg AddDataSourceInput) error {
	if c.service == nil {
		return missingService("add data source")
	}
	ds, err := c.service.AddDataSource(ctx, msg.AddDataSourceRequest)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = ds
	}
	c.telemetry.Record(ctx, "dashboard.source.add", map[string]any{
		"data_source_id": ds.ID,
		"type":           string(ds.Type),
	})
	return nil
}

// UpdateScheduleCommand replaces a data source schedule.
type UpdateScheduleCommand struct {
	service   sourceService
	telemetry Telemetry
}

// NewUpdateScheduleCommand creates the command.
func NewUpdateScheduleCommand(service sourceService, telemetry Telemetry) *UpdateScheduleCommand {
	return &UpdateScheduleCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.UpdateScheduleRequest] = (*UpdateScheduleCommand)(nil)

func (c *UpdateScheduleCommand) Execute(ctx context.Context, msg dashboard.UpdateScheduleRequest) error {
	if c.service == nil {
		return missingService("schedule")
	}
	if err := c.service.UpdateDataSourceSchedule(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.source.schedule", map[string]any{
		"data_source_id": msg.DataSourceID,
		"mode":           string(msg.Mode),
		"interval":       string(msg.Interval),
	})
	return nil
}

// SaveQueryInput stores a SQL query. Result receives it when non-nil.
type SaveQueryInput struct {
	dashboard.SaveQueryRequest
	Result *dashboard.SavedQuery `json:"-"`
}

// SaveQueryCommand stores a SQL query.
type SaveQueryCommand struct {
	service   sourceService
	telemetry Telemetry
}

// NewSaveQueryCommand creates the command.
func NewSaveQueryCommand(service sourceService, telemetry Telemetry) *SaveQueryCommand {
	return &SaveQueryCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveQueryInput] = (*SaveQueryCommand)(nil)

func (c *SaveQueryCommand) Execute(ctx context.Context, msg SaveQueryInput) error {
	if c.service == nil {
		return missingService("save query")
	}
	q, err := c.service.SaveQuery(ctx, msg.SaveQueryRequest)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = q
	}
	c.telemetry.Record(ctx, "dashboard.query.save", map[string]any{"query_id": q.ID})
	return nil
}
