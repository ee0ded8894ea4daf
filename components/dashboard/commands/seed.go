package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insight/components/dashboard"
)

// SeedWorkspaceInput points at a seed manifest. Manifest wins over Path.
type SeedWorkspaceInput struct {
	Path     string
	Manifest *dashboard.SeedManifest
	// Report receives the counts when non-nil.
	Report *dashboard.SeedReport
}

// SeedWorkspaceCommand creates the workspaces described by a manifest.
type SeedWorkspaceCommand struct {
	service   *dashboard.Service
	resolver  dashboard.RowResolver
	telemetry Telemetry
}

// NewSeedWorkspaceCommand wires dependencies.
func NewSeedWorkspaceCommand(service *dashboard.Service, resolver dashboard.RowResolver, telemetry Telemetry) *SeedWorkspaceCommand {
	return &SeedWorkspaceCommand{
		service:   service,
		resolver:  resolver,
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[SeedWorkspaceInput] = (*SeedWorkspaceCommand)(nil)

// Execute loads the manifest and seeds it through the service.
func (c *SeedWorkspaceCommand) Execute(ctx context.Context, msg SeedWorkspaceInput) error {
	if c.service == nil {
		return missingService("seed")
	}
	doc := msg.Manifest
	if doc == nil {
		if msg.Path == "" {
			return errors.New("seed command requires a manifest or path")
		}
		var err error
		if doc, err = dashboard.ReadManifest(msg.Path); err != nil {
			return err
		}
	}
	report, err := dashboard.Seed(ctx, c.service, doc, c.resolver)
	if msg.Report != nil {
		*msg.Report = report
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{
		"workspaces": report.Workspaces,
		"dashboards": report.Dashboards,
		"widgets":    report.Widgets,
	})
	return nil
}
