package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/goliatone/go-insight/pkg/config"
	"github.com/goliatone/go-insight/pkg/insight"
	"github.com/goliatone/go-insight/pkg/logging"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	Config string `short:"c" type:"path" help:"YAML config file (environment variables override it)."`
	Debug  bool   `help:"Enable debug logging."`
}

type cli struct {
	Globals

	Serve    serveCmd    `cmd:"" help:"Run the HTTP API and the refresh scheduler."`
	Seed     seedCmd     `cmd:"" help:"Seed workspaces from a manifest (defaults to the demo workspaces)."`
	List     listCmd     `cmd:"" help:"List workspaces, dashboards and widgets."`
	Preview  previewCmd  `cmd:"" help:"Aggregate a CSV or JSON file the way a widget would."`
	Export   exportCmd   `cmd:"" help:"Export the filtered rows of a widget as CSV."`
	NextSync nextSyncCmd `cmd:"" name:"next-sync" help:"Print the next run time for a sync interval."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var root cli
	kctx := kong.Parse(&root,
		kong.Name("insightctl"),
		kong.Description("Operate insight workspaces, dashboards and data sources."),
		kong.UsageOnError(),
		kong.Bind(&root.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.FatalIfErrorf(kctx.Run())
}

// open loads configuration and builds the application.
func (g *Globals) open() (*insight.App, *zap.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.Debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	app, err := insight.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("insightctl: %w", err)
	}
	return app, logger, nil
}
