// Package insight assembles the dashboard service, its persistence, data
// source adapters, scheduler and transports into one application.
package insight

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"

	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	"github.com/goliatone/go-insight/components/dashboard"
	"github.com/goliatone/go-insight/components/dashboard/commands"
	"github.com/goliatone/go-insight/components/dashboard/gorouter"
	"github.com/goliatone/go-insight/components/dashboard/httpapi"
	"github.com/goliatone/go-insight/pkg/config"
	"github.com/goliatone/go-insight/pkg/sources"
	"github.com/goliatone/go-insight/pkg/storage/sqlite"
)

//go:embed seed/default.yaml
var defaultManifest []byte

// DefaultManifest returns the demo workspaces seeded into an empty store.
func DefaultManifest() (*dashboard.SeedManifest, error) {
	return dashboard.DecodeManifest(bytes.NewReader(defaultManifest))
}

// App owns every long-lived component of a running insight instance.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store     dashboard.Store
	closers   []io.Closer
	registry  *sources.Registry
	resolver  *sources.Resolver
	broadcast *dashboard.BroadcastHook
	telemetry *dashboard.LoggerTelemetry
	service   *dashboard.Service
	scheduler *dashboard.Scheduler
	executor  *httpapi.CommandExecutor
}

// Option customizes New.
type Option func(*App)

// WithStore replaces the store selected by the database config.
func WithStore(store dashboard.Store) Option {
	return func(a *App) {
		if store != nil {
			a.store = store
		}
	}
}

// WithRegistry replaces the default connector registry.
func WithRegistry(registry *sources.Registry) Option {
	return func(a *App) {
		if registry != nil {
			a.registry = registry
		}
	}
}

// New wires an App from cfg. Nothing is loaded until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("insight: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := openStore(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		if c, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}
	if a.registry == nil {
		a.registry = sources.DefaultRegistry()
	}

	a.resolver = sources.NewResolver(nil, a.registry, sources.WithLogger(logger))
	a.broadcast = dashboard.NewBroadcastHook()
	a.telemetry = dashboard.NewLoggerTelemetry(logger)

	var syncer dashboard.Syncer = a.resolver
	if cfg.Scheduler.Simulate {
		syncer = dashboard.DelaySyncer{Delay: cfg.Scheduler.SyncDelay}
	}
	a.service = dashboard.NewService(dashboard.Options{
		Store:       a.store,
		RefreshHook: dashboard.HookChain{dashboard.LoggingHook{Logger: logger.Named("events")}, a.resolver, a.broadcast},
		Telemetry:   a.telemetry,
		Syncer:      syncer,
		Logger:      logger,
	})
	a.resolver.SetCatalog(a.service)
	a.scheduler = dashboard.NewScheduler(a.service,
		dashboard.WithHeartbeat(cfg.Scheduler.Heartbeat),
		dashboard.WithSchedulerLogger(logger),
	)
	a.executor = httpapi.NewCommandExecutor(a.service, a.telemetry).WithResolver(a.resolver)
	return a, nil
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (dashboard.Store, error) {
	if cfg.Path == "" {
		logger.Info("using in-memory store")
		return dashboard.NewMemoryStore(), nil
	}
	store, err := sqlite.Open(cfg.Path, logger.Named("sqlite"))
	if err != nil {
		return nil, fmt.Errorf("insight: open store: %w", err)
	}
	logger.Info("using sqlite store", zap.String("path", cfg.Path))
	return store, nil
}

// Start loads persisted state. An empty store is seeded from the configured
// manifest, or the built-in demo when none is configured and seed is true.
func (a *App) Start(ctx context.Context, seed bool) error {
	if err := a.service.Start(ctx); err != nil {
		return err
	}
	if len(a.service.Workspaces()) > 0 {
		return nil
	}
	var (
		doc *dashboard.SeedManifest
		err error
	)
	switch {
	case a.cfg.SeedPath != "":
		doc, err = dashboard.ReadManifest(a.cfg.SeedPath)
	case seed:
		doc, err = DefaultManifest()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	report, err := a.Seed(ctx, doc)
	if err != nil {
		return err
	}
	a.logger.Info("seeded empty store",
		zap.Int("workspaces", report.Workspaces),
		zap.Int("dashboards", report.Dashboards),
		zap.Int("widgets", report.Widgets),
	)
	return nil
}

// Seed applies doc through the seed command.
func (a *App) Seed(ctx context.Context, doc *dashboard.SeedManifest) (dashboard.SeedReport, error) {
	var report dashboard.SeedReport
	cmd := commands.NewSeedWorkspaceCommand(a.service, a.resolver, a.telemetry)
	err := cmd.Execute(ctx, commands.SeedWorkspaceInput{Manifest: doc, Report: &report})
	return report, err
}

// RunScheduler blocks until ctx is cancelled. It returns immediately when the
// scheduler is disabled.
func (a *App) RunScheduler(ctx context.Context) {
	if !a.cfg.Scheduler.Enabled {
		a.logger.Info("scheduler disabled")
		return
	}
	a.scheduler.Run(ctx)
}

// Handler serves the JSON API and event streams over net/http.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	(&httpapi.Handlers{
		Executor:     a.executor,
		Broadcast:    a.broadcast,
		EmbedBaseURL: a.cfg.Server.EmbedBaseURL,
	}).Mount(mux)
	handler := httpapi.WithActivity(mux)
	if base := a.cfg.Server.BasePath; base != "" && base != "/" {
		outer := http.NewServeMux()
		outer.Handle(base+"/", http.StripPrefix(base, handler))
		return outer
	}
	return handler
}

// Mount registers the API on a go-router router under the configured base
// path.
func Mount[T any](a *App, r router.Router[T]) error {
	return gorouter.Mount(r, a.cfg.Server.BasePath, gorouter.Config{
		API:          a.executor,
		Broadcast:    a.broadcast,
		EmbedBaseURL: a.cfg.Server.EmbedBaseURL,
	})
}

// Service returns the dashboard service.
func (a *App) Service() *dashboard.Service { return a.service }
func (a *App) Executor() *httpapi.CommandExecutor { return a.executor }
func (a *App) Resolver() *sources.Resolver { return a.resolver }
func (a *App) Broadcast() *dashboard.BroadcastHook { return a.broadcast }
func (a *App) Scheduler() *dashboard.Scheduler { return a.scheduler }
func (a *App) Config() *config.Config { return a.cfg }

// Close stops the service and releases the store.
func (a *App) Close() error {
	errs := []error{a.service.Close()}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
