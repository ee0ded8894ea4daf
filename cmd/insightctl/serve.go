package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	"github.com/goliatone/go-insight/pkg/insight"
)

type serveCmd struct {
	Addr      string `help:"Listen address (overrides server.addr)."`
	Transport string `enum:"router,http" default:"router" help:"router serves through go-router on fiber; http uses net/http."`
	NoSeed    bool   `name:"no-seed" help:"Do not seed the demo workspaces into an empty store."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	app, logger, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close app", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	if err := app.Start(ctx, !cmd.NoSeed); err != nil {
		return err
	}
	go app.RunScheduler(ctx)

	addr := cmd.Addr
	if addr == "" {
		addr = app.Config().Server.Addr
	}
	logger.Info("insight listening",
		zap.String("addr", addr),
		zap.String("base_path", app.Config().Server.BasePath),
		zap.String("transport", cmd.Transport),
	)

	if cmd.Transport == "http" {
		return serveHTTP(ctx, app, addr)
	}
	return serveRouter(ctx, app, addr)
}

func serveRouter(ctx context.Context, app *insight.App, addr string) error {
	server := router.NewFiberAdapter()
	if err := insight.Mount[*fiber.App](app, server.Router()); err != nil {
		return err
	}
	errs := make(chan error, 1)
	go func() { errs <- server.Serve(addr) }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

func serveHTTP(ctx context.Context, app *insight.App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
