// Package app provides the top-level lifecycle management for the wallet
// tracker. It wires all subsystems, starts the monitor cycle, the push hub,
// and the HTTP API, and shuts everything down in order on termination.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/soltrack/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, initializes the token cache and monitor, and
// blocks until the context is cancelled. The cleanup function returned by
// Wire is registered on the App and runs when Close is called.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting tracker",
		slog.Int("api_port", a.cfg.Server.Port),
		slog.Int("ws_port", a.cfg.Push.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Token metadata first, then the monitor's initial wallet
	// reconciliation, then the outward-facing surfaces.
	if err := deps.TokenMeta.Warm(ctx); err != nil {
		return fmt.Errorf("app: warm token cache: %w", err)
	}
	if err := deps.Monitor.Initialize(ctx); err != nil {
		return fmt.Errorf("app: initialize monitor: %w", err)
	}

	deps.Bus.Subscribe(deps.Hub)
	deps.Bus.Subscribe(deps.Alerter)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Monitor.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("monitor: %w", err)
	})

	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("push hub: %w", err)
	})

	g.Go(func() error {
		err := deps.API.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("api server: %w", err)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			err := deps.Archiver.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("tracker stopped with error", slog.String("error", err.Error()))
		return err
	}

	a.logger.Info("tracker stopped cleanly")
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down tracker")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
