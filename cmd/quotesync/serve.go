package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), c.cfg, c.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store", cfg.Store.Driver),
	)

	// 1. Telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
		StoreDriver:  cfg.Store.Driver,
		RemoteName:   cfg.Remote.Name,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 2. Store, remote client, and collection
	deps, err := wire(ctx, cfg, logger, wireOptions{remote: true})
	if err != nil {
		return err
	}

	// 3. Synchronizer
	syncer, err := deps.newSynchronizer(cfg)
	if err != nil {
		return errors.Join(err, deps.Close(ctx))
	}

	// 4. Health checks and scrape-time gauges
	healthRegistry := ports.NewHealthRegistry()
	for _, checker := range []ports.HealthChecker{deps.store, deps.posts} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering health check %q: %w", checker.Name(), err)
		}
	}

	if err := telemetry.RegisterCollectionGauges(prometheus.DefaultRegisterer, deps.coll, syncer); err != nil {
		return fmt.Errorf("registering collection gauges: %w", err)
	}

	// 5. HTTP server and routes
	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:      logger,
		ServiceName: cfg.Telemetry.ServiceName,
		Quotes:      handlers.NewQuoteHandler(deps.coll),
		Sync:        handlers.NewSyncHandler(syncer, deps.board),
		Health: handlers.NewHealthHandler(handlers.HealthConfig{
			Registry:  healthRegistry,
			BuildInfo: handlers.NewBuildInfo(Version, Commit, BuildTime),
		}),
		Timeout: http.DefaultRequestTimeout,
	})

	// 6. Start serving, then sync once and keep polling
	serverErr, err := server.Start()
	if err != nil {
		return errors.Join(err, syncer.Shutdown(ctx), deps.Close(ctx))
	}

	if cfg.Sync.Enabled {
		go startupSync(ctx, logger, syncer)
		syncer.StartPolling(cfg.Sync.Interval)
	}

	// 7. Run until a signal arrives or the server fails
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err, ok := <-serverErr; ok && err != nil {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		return shutdown(context.WithoutCancel(ctx), logger, cfg.Server, server, syncer, deps)
	})

	return g.Wait()
}

// startupSync runs the first sync of a serve process. A failure is logged and
// left to the next poll.
func startupSync(ctx context.Context, logger *slog.Logger, syncer *app.Synchronizer) {
	summary, err := syncer.SyncNow(ctx, app.TriggerStartup)

	switch {
	case errors.Is(err, app.ErrSyncInProgress):
		return
	case err != nil:
		logger.Warn("startup sync failed", slog.Any("error", err))
	default:
		logger.Info("startup sync finished",
			slog.Int("added", summary.Added),
			slog.Int("updated", summary.Updated),
		)
	}
}

// shutdown stops accepting requests, cancels any sync in flight, waits for
// background posts, and closes the store, all within ShutdownTimeout.
func shutdown(
	ctx context.Context,
	logger *slog.Logger,
	serverCfg config.ServerConfig,
	server *http.Server,
	syncer *app.Synchronizer,
	deps *components,
) error {
	ctx, cancel := context.WithTimeout(ctx, serverCfg.ShutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", serverCfg.ShutdownTimeout),
	)

	var errs []error

	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if err := syncer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("synchronizer shutdown: %w", err))
	}

	if err := deps.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	logger.Info("shutdown complete")

	return errors.Join(errs...)
}
