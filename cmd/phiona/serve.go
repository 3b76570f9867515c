// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/phiona/phiona/internal/accounts"
	accountspg "github.com/phiona/phiona/internal/accounts/postgres"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/memory"
	"github.com/phiona/phiona/internal/backend/postgres"
	"github.com/phiona/phiona/internal/backend/rest"
	"github.com/phiona/phiona/internal/config"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/logging"
	"github.com/phiona/phiona/internal/web"
)

const shutdownTimeout = 5 * time.Second

var errNotReady = oops.Code("NOT_READY").Errorf("portal is starting or shutting down")

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal web server",
		Long: `Start the portal: the JSON and websocket API on http.addr and,
unless metrics.addr is empty, the metrics and health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the portal until a signal arrives, ctx is cancelled
// or a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	logger := logging.SetDefault(logging.Options{
		Service: "phiona",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  deps.LogWriter,
	})

	logger.Info("starting portal",
		"backend", cfg.Backend.Kind,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	readiness := func() error {
		if !ready.Load() {
			return errNotReady
		}
		return nil
	}

	var observer flow.Observer = flow.NopObserver{}
	webOpts := web.Options{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		SecureCookies:     cfg.HTTP.SecureCookies,
		Logger:            logger,
	}
	regOpts := web.RegistryOptions{
		TTL:              cfg.HTTP.WorkspaceTTL,
		DefaultHackathon: cfg.Hackathon.DefaultName,
		Logger:           logger,
	}

	if cfg.Metrics.Addr != "" {
		obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, readiness)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(obsServer, "observability", logger)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())

		if m := obsServer.Metrics(); m != nil {
			observer = m
			webOpts.Metrics = m
			regOpts.OnCountChange = func(n int) { m.WorkspacesActive.Set(float64(n)) }
		}
	}
	regOpts.Observer = observer

	factory, closeBackend, err := openBackend(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	registry := web.NewRegistry(factory, regOpts)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		registry.Run(ctx, sweepInterval(cfg.HTTP.WorkspaceTTL))
	}()
	// Streams are hijacked connections; cancelling the registry closes them.
	defer func() {
		cancel()
		<-sweepDone
	}()

	webServer := deps.WebServerFactory(registry, webOpts)
	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")
	ready.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Portal started on " + webServer.Addr())
	logger.Info("portal ready", "http_addr", webServer.Addr(), "backend", cfg.Backend.Kind)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")
	stopServer(webServer, "web", logger)
	return nil
}

// openBackend returns the collaborator factory of the configured backend and
// a function releasing its resources.
func openBackend(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (backend.Factory, func(), error) {
	b := cfg.Backend
	switch b.Kind {
	case config.BackendMemory:
		mem, err := memory.New(ctx, memory.Options{
			AutoConfirm:      b.AutoConfirm,
			SeedCompetitions: b.Seed,
			Hasher:           deps.PasswordHasher,
			Logger:           logger,
		})
		if err != nil {
			return nil, nil, oops.With("backend", b.Kind).Wrap(err)
		}
		logger.Info("memory backend ready", "seeded", b.Seed, "auto_confirm", b.AutoConfirm)
		return mem.Factory(), func() {}, nil

	case config.BackendPostgres:
		if b.AutoMigrate {
			if err := runAutoMigration(b.DatabaseURL, deps.MigratorFactory, logger); err != nil {
				return nil, nil, err
			}
		}
		pool, err := deps.DatabaseConnector(ctx, b.DatabaseURL)
		if err != nil {
			return nil, nil, oops.With("backend", b.Kind).With("operation", "connect to database").Wrap(err)
		}
		hasher := deps.PasswordHasher
		if hasher == nil {
			hasher = accounts.NewArgon2idHasher(accounts.DefaultParams)
		}
		svc, err := accounts.NewService(accountspg.NewStore(pool), hasher, accounts.Options{
			AutoConfirm: b.AutoConfirm,
			Logger:      logger,
		})
		if err != nil {
			pool.Close()
			return nil, nil, oops.With("backend", b.Kind).Wrap(err)
		}
		records := postgres.NewRecordStore(pool)
		logger.Info("postgres backend ready", "database", cfg.Redacted().Backend.DatabaseURL)
		factory := func(context.Context) (backend.Collaborator, error) {
			return backend.Compose(accounts.NewClient(svc), records), nil
		}
		return factory, pool.Close, nil

	case config.BackendREST:
		svc, err := deps.RESTServiceFactory(rest.Config{
			URL:        b.URL,
			APIKey:     b.APIKey,
			Timeout:    b.Timeout,
			Retries:    b.Retries,
			MinVersion: b.MinVersion,
		}, logger)
		if err != nil {
			return nil, nil, oops.With("backend", b.Kind).Wrap(err)
		}
		if err := svc.CheckVersion(ctx); err != nil {
			return nil, nil, oops.With("backend", b.Kind).With("operation", "check backend version").Wrap(err)
		}
		logger.Info("rest backend ready", "url", b.URL)
		return svc.Factory(), func() {}, nil

	default:
		return nil, nil, oops.Code("CONFIG_INVALID").With("backend", b.Kind).Errorf("unknown backend %q", b.Kind)
	}
}

// runAutoMigration applies pending migrations before the pool opens.
func runAutoMigration(databaseURL string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := factory(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return oops.With("operation", "read schema version").Wrap(err)
	}
	logger.Info("database schema up to date", "version", v)
	return nil
}

// sweepInterval checks for idle workspaces four times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 4; interval >= time.Second {
		return interval
	}
	return time.Second
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
