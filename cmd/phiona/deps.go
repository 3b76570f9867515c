// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/phiona/phiona/internal/accounts"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/postgres"
	"github.com/phiona/phiona/internal/backend/rest"
	"github.com/phiona/phiona/internal/config"
	"github.com/phiona/phiona/internal/observability"
	"github.com/phiona/phiona/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseConnector opens the PostgreSQL pool of the postgres backend.
	// Default: postgres.Connect
	DatabaseConnector func(ctx context.Context, url string) (DatabasePool, error)

	// MigratorFactory creates the migrator used by auto-migration.
	// Default: postgres.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// RESTServiceFactory creates the hosted backend service.
	// Default: rest.NewService
	RESTServiceFactory func(cfg rest.Config, logger *slog.Logger) (RESTService, error)

	// PasswordHasher hashes passwords of the memory and postgres backends.
	// Default: argon2id with accounts.DefaultParams
	PasswordHasher accounts.PasswordHasher

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the web adapter.
	// Default: web.NewServer
	WebServerFactory func(registry *web.Registry, opts web.Options) WebServer

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// ConfigLoader resolves the effective configuration.
	// Default: loadConfig
	ConfigLoader func(cmd *cobra.Command) (*config.Config, error)

	// MigratorFactory creates a migrator for a database URL.
	// Default: postgres.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// DatabasePool wraps the methods used from *pgxpool.Pool.
type DatabasePool interface {
	postgres.Pool
	Close()
}

// Migrator wraps the methods used from postgres.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Applied() ([]uint, error)
	Close() error
}

// RESTService wraps the methods used from rest.Service.
type RESTService interface {
	Factory() backend.Factory
	CheckVersion(ctx context.Context) error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

var (
	_ DatabasePool        = (*pgxpool.Pool)(nil)
	_ Migrator            = (*postgres.Migrator)(nil)
	_ RESTService         = (*rest.Service)(nil)
	_ ObservabilityServer = (*observability.Server)(nil)
	_ WebServer           = (*web.Server)(nil)
)

func defaultDatabaseConnector(ctx context.Context, url string) (DatabasePool, error) {
	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func defaultMigratorFactory(url string) (Migrator, error) {
	m, err := postgres.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func defaultRESTServiceFactory(cfg rest.Config, logger *slog.Logger) (RESTService, error) {
	svc, err := rest.NewService(cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (d *ServeDeps) setDefaults() {
	if d.DatabaseConnector == nil {
		d.DatabaseConnector = defaultDatabaseConnector
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = defaultMigratorFactory
	}
	if d.RESTServiceFactory == nil {
		d.RESTServiceFactory = defaultRESTServiceFactory
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.WebServerFactory == nil {
		d.WebServerFactory = func(registry *web.Registry, opts web.Options) WebServer {
			return web.NewServer(registry, opts)
		}
	}
}

func (d *MigrateDeps) setDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = loadConfig
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = defaultMigratorFactory
	}
}
