// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/phiona/phiona/internal/backend/postgres"
	"github.com/phiona/phiona/internal/config"
)

// newMigrateCmd creates the migrate command group.
func newMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(nil)
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	deps.setDefaults()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply, roll back and inspect the schema migrations of the postgres
backend. Without a subcommand, all pending migrations are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, runMigrateUp)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, runMigrateUp)
		},
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all portal data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all portal data; rerun with --yes")
			}
			return withMigrator(cmd, deps, runMigrateDown)
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping all portal data")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, runMigrateStatus)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it after repairing a migration that failed partway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(cmd *cobra.Command, m Migrator) error {
				return runMigrateForce(cmd, m, v)
			})
		},
	})

	return cmd
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes it.
func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(*cobra.Command, Migrator) error) (err error) {
	cfg, err := deps.ConfigLoader(cmd)
	if err != nil {
		return err
	}
	url, err := databaseURL(cfg)
	if err != nil {
		return err
	}

	m, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(cmd, m)
}

// databaseURL returns the configured PostgreSQL URL.
func databaseURL(cfg *config.Config) (string, error) {
	url := strings.TrimSpace(cfg.Backend.DatabaseURL)
	if url == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("a database URL is required: set backend.database_url, PHIONA_BACKEND__DATABASE_URL or --database-url")
	}
	return url, nil
}

func runMigrateUp(cmd *cobra.Command, m Migrator) error {
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("Schema is up to date")
		return nil
	}

	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed successfully (version %d)\n", v)
	return nil
}

func runMigrateDown(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Rolling back all migrations...")
	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
	}
	cmd.Println("All migrations rolled back")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.Applied()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}

	state := "clean"
	if dirty {
		state = "dirty (run migrate force after repairing)"
	}
	cmd.Printf("Current version: %d, %s\n", v, state)
	printMigrations(cmd, "Applied", applied)
	printMigrations(cmd, "Pending", pending)
	return nil
}

func printMigrations(cmd *cobra.Command, title string, versions []uint) {
	if len(versions) == 0 {
		cmd.Printf("%s: none\n", title)
		return
	}
	cmd.Printf("%s:\n", title)
	for _, v := range versions {
		name, err := postgres.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		cmd.Printf("  %s\n", name)
	}
}

func runMigrateForce(cmd *cobra.Command, m Migrator, version int) error {
	if err := m.Force(version); err != nil {
		return err
	}
	cmd.Printf("Schema version forced to %d\n", version)
	return nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: must be an integer", s)
	}
	return v, nil
}
