// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/phiona/phiona/internal/config"
	"github.com/phiona/phiona/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the phiona CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phiona",
		Short: "Phiona - student hackathon portal",
		Long: `Phiona runs the student hackathon portal: sign-up and sign-in,
hackathon registration, competitions and participant profiles, backed by
an in-memory store, PostgreSQL or a hosted auth and data service.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/phiona/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration for cmd. An explicit
// --config file must exist; the XDG default is optional.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	src := config.Sources{Flags: cmd.Flags()}

	if configFile != "" {
		src.File = configFile
		src.FileRequired = true
	} else {
		path, err := xdg.ConfigFile()
		if err != nil {
			return nil, oops.With("operation", "resolve config path").Wrap(err)
		}
		src.File = path
	}

	envFile, err := xdg.EnvFile()
	if err != nil {
		return nil, oops.With("operation", "resolve env file path").Wrap(err)
	}
	src.EnvFile = envFile

	return config.Load(src)
}
