// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phiona/phiona/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printConfig(cmd, cfg.Redacted())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Check a config file against the schema and the config rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, args[0])
		},
	})

	return cmd
}

func printConfig(cmd *cobra.Command, cfg config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	cmd.Print(string(data))
	return nil
}

// runConfigValidate checks path without the XDG files and flag overrides.
func runConfigValidate(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := config.ValidateYAML(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	if _, err := config.Load(config.Sources{File: path, FileRequired: true}); err != nil {
		return err
	}
	cmd.Printf("%s is valid\n", path)
	return nil
}
