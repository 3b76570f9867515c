// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package xdg provides XDG Base Directory paths for phiona.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "phiona"

// ConfigDir returns $XDG_CONFIG_HOME/phiona, falling back to ~/.config/phiona.
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// EnvFile returns the path of the optional dotenv file next to the config.
func EnvFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, ".env"), nil
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func dir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").With("env", env).Wrap(err)
	}
	return filepath.Join(home, fallback, appName), nil
}
