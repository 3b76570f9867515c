// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package config loads the portal configuration from defaults, a YAML file,
// a dotenv file, PHIONA_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

// Backend kinds.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// Config is the complete portal configuration.
type Config struct {
	Backend   Backend   `koanf:"backend" yaml:"backend"`
	HTTP      HTTP      `koanf:"http" yaml:"http"`
	Metrics   Metrics   `koanf:"metrics" yaml:"metrics"`
	Log       Log       `koanf:"log" yaml:"log"`
	Hackathon Hackathon `koanf:"hackathon" yaml:"hackathon"`
}

// Backend selects and configures the auth and storage collaborator.
type Backend struct {
	Kind string `koanf:"kind" yaml:"kind" validate:"required,oneof=memory postgres rest" jsonschema:"enum=memory,enum=postgres,enum=rest,description=collaborator implementation"`

	// URL and APIKey address the hosted service of the rest backend.
	URL     string        `koanf:"url" yaml:"url" validate:"omitempty,url" jsonschema:"description=hosted service base URL"`
	APIKey  string        `koanf:"api_key" yaml:"api_key" jsonschema:"description=hosted service API key"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=0" jsonschema:"type=string,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	// Retries bounds retries of idempotent reads.
	Retries    uint64 `koanf:"retries" yaml:"retries" validate:"max=10" jsonschema:"maximum=10"`
	MinVersion string `koanf:"min_version" yaml:"min_version" jsonschema:"description=semver constraint on the hosted auth service"`

	DatabaseURL string `koanf:"database_url" yaml:"database_url" validate:"omitempty,url" jsonschema:"description=PostgreSQL URL of the postgres backend"`
	AutoMigrate bool   `koanf:"auto_migrate" yaml:"auto_migrate"`

	// AutoConfirm signs new accounts in without email confirmation.
	AutoConfirm bool `koanf:"auto_confirm" yaml:"auto_confirm"`
	// Seed inserts sample competitions into the memory backend.
	Seed bool `koanf:"seed" yaml:"seed"`
}

// HTTP configures the web adapter.
type HTTP struct {
	Addr              string        `koanf:"addr" yaml:"addr" validate:"required,hostname_port"`
	WorkspaceTTL      time.Duration `koanf:"workspace_ttl" yaml:"workspace_ttl" validate:"min=1m" jsonschema:"type=string,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout" validate:"min=0" jsonschema:"type=string,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	// SecureCookies marks the workspace cookie Secure.
	SecureCookies bool `koanf:"secure_cookies" yaml:"secure_cookies"`
}

// Metrics configures the observability server. An empty Addr disables it.
type Metrics struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Log configures logging.
type Log struct {
	Format string `koanf:"format" yaml:"format" validate:"oneof=json text" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Hackathon configures the registration form.
type Hackathon struct {
	DefaultName string `koanf:"default_name" yaml:"default_name" validate:"required,max=200"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Backend: Backend{
			Kind:        BackendMemory,
			Timeout:     10 * time.Second,
			Retries:     3,
			AutoConfirm: true,
			Seed:        true,
		},
		HTTP: HTTP{
			Addr:              "127.0.0.1:8080",
			WorkspaceTTL:      30 * time.Minute,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Metrics:   Metrics{Addr: "127.0.0.1:9100"},
		Log:       Log{Format: "json", Level: "info"},
		Hackathon: Hackathon{DefaultName: "Student Hackathon 2024"},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(backendRules, Backend{})
	return v
}

// backendRules requires the settings of the selected backend.
func backendRules(sl validator.StructLevel) {
	b, ok := sl.Current().Interface().(Backend)
	if !ok {
		return
	}
	switch b.Kind {
	case BackendREST:
		if b.URL == "" {
			sl.ReportError(b.URL, "url", "URL", "required_for_rest", "")
		}
		if b.APIKey == "" {
			sl.ReportError(b.APIKey, "api_key", "APIKey", "required_for_rest", "")
		}
	case BackendPostgres:
		if b.DatabaseURL == "" {
			sl.ReportError(b.DatabaseURL, "database_url", "DatabaseURL", "required_for_postgres", "")
		}
	}
}

// Validate checks cfg and reports every problem at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return oops.Code("CONFIG_INVALID").
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_for_rest":
		return key + " is required for the rest backend"
	case "required_for_postgres":
		return key + " is required for the postgres backend"
	case "oneof":
		return key + " must be one of: " + fe.Param()
	case "url":
		return key + " must be a URL"
	case "hostname_port":
		return key + " must be host:port"
	default:
		return key + " fails " + fe.Tag() + " " + fe.Param()
	}
}

// Redacted returns a copy of c with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Backend.APIKey != "" {
		c.Backend.APIKey = "****"
	}
	if u, err := url.Parse(c.Backend.DatabaseURL); err == nil && c.Backend.DatabaseURL != "" {
		c.Backend.DatabaseURL = u.Redacted()
	}
	return c
}
