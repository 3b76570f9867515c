// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: PHIONA_BACKEND__API_KEY sets backend.api_key.
const EnvPrefix = "PHIONA_"

const delim = "."

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"backend":      "backend.kind",
	"database-url": "backend.database_url",
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the config override flags to fs. Defaults shown in
// help come from Defaults; they only apply when no other layer sets the key.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("backend", d.Backend.Kind, "backend: memory, postgres or rest")
	fs.String("database-url", "", "PostgreSQL URL for the postgres backend")
	fs.String("http-addr", d.HTTP.Addr, "web adapter listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Sources names the inputs of Load. Empty fields are skipped.
type Sources struct {
	// File is a YAML config file. A missing file is an error only when
	// FileRequired is set.
	File         string
	FileRequired bool
	// EnvFile is a dotenv file whose PHIONA_ entries apply beneath the
	// process environment.
	EnvFile string
	Flags   *pflag.FlagSet
}

// defaultsProvider feeds Defaults to koanf as YAML.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}
	return data, nil
}

func (defaultsProvider) Read() (map[string]any, error) {
	return nil, errors.New("defaults provider only supports ReadBytes")
}

// Load builds the effective configuration and validates it.
func Load(src Sources) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(defaultsProvider{}, kyaml.Parser()); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if src.File != "" {
		if err := loadFile(k, src.File, src.FileRequired); err != nil {
			return nil, err
		}
	}

	if src.EnvFile != "" {
		vals, err := godotenv.Read(src.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "dotenv").With("path", src.EnvFile).Wrap(err)
		default:
			for name, v := range vals {
				if key := envKey(name); key != "" {
					if err := k.Set(key, v); err != nil {
						return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "dotenv").With("key", key).Wrap(err)
					}
				}
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, delim, envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if src.Flags != nil {
		flags := posflag.ProviderWithFlag(src.Flags, delim, k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(flags, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", path).Wrap(err)
	}
	return nil
}

// envKey maps PHIONA_BACKEND__API_KEY to backend.api_key. Other names map
// to "" and are ignored.
func envKey(name string) string {
	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(rest), "__", delim)
}
