// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package config

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://phiona.dev/schemas/config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	schemaErr      error
)

// GenerateSchema returns the JSON Schema of the config file. Every key is
// optional; unknown keys are rejected.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		FieldNameTag:               "koanf",
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Phiona configuration"
	schema.Description = "Schema for the phiona config.yaml file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateYAML validates a config file against the schema. An empty file is
// valid.
func ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_YAML_INVALID").Wrap(err)
	}
	if doc == nil {
		return nil
	}

	sch, err := schema()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").Wrap(err)
	}
	return nil
}

func schema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = compileSchema()
	})
	return compiledSchema, schemaErr
}

func compileSchema() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	return sch, nil
}
