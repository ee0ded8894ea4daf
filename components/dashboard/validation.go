package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ConfigValidator validates widget configurations against their chart type schema.
type ConfigValidator interface {
	Validate(def WidgetDefinition, config Configuration) error
}

// JSONSchemaValidator compiles chart type schemas and validates configurations.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the configuration satisfies the chart type schema. The
// configuration is checked in its JSON form, so omitted fields are absent.
func (v *JSONSchemaValidator) Validate(def WidgetDefinition, config Configuration) error {
	if len(def.Schema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("dashboard: marshal config for %s: %w", def.Code, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("dashboard: normalize config for %s: %w", def.Code, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("dashboard: configuration for %s failed validation: %w", def.Code, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(def WidgetDefinition) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[def.Code]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", def.Code, err)
	}
	compiler := jsonschema.NewCompiler()
	name := def.Code + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", def.Code, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", def.Code, err)
	}
	v.mu.Lock()
	v.compiled[def.Code] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// NoopConfigValidator accepts every configuration.
type NoopConfigValidator struct{}

// Validate implements ConfigValidator.
func (NoopConfigValidator) Validate(WidgetDefinition, Configuration) error { return nil }
