// Package schema generates JSON schemas for the documents the SDK reads:
// the function manifest and the add-in configuration.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

type generatorConfig struct {
	id          string
	title       string
	description string
	strict      bool
}

// Option configures GenerateSchema.
type Option func(*generatorConfig)

// WithID sets the schema $id.
func WithID(id string) Option {
	return func(c *generatorConfig) { c.id = id }
}

// WithTitle sets the schema title and description.
func WithTitle(title, description string) Option {
	return func(c *generatorConfig) {
		c.title = title
		c.description = description
	}
}

// WithStrict forbids properties that are not declared by the struct.
func WithStrict() Option {
	return func(c *generatorConfig) { c.strict = true }
}

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
// Property names follow the json tags; `jsonschema` tags add enums and
// other constraints.
func GenerateSchema(v any, opts ...Option) ([]byte, error) {
	var cfg generatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: !cfg.strict,
	}
	s := reflector.Reflect(v)
	if cfg.id != "" {
		s.ID = jsonschema.ID(cfg.id)
	}
	if cfg.title != "" {
		s.Title = cfg.title
	}
	if cfg.description != "" {
		s.Description = cfg.description
	}

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
