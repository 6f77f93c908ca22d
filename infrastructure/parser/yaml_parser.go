// Package parser decodes function manifests.
package parser

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
)

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct {
	strict bool
}

// Option configures a YamlManifestParser.
type Option func(*YamlManifestParser)

// WithStrict rejects keys that do not map to a manifest field. It is on by
// default so that typos in an overlay do not pass silently.
func WithStrict(enabled bool) Option {
	return func(p *YamlManifestParser) {
		p.strict = enabled
	}
}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser(opts ...Option) ports.ManifestParser {
	p := &YamlManifestParser{strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse unmarshals YAML bytes into a FunctionManifest.
func (p *YamlManifestParser) Parse(data []byte) (*entities.FunctionManifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.strict)

	var manifest entities.FunctionManifest
	if err := dec.Decode(&manifest); err != nil {
		if stdErrors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty manifest")
		}
		return nil, err
	}

	seen := make(map[string]bool, len(manifest.Functions))
	for i, f := range manifest.Functions {
		if f.Name == "" {
			return nil, fmt.Errorf("function %d: missing name", i+1)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate function %q", f.Name)
		}
		seen[f.Name] = true
	}
	return &manifest, nil
}
