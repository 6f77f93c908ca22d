// Package manifest exports a function table as a YAML document and applies
// such a document back as an overlay of help text.
package manifest

import (
	stdErrors "errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xllconnector/xll-sdk/go/application/registry"
	"github.com/xllconnector/xll-sdk/go/application/schema"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
)

// Export builds the manifest of every function in reg. After attach the
// entries carry the signatures announced to the host.
func Export(reg *registry.Registry, name, version string) *entities.FunctionManifest {
	m := &entities.FunctionManifest{
		Name:      name,
		Version:   version,
		Functions: []entities.ManifestEntry{},
	}
	for _, d := range reg.Descriptors() {
		m.Functions = append(m.Functions, entities.ManifestEntry{
			Name:        d.Name,
			Signature:   d.Signature,
			Description: d.Description,
			Category:    d.Category,
			HelpTopic:   d.HelpTopic,
			Kind:        d.Kind.String(),
			Args:        d.Args,
			Attributes:  d.Attributes,
		})
	}
	return m
}

// Marshal renders m as YAML.
func Marshal(m *entities.FunctionManifest) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return out, nil
}

// Read parses the manifest file at path.
func Read(path string, parser ports.ManifestParser) (*entities.FunctionManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return m, nil
}

// Apply overlays the text fields of m onto the functions of reg. Empty
// fields leave the registered value in place; attributes and signatures
// are not overlaid. Entries naming unknown functions or arguments are
// reported together and do not stop the rest of the overlay.
func Apply(reg *registry.Registry, m *entities.FunctionManifest) error {
	var errs []error
	for _, e := range m.Functions {
		current, ok := reg.Lookup(e.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("manifest: unknown function %q", e.Name))
			continue
		}
		b, _ := reg.Edit(e.Name)
		if e.Description != "" {
			b.Description(e.Description)
		}
		if e.Category != "" {
			b.Category(e.Category)
		}
		if e.HelpTopic != "" {
			b.HelpTopic(e.HelpTopic)
		}
		for _, arg := range e.Args {
			if arg.Description == "" {
				continue
			}
			if !hasArg(current, arg.Name) {
				errs = append(errs, fmt.Errorf("manifest: function %q has no argument %q", e.Name, arg.Name))
				continue
			}
			b.ArgHelp(arg.Name, arg.Description)
		}
		if err := b.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

func hasArg(d entities.FunctionDescriptor, name string) bool {
	for _, a := range d.Args {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Schema returns the JSON schema of the manifest document.
func Schema() ([]byte, error) {
	return schema.GenerateSchema(entities.FunctionManifest{},
		schema.WithTitle("Function manifest", "Functions exported by a spreadsheet add-in"),
		schema.WithStrict(),
	)
}
