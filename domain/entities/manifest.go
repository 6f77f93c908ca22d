package entities

// FunctionManifest is the document form of an add-in's function table. It is
// exported after registration and can be loaded back to overlay help text
// (descriptions, categories, help topics) before the next attach.
type FunctionManifest struct {
	Name        string          `json:"name" yaml:"name"`
	Version     string          `json:"version,omitempty" yaml:"version,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Functions   []ManifestEntry `json:"functions" yaml:"functions"`
}

// ManifestEntry describes one function of a FunctionManifest.
type ManifestEntry struct {
	Name        string     `json:"name" yaml:"name"`
	Signature   string     `json:"signature,omitempty" yaml:"signature,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	HelpTopic   string     `json:"help_topic,omitempty" yaml:"help_topic,omitempty"`
	Kind        string     `json:"kind,omitempty" yaml:"kind,omitempty" jsonschema:"enum=hidden,enum=function,enum=command"`
	Args        []Argument `json:"args,omitempty" yaml:"args,omitempty"`
	Attributes  Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Entry returns the manifest entry for the named function.
func (m *FunctionManifest) Entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Functions {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}
