package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xllconnector/xll-sdk/go/application/registry"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/host"
	"github.com/xllconnector/xll-sdk/go/infrastructure/parser"
)

func newRegistry() *registry.Registry {
	reg := registry.New(registry.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	reg.Add("Hypot", math.Hypot).
		Description("Hypotenuse").
		Arg("x", "first side").
		Arg("y", "second side").
		ThreadSafe()
	reg.Add("Pi", func() float64 { return math.Pi }).Category("Constants")
	return reg
}

func TestExport(t *testing.T) {
	reg := newRegistry()
	h := host.New()
	_, err := reg.Attach(context.Background(), h, h, "geo.xll")
	require.NoError(t, err)

	m := Export(reg, "geo", "1.0")
	require.Len(t, m.Functions, 2)
	assert.Equal(t, "Hypot", m.Functions[0].Name)
	assert.Equal(t, "QBB$", m.Functions[0].Signature)
	assert.Equal(t, "function", m.Functions[0].Kind)
	assert.True(t, m.Functions[0].Attributes.ThreadSafe)
	assert.Equal(t, "Constants", m.Functions[1].Category)

	data, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "signature: QBB$")

	back, err := parser.NewYamlManifestParser().Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestExport_Empty(t *testing.T) {
	reg := registry.New()
	data, err := Marshal(Export(reg, "empty", ""))
	require.NoError(t, err)
	assert.Contains(t, string(data), "functions: []")
}

func TestApply(t *testing.T) {
	reg := newRegistry()
	err := Apply(reg, &entities.FunctionManifest{
		Name: "geo",
		Functions: []entities.ManifestEntry{
			{
				Name:        "Hypot",
				Description: "Longueur de l'hypoténuse",
				Args: []entities.Argument{
					{Name: "x", Description: "premier côté"},
					{Name: "y"},
				},
			},
			{Name: "Pi", HelpTopic: "help.chm!10"},
		},
	})
	require.NoError(t, err)

	d, _ := reg.Lookup("Hypot")
	assert.Equal(t, "Longueur de l'hypoténuse", d.Description)
	assert.Equal(t, "premier côté", d.Args[0].Description)
	assert.Equal(t, "second side", d.Args[1].Description)

	pi, _ := reg.Lookup("Pi")
	assert.Equal(t, "Constants", pi.Category)
	assert.Equal(t, "help.chm!10", pi.HelpTopic)
}

func TestApply_UnknownNames(t *testing.T) {
	reg := newRegistry()
	err := Apply(reg, &entities.FunctionManifest{
		Functions: []entities.ManifestEntry{
			{Name: "Nope", Description: "x"},
			{Name: "Hypot", Category: "Geometry", Args: []entities.Argument{{Name: "z", Description: "?"}}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown function "Nope"`)
	assert.Contains(t, err.Error(), `no argument "z"`)

	// The rest of the overlay still applies and the function stays valid.
	d, _ := reg.Lookup("Hypot")
	assert.Equal(t, "Geometry", d.Category)

	h := host.New()
	report, err := reg.Attach(context.Background(), h, h, "geo.xll")
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestApply_Frozen(t *testing.T) {
	reg := newRegistry()
	h := host.New()
	_, err := reg.Attach(context.Background(), h, h, "geo.xll")
	require.NoError(t, err)

	err = Apply(reg, &entities.FunctionManifest{
		Functions: []entities.ManifestEntry{{Name: "Pi", Description: "late"}},
	})
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: geo\nfunctions:\n  - name: Pi\n"), 0o600))

	m, err := Read(path, parser.NewYamlManifestParser())
	require.NoError(t, err)
	_, ok := m.Entry("Pi")
	assert.True(t, ok)

	_, err = Read(filepath.Join(t.TempDir(), "missing.yaml"), parser.NewYamlManifestParser())
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "Function manifest", s["title"])
	assert.Equal(t, false, s["additionalProperties"])
}
