package config

import (
	stdErrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
)

const sampleTOML = `
[addin]
name = "Finance"
wrapper_prefix = "fin_"
default_category = "Finance"
thread_local_returns = false
log_level = "debug"

[functions.NPV]
category = "Cash flow"
description = "Net present value"
thread_safe = true
arg_help = ["discount rate", "cash flows"]
`

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "xl", c.Addin.WrapperPrefix)
	assert.True(t, c.Addin.ThreadLocalReturns)
	assert.Equal(t, 245, c.Addin.MaxParameters)
	assert.NoError(t, c.Validate())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "Finance", c.Addin.Name)
	assert.Equal(t, "fin_", c.Addin.WrapperPrefix)
	assert.False(t, c.Addin.ThreadLocalReturns)
	assert.Equal(t, 245, c.Addin.MaxParameters, "unset keys keep their defaults")
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())

	o := c.Override("NPV")
	assert.Equal(t, "Cash flow", GetStringDefault(o, "category", ""))
	assert.True(t, GetBoolDefault(o, "thread_safe", false))
	assert.Empty(t, c.Override("missing"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"too many parameters", "[addin]\nmax_parameters = 300\n", "MaxParameters"},
		{"empty prefix", "[addin]\nwrapper_prefix = \"\"\n", "WrapperPrefix"},
		{"bad log level", "[addin]\nlog_level = \"loud\"\n", "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			var cfgErr *errors.ConfigError
			require.True(t, stdErrors.As(err, &cfgErr))
			assert.Contains(t, cfgErr.Field, tt.field)
		})
	}

	_, err := Parse([]byte("[addin\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(sampleTOML), 0o600))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Finance", c.Addin.Name)
	assert.True(t, filepath.IsAbs(c.Dir))

	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read")
}

func TestApply(t *testing.T) {
	c, err := Parse([]byte(sampleTOML))
	require.NoError(t, err)

	d := entities.FunctionDescriptor{
		Name:     "NPV",
		Category: "General",
		Args:     []entities.Argument{{Name: "rate"}, {Name: "flows"}, {Name: "extra", Description: "kept"}},
	}
	Apply(&d, c.Override("NPV"))

	assert.Equal(t, "Cash flow", d.Category)
	assert.Equal(t, "Net present value", d.Description)
	assert.True(t, d.Attributes.ThreadSafe)
	assert.False(t, d.Attributes.Volatile)
	assert.Equal(t, "discount rate", d.Args[0].Description)
	assert.Equal(t, "cash flows", d.Args[1].Description)
	assert.Equal(t, "kept", d.Args[2].Description)
}

func TestHelpers(t *testing.T) {
	o := Overrides{
		"s":     "text",
		"b":     true,
		"list":  []interface{}{"a", "b"},
		"mixed": []interface{}{"a", 1},
		"n":     int64(3),
	}

	s, ok := GetString(o, "s")
	assert.True(t, ok)
	assert.Equal(t, "text", s)
	_, ok = GetString(o, "n")
	assert.False(t, ok)

	b, ok := GetBool(o, "b")
	assert.True(t, ok)
	assert.True(t, b)
	assert.False(t, GetBoolDefault(o, "missing", false))

	list, ok := GetStringSlice(o, "list")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)
	_, ok = GetStringSlice(o, "mixed")
	assert.False(t, ok)
}

func TestStruct(t *testing.T) {
	err := Struct(&entities.FunctionDescriptor{})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	require.True(t, stdErrors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Field, "Name")
}
