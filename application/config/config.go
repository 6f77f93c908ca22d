// Package config handles xll.toml add-in configuration.
package config

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
)

// FileName is the configuration file looked up by Load.
const FileName = "xll.toml"

// Config is the add-in configuration.
type Config struct {
	Addin     Addin                `toml:"addin"`
	Functions map[string]Overrides `toml:"functions"`

	// Dir is the directory containing the xll.toml file (set at load time).
	Dir string `toml:"-"`
}

// Addin holds the settings that apply to every function.
type Addin struct {
	Name            string `toml:"name" validate:"max=255"`
	Module          string `toml:"module" validate:"max=255"`
	WrapperPrefix   string `toml:"wrapper_prefix" validate:"required,max=64"`
	DefaultCategory string `toml:"default_category" validate:"max=255"`
	LogLevel        string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HeapLimitBytes  int64  `toml:"heap_limit_bytes" validate:"min=0"`
	MaxParameters   int    `toml:"max_parameters" validate:"min=0,max=245"`

	// ThreadLocalReturns selects per-thread return slots for thread-safe
	// functions. When false those functions return heap values released
	// through the free callback.
	ThreadLocalReturns bool `toml:"thread_local_returns"`

	// EntryByOrdinal announces entry points by export ordinal instead of
	// by symbol name.
	EntryByOrdinal bool `toml:"entry_by_ordinal"`
}

// Overrides are per-function settings keyed by attribute name
// ("category", "description", "help_topic", "thread_safe", "volatile").
type Overrides = map[string]any

// validate is a package-level singleton; creating a validator per call is
// expensive.
var validate = validator.New()

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Addin: Addin{
			WrapperPrefix:      "xl",
			LogLevel:           "info",
			HeapLimitBytes:     abi.MaxTotalAllocations,
			MaxParameters:      245,
			ThreadLocalReturns: true,
		},
	}
}

// Load parses the xll.toml file in dir on top of Default.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes TOML data on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration's struct tags.
func (c *Config) Validate() error {
	return Struct(c)
}

// Override returns the overrides for the named function, never nil.
func (c *Config) Override(name string) Overrides {
	if o, ok := c.Functions[name]; ok && o != nil {
		return o
	}
	return Overrides{}
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Addin.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Struct validates v's struct tags with the shared validator and reports
// the first failing field as an *errors.ConfigError.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: fe.Namespace(),
			Err:   fmt.Errorf("failed on '%s' (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &errors.ConfigError{Err: err}
}
