package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/xllconnector/xll-sdk/go/domain/value"
	"github.com/xllconnector/xll-sdk/go/infrastructure/cborwire"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
)

// DefaultMaxRequestSize limits argument payloads read from guest memory.
const DefaultMaxRequestSize = 1 << 20

// Caller invokes registered functions. *host.Host implements it.
type Caller interface {
	Functions() []string
	Call(ctx context.Context, name string, cells ...value.Value) (value.Value, error)
	Engine() *value.Engine
}

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "xll_host").
	ModuleName string

	// MaxRequestSize limits the size of incoming argument payloads.
	// Default is 1MB.
	MaxRequestSize uint32

	// Functions restricts the exports to the named functions. Empty means
	// every registered function.
	Functions []string

	Logger *slog.Logger
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "xll_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithFunctions exports only the named functions.
func WithFunctions(names ...string) AdapterOption {
	return func(c *AdapterConfig) {
		c.Functions = append(c.Functions, names...)
	}
}

// WithLogger sets the logger for failed calls.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = logger
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     "xll_host",
		MaxRequestSize: DefaultMaxRequestSize,
		Logger:         slog.Default(),
	}
}

// RegisterWithRuntime instantiates a host module in runtime that exports
// the functions of c.
//
// Each export is wrapped to:
//   - Read the CBOR argument array from guest memory
//   - Call the function through c
//   - Allocate response memory in the guest using the "allocate" export
//   - Write the CBOR result and return its packed ptr+len
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, c Caller, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	names := cfg.Functions
	if len(names) == 0 {
		names = c.Functions()
	} else {
		known := make(map[string]bool)
		for _, n := range c.Functions() {
			known[n] = true
		}
		for _, n := range names {
			if !known[n] {
				return fmt.Errorf("wazero: function %q is not registered", n)
			}
		}
	}

	b := &bridge{caller: c, cfg: cfg}
	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for _, name := range names {
		funcName := name // capture for closure
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = b.call(ctx, moduleGuest{mod: mod}, GetGuestName(ctx, mod), funcName, stack[0])
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// guest is the part of a guest module the bridge touches.
type guest interface {
	Read(ptr, length uint32) ([]byte, bool)
	Write(ptr uint32, data []byte) bool
	Allocate(ctx context.Context, size uint32) (uint32, error)
}

type moduleGuest struct {
	mod api.Module
}

func (g moduleGuest) Read(ptr, length uint32) ([]byte, bool) {
	mem := g.mod.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, length)
}

func (g moduleGuest) Write(ptr uint32, data []byte) bool {
	mem := g.mod.Memory()
	if mem == nil {
		return false
	}
	return mem.Write(ptr, data)
}

func (g moduleGuest) Allocate(ctx context.Context, size uint32) (uint32, error) {
	fn := g.mod.ExportedFunction("allocate")
	if fn == nil {
		return 0, fmt.Errorf("guest module missing 'allocate' export")
	}
	results, err := fn.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("failed to call guest allocate: %w", err)
	}
	return uint32(results[0]), nil //nolint:gosec // G115: WASM32 pointers are always 32-bit
}

type bridge struct {
	caller Caller
	cfg    AdapterConfig
}

// call runs one guest call. Failures before the function runs answer
// #VALUE!, as the host does for arguments it cannot convert.
func (b *bridge) call(ctx context.Context, g guest, guestName, name string, packed uint64) uint64 {
	logger := b.cfg.Logger.With("function", name, "guest", guestName)
	eng := b.caller.Engine()

	res, err := b.invoke(ctx, g, eng, name, packed)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: call failed", "error", err)
		res = value.Err(value.ErrValue)
	}
	defer eng.Release(&res)

	data, err := cborwire.Marshal(&res)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: cannot encode result", "error", err)
		errVal := value.Err(value.ErrValue)
		if data, err = cborwire.Marshal(&errVal); err != nil {
			return 0
		}
	}
	return b.writeResponse(ctx, g, logger, data)
}

func (b *bridge) invoke(ctx context.Context, g guest, eng *value.Engine, name string, packed uint64) (value.Value, error) {
	ptr, length, err := abi.UnpackPtrLen(packed)
	if err != nil {
		return value.Value{}, err
	}
	if length > b.cfg.MaxRequestSize {
		return value.Value{}, fmt.Errorf("request size %d exceeds maximum %d bytes", length, b.cfg.MaxRequestSize)
	}

	var args []value.Value
	if length > 0 {
		data, ok := g.Read(ptr, length)
		if !ok {
			return value.Value{}, fmt.Errorf("failed to read request from guest memory")
		}
		if args, err = cborwire.UnmarshalArgs(eng, data); err != nil {
			return value.Value{}, err
		}
		defer cborwire.ReleaseAll(eng, args)
	}
	return b.caller.Call(ctx, name, args...)
}

// writeResponse copies data into guest memory. Returns packed ptr+len or 0
// on failure.
func (b *bridge) writeResponse(ctx context.Context, g guest, logger *slog.Logger, data []byte) uint64 {
	ptr, err := g.Allocate(ctx, uint32(len(data))) //nolint:gosec // G115: CBOR of one value is far below 4GB
	if err != nil {
		logger.ErrorContext(ctx, "wazero: "+err.Error())
		return 0
	}
	if ptr == 0 {
		logger.ErrorContext(ctx, "wazero: guest allocate returned null")
		return 0
	}
	if !g.Write(ptr, data) {
		logger.ErrorContext(ctx, "wazero: failed to write response to guest memory")
		return 0
	}
	return abi.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: length checked by Allocate
}
