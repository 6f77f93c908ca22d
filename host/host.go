package host

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/xllconnector/xll-sdk/go/application/registry"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	"github.com/xllconnector/xll-sdk/go/application/signature"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Host implements ports.HostRegistrar and ports.ExportTable.
type Host struct {
	mu        sync.RWMutex
	exports   map[string]*export
	symbols   []string // index+1 is the ordinal
	functions map[string]*function
	nextID    entities.RegistrationID
	rejected  map[string]errors.HostReturnCode

	// coordinator serialises thread-unsafe functions.
	coordinator sync.Mutex
	pool        chan retval.ThreadID
	threads     int

	free       ports.FreeFunc
	wizardOpen func() bool
	eng        *value.Engine
	logger     *slog.Logger
}

type export struct {
	proc    ports.Procedure
	ordinal uint32
}

type function struct {
	req    entities.RegistrationRequest
	sig    signature.Parsed
	symbol string
	id     entities.RegistrationID
}

// New creates a host with an empty export table.
func New(opts ...Option) *Host {
	h := &Host{
		exports:   make(map[string]*export),
		functions: make(map[string]*function),
		rejected:  make(map[string]errors.HostReturnCode),
		nextID:    1,
		threads:   4,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.eng == nil {
		h.eng = value.DefaultEngine
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	// Thread 0 is the coordinating thread; calculation threads start at 1.
	h.pool = make(chan retval.ThreadID, h.threads)
	for i := 1; i <= h.threads; i++ {
		h.pool <- retval.ThreadID(i)
	}
	return h
}

// Bind implements ports.ExportTable.
func (h *Host) Bind(symbol string, proc ports.Procedure) error {
	if symbol == "" {
		return fmt.Errorf("export symbol cannot be empty")
	}
	if proc == nil {
		return fmt.Errorf("export %s: nil procedure", symbol)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.exports[symbol]; exists {
		return fmt.Errorf("duplicate export symbol: %q", symbol)
	}
	h.symbols = append(h.symbols, symbol)
	h.exports[symbol] = &export{proc: proc, ordinal: uint32(len(h.symbols))}
	return nil
}

// Lookup implements ports.ExportTable.
func (h *Host) Lookup(symbol string) (uint32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.exports[symbol]; ok {
		return e.ordinal, true
	}
	return 0, false
}

// Register implements ports.HostRegistrar. The request is rendered to its
// operand list and checked the way the host checks a register call.
func (h *Host) Register(ctx context.Context, req entities.RegistrationRequest) (entities.RegistrationID, error) {
	ops, err := registry.Operands(h.eng, req)
	if err != nil {
		return 0, &errors.HostProtocolError{Call: "register " + req.Name, Code: errors.RetInvalidOperand}
	}
	defer registry.ReleaseOperands(h.eng, ops)

	fail := func(code errors.HostReturnCode) (entities.RegistrationID, error) {
		return 0, &errors.HostProtocolError{Call: "register " + req.Name, Code: code}
	}

	if code, ok := h.rejected[req.Name]; ok {
		return fail(code)
	}
	sig, err := signature.Parse(req.Signature)
	if err != nil {
		return fail(errors.RetInvalidOperand)
	}
	if len(sig.Params) > signature.MaxParams || len(ops) > signature.MaxParams+10 {
		return fail(errors.RetInvalidCount)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	symbol := req.EntryPoint.Symbol
	if req.EntryPoint.ByOrdinal() {
		i := int(req.EntryPoint.Ordinal) - 1
		if i < 0 || i >= len(h.symbols) {
			return fail(errors.RetInvalidFunction)
		}
		symbol = h.symbols[i]
	}
	if _, ok := h.exports[symbol]; !ok {
		return fail(errors.RetInvalidFunction)
	}

	id := h.nextID
	h.nextID++
	h.functions[req.Name] = &function{req: req, sig: sig, symbol: symbol, id: id}

	h.logger.DebugContext(ctx, "host: registered",
		"function", req.Name,
		"symbol", symbol,
		"operands", len(ops),
	)
	return id, nil
}

// Registered returns the request a function was registered with.
func (h *Host) Registered(name string) (entities.RegistrationRequest, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.functions[name]
	if !ok {
		return entities.RegistrationRequest{}, false
	}
	return f.req, true
}

// Functions returns the registered function names in sorted order.
func (h *Host) Functions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.functions))
	for name := range h.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine returns the engine that owns values returned by Call.
func (h *Host) Engine() *value.Engine {
	return h.eng
}

func (h *Host) lookupFunction(name string) (*function, ports.Procedure, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.functions[name]
	if !ok {
		return nil, nil, false
	}
	return f, h.exports[f.symbol].proc, true
}
