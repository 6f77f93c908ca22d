package wazero

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/xllconnector/xll-sdk/go/application/registry"
	"github.com/xllconnector/xll-sdk/go/domain/value"
	"github.com/xllconnector/xll-sdk/go/host"
	"github.com/xllconnector/xll-sdk/go/infrastructure/cborwire"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
)

// fakeGuest is linear memory with a bump allocator.
type fakeGuest struct {
	mem      []byte
	next     uint32
	allocErr error
}

func newFakeGuest() *fakeGuest {
	return &fakeGuest{mem: make([]byte, 1<<16), next: 8}
}

func (g *fakeGuest) Read(ptr, length uint32) ([]byte, bool) {
	if uint64(ptr)+uint64(length) > uint64(len(g.mem)) {
		return nil, false
	}
	return g.mem[ptr : ptr+length], true
}

func (g *fakeGuest) Write(ptr uint32, data []byte) bool {
	if uint64(ptr)+uint64(len(data)) > uint64(len(g.mem)) {
		return false
	}
	copy(g.mem[ptr:], data)
	return true
}

func (g *fakeGuest) Allocate(_ context.Context, size uint32) (uint32, error) {
	if g.allocErr != nil {
		return 0, g.allocErr
	}
	ptr := g.next
	g.next += size
	return ptr, nil
}

// put stores data in guest memory and returns its packed ptr+len.
func (g *fakeGuest) put(t *testing.T, data []byte) uint64 {
	t.Helper()
	ptr, _ := g.Allocate(context.Background(), uint32(len(data)))
	require.True(t, g.Write(ptr, data))
	return abi.PackPtrLen(ptr, uint32(len(data)))
}

type env struct {
	host    *host.Host
	tracker *abi.Tracker
	bridge  *bridge
	logs    *bytes.Buffer
}

func setup(t *testing.T) *env {
	t.Helper()
	tracker := abi.NewTracker()
	eng := value.NewEngine(value.WithHeap(tracker))
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	reg := registry.New(registry.WithEngine(eng), registry.WithLogger(logger))
	reg.Add("Hypot", math.Hypot).ThreadSafe()
	reg.Add("Concat", func(a, b string) string { return a + b })

	h := host.New(host.WithEngine(eng), host.WithFree(reg.Free), host.WithLogger(logger))
	report, err := reg.Attach(context.Background(), h, h, "bridge.xll")
	require.NoError(t, err)
	require.True(t, report.OK())

	cfg := defaultAdapterConfig()
	cfg.Logger = logger
	return &env{host: h, tracker: tracker, bridge: &bridge{caller: h, cfg: cfg}, logs: logs}
}

func (e *env) result(t *testing.T, g *fakeGuest, packed uint64) value.Value {
	t.Helper()
	require.NotZero(t, packed)
	ptr, length, err := abi.UnpackPtrLen(packed)
	require.NoError(t, err)
	data, ok := g.Read(ptr, length)
	require.True(t, ok)
	v, err := cborwire.Unmarshal(e.host.Engine(), data)
	require.NoError(t, err)
	return v
}

func TestBridge_Call(t *testing.T) {
	e := setup(t)
	g := newFakeGuest()

	args, err := cborwire.MarshalArgs([]value.Value{value.Num(3), value.Num(4)})
	require.NoError(t, err)
	res := e.result(t, g, e.bridge.call(context.Background(), g, "guest", "Hypot", g.put(t, args)))
	n, ok := res.AsNum()
	require.True(t, ok)
	assert.Equal(t, 5.0, n)

	a, _ := e.host.Engine().NewString("foo")
	b, _ := e.host.Engine().NewString("bar")
	args, err = cborwire.MarshalArgs([]value.Value{a, b})
	require.NoError(t, err)
	cborwire.ReleaseAll(e.host.Engine(), []value.Value{a, b})

	res = e.result(t, g, e.bridge.call(context.Background(), g, "guest", "Concat", g.put(t, args)))
	s, _ := res.AsString()
	assert.Equal(t, "foobar", s)
	e.host.Engine().Release(&res)

	// Only the static return slot of Concat still holds memory.
	assert.Equal(t, int64(1), e.tracker.Stats().Live())
}

func TestBridge_NoArguments(t *testing.T) {
	e := setup(t)
	g := newFakeGuest()

	// Omitted arguments are missing, which coerce to zero.
	res := e.result(t, g, e.bridge.call(context.Background(), g, "guest", "Hypot", 0))
	n, _ := res.AsNum()
	assert.Equal(t, 0.0, n)
}

func TestBridge_Failures(t *testing.T) {
	e := setup(t)
	g := newFakeGuest()

	tests := []struct {
		name   string
		fn     string
		packed uint64
		msg    string
	}{
		{"null pointer", "Hypot", 5, "null pointer"},
		{"too large", "Hypot", abi.PackPtrLen(8, DefaultMaxRequestSize+1), "exceeds maximum"},
		{"out of bounds", "Hypot", abi.PackPtrLen(1<<16-2, 16), "failed to read"},
		{"bad payload", "Hypot", g.put(t, []byte{0xff}), "unmarshal"},
		{"unknown function", "Nope", 0, "Nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.logs.Reset()
			res := e.result(t, g, e.bridge.call(context.Background(), g, "guest", tt.fn, tt.packed))
			code, ok := res.AsErr()
			require.True(t, ok)
			assert.Equal(t, value.ErrValue, code)
			assert.Contains(t, e.logs.String(), tt.msg)
		})
	}
}

func TestBridge_AllocateFailure(t *testing.T) {
	e := setup(t)
	g := newFakeGuest()
	g.allocErr = errors.New("out of memory")

	assert.Zero(t, e.bridge.call(context.Background(), g, "guest", "Hypot", 0))
	assert.Contains(t, e.logs.String(), "out of memory")
}

func TestRegisterWithRuntime(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	require.NoError(t, RegisterWithRuntime(ctx, rt, e.host))
	mod := rt.Module("xll_host")
	require.NotNil(t, mod)
	defs := mod.ExportedFunctionDefinitions()
	assert.Contains(t, defs, "Hypot")
	assert.Contains(t, defs, "Concat")

	// A direct call has no guest memory to deliver the result to.
	results, err := mod.ExportedFunction("Hypot").Call(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), results[0])
}

func TestRegisterWithRuntime_Functions(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	require.NoError(t, RegisterWithRuntime(ctx, rt, e.host, WithModuleName("sub"), WithFunctions("Hypot")))
	defs := rt.Module("sub").ExportedFunctionDefinitions()
	assert.Len(t, defs, 1)

	err := RegisterWithRuntime(ctx, rt, e.host, WithModuleName("other"), WithFunctions("Nope"))
	assert.ErrorContains(t, err, "not registered")
}

func TestOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	assert.Equal(t, "xll_host", cfg.ModuleName)
	assert.Equal(t, uint32(DefaultMaxRequestSize), cfg.MaxRequestSize)

	WithModuleName("custom")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithFunctions("A", "B")(&cfg)
	assert.Equal(t, "custom", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	assert.Equal(t, []string{"A", "B"}, cfg.Functions)
}

func TestBridge_GuestPacking(t *testing.T) {
	ptr, length, err := abi.UnpackPtrLen(binary.BigEndian.Uint64([]byte{0, 0, 0, 1, 0, 0, 0, 2}))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ptr)
	assert.Equal(t, uint32(2), length)

	// Malformed guest input is an error, not a panic.
	assert.NotPanics(t, func() {
		_, _, err = abi.UnpackPtrLen(5)
	})
	assert.Error(t, err)
}

func TestGuestName(t *testing.T) {
	ctx := WithGuestName(context.Background(), "plugin")
	name, ok := GuestNameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "plugin", name)
	assert.Equal(t, "plugin", GetGuestName(ctx, nil))
	assert.Equal(t, "", GetGuestName(context.Background(), nil))
}
