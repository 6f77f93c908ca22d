package xll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xllconnector/xll-sdk/go/application/config"
	"github.com/xllconnector/xll-sdk/go/application/service"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
	"github.com/xllconnector/xll-sdk/go/host"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
	xlllog "github.com/xllconnector/xll-sdk/go/log"
)

type testAddin struct {
	*Addin
	host    *host.Host
	tracker *abi.Tracker
	logs    *bytes.Buffer
}

func newTestAddin(t *testing.T, cfg config.Config, hostOpts ...host.Option) *testAddin {
	t.Helper()
	tracker := abi.NewTracker()
	logs := &bytes.Buffer{}
	a := New(
		WithConfig(cfg),
		WithEngine(value.NewEngine(value.WithHeap(tracker))),
		WithLogger(xlllog.New(logs)),
	)
	hostOpts = append([]host.Option{host.WithEngine(a.Engine()), host.WithFree(a.AutoFree)}, hostOpts...)
	return &testAddin{Addin: a, host: host.New(hostOpts...), tracker: tracker, logs: logs}
}

func (ta *testAddin) open(t *testing.T) {
	t.Helper()
	report, err := ta.AutoOpen(context.Background(), ta.host, ta.host)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report.Failed)
}

func (ta *testAddin) call(t *testing.T, name string, cells ...value.Value) value.Value {
	t.Helper()
	res, err := ta.host.Call(context.Background(), name, cells...)
	require.NoError(t, err)
	return res
}

func TestTypedHelpers(t *testing.T) {
	ta := newTestAddin(t, config.Default())

	Func0(ta.Addin, "Pi", func() float64 { return math.Pi })
	Func2(ta.Addin, "Hypot", math.Hypot).Arg("x", "first side").Arg("y", "second side").ThreadSafe()
	Func1(ta.Addin, "Upper", strings.ToUpper)
	FuncE2(ta.Addin, "Div", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	})
	Func1(ta.Addin, "NA", func(x float64) value.ErrorCode { return value.ErrNA })
	Proc1(ta.Addin, "Sink", func(float64) {}).Kind(0)
	InPlace(ta.Addin, "Negate", func(x *float64) { *x = -*x })
	ta.open(t)

	req, ok := ta.host.Registered("Hypot")
	require.True(t, ok)
	assert.Equal(t, "QBB$", req.Signature)
	assert.Equal(t, "addin.xll", req.Module)

	res := ta.call(t, "Hypot", value.Num(3), value.Num(4))
	n, _ := res.AsNum()
	assert.Equal(t, 5.0, n)

	arg, err := ta.Engine().NewString("abc")
	require.NoError(t, err)
	res = ta.call(t, "Upper", arg)
	s, _ := res.AsString()
	assert.Equal(t, "ABC", s)
	ta.Engine().Release(&res)
	ta.Engine().Release(&arg)

	res = ta.call(t, "Div", value.Num(1), value.Num(0))
	code, _ := res.AsErr()
	assert.Equal(t, value.ErrValue, code)
	assert.Contains(t, ta.logs.String(), "division by zero")

	res = ta.call(t, "NA", value.Num(1))
	code, _ = res.AsErr()
	assert.Equal(t, value.ErrNA, code)

	res = ta.call(t, "Sink", value.Num(1))
	assert.True(t, res.IsNil())

	res = ta.call(t, "Negate", value.Num(2))
	n, _ = res.AsNum()
	assert.Equal(t, -2.0, n)
}

func TestExceptionContainment(t *testing.T) {
	ta := newTestAddin(t, config.Default())
	Func1(ta.Addin, "Boom", func(x float64) float64 {
		if x > 0 {
			panic("exploded")
		}
		var m map[string]int
		m["x"]++
		return 0
	})
	ta.open(t)

	for _, x := range []float64{1, -1} {
		var res value.Value
		require.NotPanics(t, func() { res = ta.call(t, "Boom", value.Num(x)) })
		code, ok := res.AsErr()
		require.True(t, ok)
		assert.Equal(t, value.ErrValue, code)
	}
	assert.Contains(t, ta.logs.String(), "exploded")
	assert.Contains(t, ta.logs.String(), `"function":"Boom"`)
}

func TestConcurrentThreadSafeCalls(t *testing.T) {
	for _, threadLocal := range []bool{true, false} {
		t.Run(fmt.Sprintf("thread_local=%v", threadLocal), func(t *testing.T) {
			cfg := config.Default()
			cfg.Addin.ThreadLocalReturns = threadLocal
			ta := newTestAddin(t, cfg, host.WithThreads(8))
			Func2(ta.Addin, "Label", func(prefix string, n float64) string {
				return fmt.Sprintf("%s-%g", prefix, n)
			}).ThreadSafe()
			ta.open(t)

			var wg sync.WaitGroup
			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					prefix, err := ta.Engine().NewString("cell")
					if !assert.NoError(t, err) {
						return
					}
					defer ta.Engine().Release(&prefix)

					res, err := ta.host.Call(context.Background(), "Label", prefix, value.Num(float64(i)))
					if !assert.NoError(t, err) {
						return
					}
					got, _ := res.AsString()
					assert.Equal(t, fmt.Sprintf("cell-%d", i), got)
					ta.Engine().Release(&res)
				}(i)
			}
			wg.Wait()

			stats := ta.tracker.Stats()
			if threadLocal {
				// At most one retained result per host thread.
				assert.LessOrEqual(t, stats.Live(), int64(8))
			} else {
				assert.Equal(t, stats.Allocations, stats.Frees)
			}
		})
	}
}

func TestAutoOpenOnce(t *testing.T) {
	ta := newTestAddin(t, config.Default())
	Func0(ta.Addin, "One", func() float64 { return 1 })
	ta.open(t)

	_, err := ta.AutoOpen(context.Background(), ta.host, ta.host)
	assert.ErrorIs(t, err, sdkerrors.ErrRegistryFrozen)

	b := Func0(ta.Addin, "Two", func() float64 { return 2 })
	assert.ErrorIs(t, b.Err(), sdkerrors.ErrRegistryFrozen)
}

type Finance struct {
	service.Service `category:"Finance"`

	Compound service.Op `method:"Grow" name:"COMPOUND" args:"principal,rate,years"`
}

func (Finance) Grow(p, r, n float64) float64 { return p * math.Pow(1+r, n) }

func TestExportService(t *testing.T) {
	ta := newTestAddin(t, config.Default())
	require.NoError(t, ta.ExportService(&Finance{}))
	ta.open(t)

	res := ta.call(t, "COMPOUND", value.Num(100), value.Num(0.1), value.Num(2))
	n, _ := res.AsNum()
	assert.InDelta(t, 121.0, n, 1e-9)

	req, _ := ta.host.Registered("COMPOUND")
	assert.Equal(t, "Finance", req.Category)
	assert.Equal(t, "principal,rate,years", req.ArgNames)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`
[addin]
name = "Stats"
wrapper_prefix = "st_"
`), 0o600))

	a, err := Load(dir, WithLogger(xlllog.New(&bytes.Buffer{})))
	require.NoError(t, err)
	assert.Equal(t, "Stats.xll", a.ModuleName())
	assert.Equal(t, "st_", a.Registry().Config().Addin.WrapperPrefix)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestModuleName(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "addin.xll", New(WithConfig(cfg)).ModuleName())
	cfg.Addin.Module = "custom.xll"
	assert.Equal(t, "custom.xll", New(WithConfig(cfg)).ModuleName())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
	b := Export("DefaultAddinProbe", func() float64 { return 0 })
	require.NoError(t, b.Err())
	assert.Contains(t, Default().Registry().Names(), "DefaultAddinProbe")

	// Unknown values are ignored by the free callback.
	v := value.Num(1)
	assert.NotPanics(t, func() { AutoFree(&v) })
}
