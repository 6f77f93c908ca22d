package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	panicking := func(ctx context.Context, args []any) *value.Value {
		panic("test panic")
	}

	wrapped := PanicRecoveryMiddleware(logger)(panicking)

	var res *value.Value
	require.NotPanics(t, func() {
		res = wrapped(WithFunction(context.Background(), "F"), nil)
	})
	assert.True(t, value.IsSentinel(res))
	assert.Contains(t, buf.String(), "test panic")
	assert.Contains(t, buf.String(), "function=F")
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	ok := value.Num(1)
	normal := func(ctx context.Context, args []any) *value.Value {
		return &ok
	}

	wrapped := PanicRecoveryMiddleware(nil)(normal)
	assert.Same(t, &ok, wrapped(context.Background(), nil))
}

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var callOrder []string

	layer := func(name string) Middleware {
		return func(next ports.Procedure) ports.Procedure {
			return func(ctx context.Context, args []any) *value.Value {
				callOrder = append(callOrder, name+"-before")
				res := next(ctx, args)
				callOrder = append(callOrder, name+"-after")
				return res
			}
		}
	}

	handler := func(ctx context.Context, args []any) *value.Value {
		callOrder = append(callOrder, "handler")
		return nil
	}

	chained := Chain(handler, layer("mw1"), layer("mw2"), layer("mw3"))
	chained(context.Background(), nil)

	expected := []string{
		"mw1-before",
		"mw2-before",
		"mw3-before",
		"handler",
		"mw3-after",
		"mw2-after",
		"mw1-after",
	}
	assert.Equal(t, expected, callOrder)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr, err := New("Half", func(x float64) float64 { return x / 2 }, entities.Attributes{}, nil,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, err)

	proc := tr.Procedure(LoggingMiddleware(logger))

	res := proc(context.Background(), []any{3.0})
	n, _ := res.AsNum()
	assert.Equal(t, 1.5, n)
	assert.Contains(t, buf.String(), "invoking function")
	assert.Contains(t, buf.String(), "function=Half")
	assert.Contains(t, buf.String(), "function completed")

	buf.Reset()
	res = proc(context.Background(), []any{"bad"})
	assert.True(t, value.IsSentinel(res))
	assert.Contains(t, buf.String(), "returned #VALUE!")
}

func TestFunctionContext(t *testing.T) {
	ctx := context.Background()
	_, ok := FunctionFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, "unknown", GetFunction(ctx))

	ctx = WithFunction(ctx, "Sum")
	assert.Equal(t, "Sum", GetFunction(ctx))
}
