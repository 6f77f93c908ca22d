package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Middleware wraps a Procedure to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next ports.Procedure) ports.Procedure {
//	    return func(ctx context.Context, args []any) *value.Value {
//	        start := time.Now()
//	        defer func() { slog.Debug("call", "took", time.Since(start)) }()
//	        return next(ctx, args)
//	    }
//	}
type Middleware func(next ports.Procedure) ports.Procedure

// Chain applies middleware to proc so that mw[0] is the outermost layer.
func Chain(proc ports.Procedure, mw ...Middleware) ports.Procedure {
	for i := len(mw) - 1; i >= 0; i-- {
		proc = mw[i](proc)
	}
	return proc
}

// Procedure returns the trampoline as a host entry point wrapped in mw. The
// function name is recorded in the call context.
func (t *Trampoline) Procedure(mw ...Middleware) ports.Procedure {
	inner := Chain(t.Invoke, mw...)
	return func(ctx context.Context, args []any) *value.Value {
		return inner(WithFunction(ctx, t.name), args)
	}
}

// PanicRecoveryMiddleware returns a middleware that converts panics raised
// by other middleware into the #VALUE! sentinel instead of crashing the
// host. Trampolines recover native panics themselves.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ports.Procedure) ports.Procedure {
		return func(ctx context.Context, args []any) (result *value.Value) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "xll: panic in call chain",
						"function", GetFunction(ctx),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					result = value.ErrValueSentinel()
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every call at debug level
// and failed calls at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ports.Procedure) ports.Procedure {
		return func(ctx context.Context, args []any) *value.Value {
			name := GetFunction(ctx)
			logger.DebugContext(ctx, "xll: invoking function", "function", name, "args", len(args))
			result := next(ctx, args)
			if value.IsSentinel(result) {
				logger.WarnContext(ctx, "xll: function returned #VALUE!", "function", name)
			} else {
				logger.DebugContext(ctx, "xll: function completed", "function", name)
			}
			return result
		}
	}
}
