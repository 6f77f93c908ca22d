// Package dispatch builds the trampolines the host calls for each exported
// function. A trampoline unmarshals every wire argument into an adapter,
// calls the native function, marshals its result into a return slot and
// converts every failure into the #VALUE! sentinel. Nothing escapes to the
// host: conversion errors, native errors and panics all end in CatchError.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/xllconnector/xll-sdk/go/application/marshal"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	"github.com/xllconnector/xll-sdk/go/application/signature"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// State is a step of a call.
type State int

// Call states. Every call starts and ends in StateIdle.
const (
	StateIdle State = iota
	StateUnmarshal
	StateInvoke
	StateMarshalResult
	StateCatchError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUnmarshal:
		return "unmarshal"
	case StateInvoke:
		return "invoke"
	case StateMarshalResult:
		return "marshal_result"
	case StateCatchError:
		return "catch_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trampoline adapts one native function to the host calling convention.
type Trampoline struct {
	fn        reflect.Value
	alloc     retval.Allocator
	eng       *value.Engine
	logger    *slog.Logger
	observer  func(State)
	ret       *marshal.Marshaler
	name      string
	signature string
	params    []*marshal.Marshaler
	shape     signature.Shape
	inPlace   bool
	// suppressed functions are not run while the function wizard is open.
	suppressed bool
}

// Option configures a Trampoline.
type Option func(*Trampoline)

// WithEngine sets the engine used for argument copies and results.
func WithEngine(eng *value.Engine) Option {
	return func(t *Trampoline) {
		t.eng = eng
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trampoline) {
		t.logger = logger
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(State)) Option {
	return func(t *Trampoline) {
		t.observer = fn
	}
}

// New builds the trampoline for fn. The function type is checked against
// the closed type table; alloc receives the results.
func New(name string, fn any, attrs entities.Attributes, alloc retval.Allocator, opts ...Option) (*Trampoline, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("%w: %s: %T is not a function", sdkerrors.ErrUnsupportedType, name, fn)
	}
	shape, err := signature.Analyze(fv.Type())
	if err != nil {
		return nil, err
	}
	sig, err := signature.ForWrapper(shape, attrs)
	if err != nil {
		return nil, err
	}

	t := &Trampoline{
		name:      name,
		fn:        fv,
		shape:     shape,
		signature: sig,
		inPlace:   attrs.InPlace,
		alloc:     alloc,

		suppressed: attrs.WizardSuppressed,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.eng == nil {
		t.eng = value.DefaultEngine
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.alloc == nil && !t.inPlace {
		t.alloc = retval.NewStaticSlot(t.eng)
	}

	for _, p := range shape.Params {
		m, _ := marshal.For(p)
		t.params = append(t.params, m)
	}
	if shape.Return != nil {
		t.ret, _ = marshal.For(shape.Return)
	}
	return t, nil
}

// Name returns the exported name.
func (t *Trampoline) Name() string { return t.name }

// Signature returns the signature registered for the trampoline.
func (t *Trampoline) Signature() string { return t.signature }

// Shape returns the analysed native function type.
func (t *Trampoline) Shape() signature.Shape { return t.shape }

// WizardResult is returned by wizard-suppressed functions called while the
// function wizard is open.
const WizardResult = value.ErrNA

// Invoke runs one call. It never panics and never returns an error: a
// failed call yields value.ErrValueSentinel(), or nil for in-place
// functions, whose failures can only be logged.
//
// A wizard-suppressed function called with a context marked by
// WithWizardOpen is not run; it answers WizardResult.
func (t *Trampoline) Invoke(ctx context.Context, args []any) (result *value.Value) {
	if t.suppressed && WizardOpen(ctx) {
		t.logger.DebugContext(ctx, "xll: call skipped while function wizard is open", "function", t.name)
		if t.inPlace {
			return nil
		}
		res := value.Err(WizardResult)
		return t.alloc.Commit(ctx, &res)
	}

	state := StateUnmarshal
	t.observe(state)

	adapters := make([]marshal.Adapter, 0, len(t.params))
	defer func() {
		for i := len(adapters) - 1; i >= 0; i-- {
			t.release(ctx, adapters[i])
		}
		t.observe(StateIdle)
	}()
	defer func() {
		if r := recover(); r != nil {
			result = t.fail(ctx, state, &sdkerrors.PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	if len(args) != len(t.params) {
		idx := min(len(args), len(t.params))
		return t.fail(ctx, state, &sdkerrors.ArgumentConversionError{
			Index: idx,
			Err:   fmt.Errorf("%w: expected %d arguments, got %d", sdkerrors.ErrIncompatibleTag, len(t.params), len(args)),
		})
	}

	in := make([]reflect.Value, len(t.params))
	for i, m := range t.params {
		var (
			a   marshal.Adapter
			err error
		)
		if i == 0 && t.inPlace {
			a, err = m.AdaptInOut(t.eng, args[i])
		} else {
			a, err = m.Adapt(t.eng, args[i])
		}
		if err != nil {
			return t.fail(ctx, state, &sdkerrors.ArgumentConversionError{Index: i, Code: string(m.Code()), Err: err})
		}
		adapters = append(adapters, a)
		in[i] = nativeValue(a.Native(), m.NativeType())
	}

	state = StateInvoke
	t.observe(state)
	out := t.fn.Call(in)

	// The result passes to the trampoline, except for the buffers it
	// shares with the arguments, which stay with the adapters and the host.
	var borrowed *value.Borrowed
	if t.ret != nil && t.ret.OwnsResult() {
		borrowed = t.borrowed(args, adapters)
	}

	if t.shape.HasError {
		if errV := out[len(out)-1]; !errV.IsNil() {
			if t.ret != nil {
				t.ret.DiscardReturn(t.eng, out[0].Interface(), borrowed)
			}
			return t.fail(ctx, state, errV.Interface().(error))
		}
	}
	if t.inPlace {
		return nil
	}

	state = StateMarshalResult
	t.observe(state)
	var tmp value.Value
	if t.ret == nil {
		tmp = value.Nil()
	} else {
		native := out[0].Interface()
		if err := t.ret.MarshalReturn(t.eng, &tmp, native, borrowed); err != nil {
			t.ret.DiscardReturn(t.eng, native, borrowed)
			return t.fail(ctx, state, &sdkerrors.ArgumentConversionError{
				Index: sdkerrors.ReturnIndex,
				Code:  string(t.ret.Code()),
				Err:   err,
			})
		}
	}
	return t.alloc.Commit(ctx, &tmp)
}

// borrowed collects the buffers owned by the host's arguments and by the
// adapters' copies of them.
func (t *Trampoline) borrowed(args []any, adapters []marshal.Adapter) *value.Borrowed {
	b := value.NewBorrowed()
	for _, a := range args {
		marshal.Borrow(b, a)
	}
	for _, a := range adapters {
		marshal.Borrow(b, a.Native())
	}
	return b
}

func nativeValue(native any, typ reflect.Type) reflect.Value {
	if native == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(native)
}

func (t *Trampoline) observe(s State) {
	if t.observer != nil {
		t.observer(s)
	}
}

// fail is the CatchError step: every failure maps to the one sentinel.
func (t *Trampoline) fail(ctx context.Context, from State, err error) *value.Value {
	t.observe(StateCatchError)
	detail := sdkerrors.ToErrorDetail(err)
	t.logger.WarnContext(ctx, "xll: call failed",
		"function", t.name,
		"state", from.String(),
		"type", detail.Type,
		"error", err,
	)
	return t.toSentinel()
}

func (t *Trampoline) toSentinel() *value.Value {
	if t.inPlace {
		return nil
	}
	return value.ErrValueSentinel()
}

func (t *Trampoline) release(ctx context.Context, a marshal.Adapter) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.ErrorContext(ctx, "xll: adapter release panicked", "function", t.name, "panic", r)
		}
	}()
	a.Release()
}
