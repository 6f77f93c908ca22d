// Package marshal converts between the host's wire representation of each
// type code and the native Go types exported functions use.
//
// Every argument is converted into an Adapter, a scoped temporary that owns
// whatever the conversion allocated. The dispatch layer releases adapters
// after the native call on every exit path.
//
// A value.Value or value.Matrix result built through the engine belongs to
// the caller once the native returns: its buffers are taken, not copied.
// Parts of a result that share storage with an argument are copied, and a
// result returned together with an error is released.
package marshal

import (
	"fmt"
	"reflect"

	"github.com/xllconnector/xll-sdk/go/application/signature"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Adapter is the per-argument temporary produced by unmarshalling.
type Adapter interface {
	// Native returns the value passed to the native function.
	Native() any
	// Release frees whatever the conversion allocated. For in/out
	// adapters it also writes the native's modifications back to the
	// wire value. Calling Release twice is a no-op.
	Release()
}

type adapter struct {
	native  any
	release func()
}

func (a *adapter) Native() any { return a.native }

func (a *adapter) Release() {
	if a.release != nil {
		r := a.release
		a.release = nil
		r()
	}
}

func borrowed(native any) Adapter {
	return &adapter{native: native}
}

// Marshaler handles one native type.
type Marshaler struct {
	native reflect.Type
	wire   reflect.Type
	code   signature.Code
	adapt  func(eng *value.Engine, wire any) (Adapter, error)
	inOut  func(eng *value.Engine, wire any) (Adapter, error)
	ret    func(eng *value.Engine, dst *value.Value, native any, borrowed *value.Borrowed) error
	// discard releases a result that is not marshalled. Only set for
	// types whose results carry engine buffers.
	discard func(eng *value.Engine, native any, borrowed *value.Borrowed)
}

// NativeType returns the Go type the function sees.
func (m *Marshaler) NativeType() reflect.Type { return m.native }

// WireType returns the Go type the host passes for this slot, nil for
// return-only types.
func (m *Marshaler) WireType() reflect.Type { return m.wire }

// Code returns the signature code.
func (m *Marshaler) Code() signature.Code { return m.code }

// CanParam reports whether the type may be a parameter.
func (m *Marshaler) CanParam() bool { return m.adapt != nil }

// CanReturn reports whether the type may be returned.
func (m *Marshaler) CanReturn() bool { return m.ret != nil }

// CanInOut reports whether the type may carry an in-place result.
func (m *Marshaler) CanInOut() bool { return m.inOut != nil }

// Adapt converts a wire argument.
func (m *Marshaler) Adapt(eng *value.Engine, wire any) (Adapter, error) {
	if m.adapt == nil {
		return nil, fmt.Errorf("%w: %s is not a parameter type", sdkerrors.ErrUnsupportedType, m.native)
	}
	return m.adapt(eng, wire)
}

// AdaptInOut converts a wire argument that the native modifies in place.
func (m *Marshaler) AdaptInOut(eng *value.Engine, wire any) (Adapter, error) {
	if m.inOut == nil {
		return nil, fmt.Errorf("%w: %s cannot be modified in place", sdkerrors.ErrUnsupportedType, m.native)
	}
	return m.inOut(eng, wire)
}

// MarshalReturn encodes a native result into dst, which must be empty.
// Buffers the result owns are transferred to dst; those it shares with
// borrowed are copied. On failure the result keeps whatever it owned, and
// should be passed to DiscardReturn.
func (m *Marshaler) MarshalReturn(eng *value.Engine, dst *value.Value, native any, borrowed *value.Borrowed) error {
	if m.ret == nil {
		return fmt.Errorf("%w: %s is not a return type", sdkerrors.ErrUnsupportedType, m.native)
	}
	return m.ret(eng, dst, native, borrowed)
}

// OwnsResult reports whether results of this type may carry buffers that
// pass to the caller, so that a dropped result must be discarded.
func (m *Marshaler) OwnsResult() bool { return m.discard != nil }

// DiscardReturn releases the buffers of a result that is not marshalled,
// such as one returned alongside an error. Buffers shared with borrowed
// are left alone.
func (m *Marshaler) DiscardReturn(eng *value.Engine, native any, borrowed *value.Borrowed) {
	if m.discard != nil && native != nil {
		m.discard(eng, native, borrowed)
	}
}

// Borrow records in b the buffers behind a wire argument or an adapter's
// native value, so that results sharing them are copied.
func Borrow(b *value.Borrowed, v any) {
	switch x := v.(type) {
	case value.Value:
		b.Add(&x)
	case *value.Value:
		b.Add(x)
	case value.Matrix:
		b.AddMatrix(x)
	}
}

// For returns the marshaler of a native type.
func For(t reflect.Type) (*Marshaler, bool) {
	m, ok := marshalers[t]
	return m, ok
}

func incompatible(want reflect.Type, got any) error {
	return fmt.Errorf("%w: want %s, got %T", sdkerrors.ErrIncompatibleTag, want, got)
}

func wireAs[T any](wire any) (T, error) {
	w, ok := wire.(T)
	if !ok {
		var zero T
		return zero, incompatible(reflect.TypeOf((*T)(nil)).Elem(), wire)
	}
	return w, nil
}

// ptrAs is wireAs for pointer wire types; nil pointers are rejected.
func ptrAs[T any](wire any) (*T, error) {
	p, err := wireAs[*T](wire)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil %T", sdkerrors.ErrIncompatibleTag, p)
	}
	return p, nil
}

func passthrough[T any](_ *value.Engine, wire any) (Adapter, error) {
	w, err := wireAs[T](wire)
	if err != nil {
		return nil, err
	}
	return borrowed(w), nil
}

func pointer[T any](_ *value.Engine, wire any) (Adapter, error) {
	p, err := ptrAs[T](wire)
	if err != nil {
		return nil, err
	}
	return borrowed(p), nil
}

func register(m *Marshaler) {
	marshalers[m.native] = m
}

var marshalers = map[reflect.Type]*Marshaler{}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
