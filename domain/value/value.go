// Package value implements the tagged-variant data model exchanged with the
// spreadsheet host, together with its ownership rules: deep copy, recursive
// release and move.
//
// A Value holds exactly one active payload selected by its Kind. Payloads
// that need buffers (strings, reference tables, arrays, binary data) are
// allocated through an Engine, which accounts for every buffer so that the
// number of releases can be checked against the number of allocations.
package value

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Host limits.
const (
	MaxStringLen = 32767   // UTF-16 code units
	MaxANSILen   = 255     // bytes
	MaxRows      = 1 << 20 // 0x100000
	MaxCols      = 1 << 16 // 0x10000
)

// Rect is one rectangle of a reference. Bounds are inclusive and zero based.
type Rect struct {
	RowFirst int32
	RowLast  int32
	ColFirst int32
	ColLast  int32
}

// Value is the tagged variant. The zero Value has KindNone and owns nothing.
type Value struct {
	kind  Kind
	flags Flag

	num   float64
	w     int32
	b     bool
	err   ErrorCode
	str   []uint16
	rows  int32
	cols  int32
	elems []Value
	sheet uint64
	refs  []Rect
	sref  Rect
	data  []byte
}

// Num returns a KindNum value.
func Num(f float64) Value { return Value{kind: KindNum, num: f} }

// Int returns a KindInt value.
func Int(i int32) Value { return Value{kind: KindInt, w: i} }

// Bool returns a KindBool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Err returns a KindErr value.
func Err(code ErrorCode) Value { return Value{kind: KindErr, err: code} }

// Missing returns the value the host passes for an omitted argument.
func Missing() Value { return Value{kind: KindMissing} }

// Nil returns the empty-cell value.
func Nil() Value { return Value{kind: KindNil} }

// SRef returns a single-rectangle reference to the current sheet.
func SRef(r Rect) Value { return Value{kind: KindSRef, sref: r} }

// Empty and MissingValue are shared read-only instances of the empty-cell
// and omitted-argument values.
var (
	Empty        = Nil()
	MissingValue = Missing()
)

// sentinel is the fixed result handed to the host when a call fails. It is
// never flagged for release, and SetFlag, ClearFlag, Copy and Move leave it
// untouched.
var sentinel = Err(ErrValue)

// ErrValueSentinel returns the static #VALUE! result. It is shared by every
// failed call and must be treated as read-only.
func ErrValueSentinel() *Value {
	return &sentinel
}

// IsSentinel reports whether v is the static failure result.
func IsSentinel(v *Value) bool {
	return v == &sentinel
}

// Kind returns the type tag with ownership flags stripped.
func (v *Value) Kind() Kind { return v.kind }

// Flags returns the ownership flags.
func (v *Value) Flags() Flag { return v.flags }

// HasFlag reports whether f is set.
func (v *Value) HasFlag(f Flag) bool { return v.flags&f != 0 }

// SetFlag sets f. The sentinel is never flagged.
func (v *Value) SetFlag(f Flag) {
	if IsSentinel(v) {
		return
	}
	v.flags |= f
}

// ClearFlag clears f.
func (v *Value) ClearFlag(f Flag) {
	if IsSentinel(v) {
		return
	}
	v.flags &^= f
}

// TypeWord returns the kind and flags combined as the host's type word.
func (v *Value) TypeWord() uint16 { return uint16(v.kind) | uint16(v.flags) }

// FromTypeWord splits a host type word into kind and flags.
func FromTypeWord(w uint16) (Kind, Flag) {
	return Kind(w &^ flagMask), Flag(w & flagMask)
}

// IsMissing reports whether v is an omitted argument.
func (v *Value) IsMissing() bool { return v.kind == KindMissing }

// IsNil reports whether v is an empty cell.
func (v *Value) IsNil() bool { return v.kind == KindNil }

// AsNum returns the numeric payload.
func (v *Value) AsNum() (float64, bool) {
	if v.kind != KindNum {
		return 0, false
	}
	return v.num, true
}

// AsInt returns the integer payload.
func (v *Value) AsInt() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.w, true
}

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsErr returns the error code payload.
func (v *Value) AsErr() (ErrorCode, bool) {
	if v.kind != KindErr {
		return 0, false
	}
	return v.err, true
}

// AsString decodes the string payload.
func (v *Value) AsString() (string, bool) {
	if v.kind != KindStr {
		return "", false
	}
	return string(utf16.Decode(v.str)), true
}

// AsWide returns the UTF-16 payload. The slice is owned by v and must not be
// modified or retained past v's release.
func (v *Value) AsWide() (WideString, bool) {
	if v.kind != KindStr {
		return nil, false
	}
	return v.str, true
}

// Dims returns the dimensions of an array value.
func (v *Value) Dims() (rows, cols int) {
	if v.kind != KindMulti {
		return 0, 0
	}
	return int(v.rows), int(v.cols)
}

// Len returns the number of array elements. A zero-size array reports 0
// even when one dimension is nonzero.
func (v *Value) Len() int {
	if v.kind != KindMulti || v.rows <= 0 || v.cols <= 0 {
		return 0
	}
	return int(v.rows) * int(v.cols)
}

// At returns the element at row r, column c of an array, or nil when out of
// range.
func (v *Value) At(r, c int) *Value {
	if v.Len() == 0 || r < 0 || c < 0 || r >= int(v.rows) || c >= int(v.cols) {
		return nil
	}
	return &v.elems[r*int(v.cols)+c]
}

// Elems returns the row-major elements of an array value, owned by v.
func (v *Value) Elems() []Value {
	if v.Len() == 0 {
		return nil
	}
	return v.elems[:v.Len()]
}

// AsRef returns the sheet id and rectangles of a multi-area reference.
func (v *Value) AsRef() (sheet uint64, rects []Rect, ok bool) {
	if v.kind != KindRef {
		return 0, nil, false
	}
	return v.sheet, v.refs, true
}

// AsSRef returns the rectangle of a single reference.
func (v *Value) AsSRef() (Rect, bool) {
	if v.kind != KindSRef {
		return Rect{}, false
	}
	return v.sref, true
}

// AsBigData returns the binary payload, owned by v.
func (v *Value) AsBigData() ([]byte, bool) {
	if v.kind != KindBigData {
		return nil, false
	}
	return v.data, true
}

// String renders v for logs and test failures.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "<none>"
	case KindNum:
		return fmt.Sprintf("%g", v.num)
	case KindInt:
		return fmt.Sprintf("%d", v.w)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindErr:
		return v.err.String()
	case KindStr:
		return fmt.Sprintf("%q", string(utf16.Decode(v.str)))
	case KindMissing:
		return "<missing>"
	case KindNil:
		return "<nil>"
	case KindSRef:
		return fmt.Sprintf("sref%v", v.sref)
	case KindRef:
		return fmt.Sprintf("ref(%d)%v", v.sheet, v.refs)
	case KindBigData:
		return fmt.Sprintf("bigdata(%d)", len(v.data))
	case KindMulti:
		var sb strings.Builder
		fmt.Fprintf(&sb, "{%dx%d", v.rows, v.cols)
		for i, e := range v.Elems() {
			if i%int(v.cols) == 0 {
				sb.WriteString(";")
			} else {
				sb.WriteString(",")
			}
			sb.WriteString(e.String())
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return v.kind.String()
	}
}

// Equal reports whether a and b hold equal payloads. Flags are ignored.
func Equal(a, b *Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNum:
		return a.num == b.num
	case KindInt:
		return a.w == b.w
	case KindBool:
		return a.b == b.b
	case KindErr:
		return a.err == b.err
	case KindStr:
		return equalSlices(a.str, b.str)
	case KindSRef:
		return a.sref == b.sref
	case KindRef:
		return a.sheet == b.sheet && equalSlices(a.refs, b.refs)
	case KindBigData:
		return equalSlices(a.data, b.data)
	case KindMulti:
		if a.rows != b.rows || a.cols != b.cols {
			return false
		}
		ae, be := a.Elems(), b.Elems()
		for i := range ae {
			if !Equal(&ae[i], &be[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
