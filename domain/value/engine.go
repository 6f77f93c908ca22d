package value

import (
	"errors"
	"fmt"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
)

// Buffer sizes accounted for each owned payload, matching the host's layout.
const (
	cellSize  = 32 // one array element
	rectSize  = 16 // one rectangle of a reference table
	refHeader = 8  // reference table count word
)

// Heap accounts for payload buffers. abi.Tracker is the standard
// implementation.
type Heap interface {
	Reserve(size int) error
	Free(size int)
}

// Engine owns the allocation policy for Value payloads. It is safe for
// concurrent use as long as each Value has a single owner.
type Engine struct {
	heap Heap
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHeap sets the heap used to account for buffers.
func WithHeap(h Heap) EngineOption {
	return func(e *Engine) {
		e.heap = h
	}
}

// NewEngine creates an Engine backed by a fresh abi.Tracker unless
// configured otherwise.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.heap == nil {
		e.heap = abi.NewTracker()
	}
	return e
}

// Heap returns the engine's heap.
func (e *Engine) Heap() Heap {
	return e.heap
}

// DefaultEngine is used by the package-level helpers.
var DefaultEngine = NewEngine()

func stringBytes(n int) int { return 2 * (n + 1) }
func refBytes(n int) int    { return refHeader + n*rectSize }
func arrayBytes(n int) int  { return n * cellSize }

// NewWide returns a KindStr value holding a fresh copy of u.
func (e *Engine) NewWide(u []uint16) (Value, error) {
	if len(u) > MaxStringLen {
		return Value{}, fmt.Errorf("%w: %d code units (max %d)", sdkerrors.ErrStringTooLong, len(u), MaxStringLen)
	}
	if err := e.heap.Reserve(stringBytes(len(u))); err != nil {
		return Value{}, err
	}
	// The spare element is the terminator slot accounted by stringBytes.
	buf := make([]uint16, len(u), len(u)+1)
	copy(buf, u)
	return Value{kind: KindStr, str: buf}, nil
}

// NewString returns a KindStr value holding s.
func (e *Engine) NewString(s string) (Value, error) {
	u, err := EncodeWide(s)
	if err != nil {
		return Value{}, err
	}
	return e.NewWide(u)
}

// NewANSIString widens a legacy string into a KindStr value.
func (e *Engine) NewANSIString(a ANSI) (Value, error) {
	s, err := a.Widen()
	if err != nil {
		return Value{}, err
	}
	return e.NewString(s)
}

// NewArray returns a rows x cols array holding deep copies of cells, which
// must be row-major with exactly rows*cols elements.
func (e *Engine) NewArray(rows, cols int, cells []Value) (Value, error) {
	if err := checkDims(rows, cols); err != nil {
		return Value{}, err
	}
	n := rows * cols
	if len(cells) != n {
		return Value{}, fmt.Errorf("array %dx%d needs %d cells, got %d", rows, cols, n, len(cells))
	}
	src := Value{kind: KindMulti, rows: int32(rows), cols: int32(cols), elems: cells} //nolint:gosec // G115: bounded by checkDims
	var out Value
	if err := e.Copy(&out, &src); err != nil {
		return Value{}, err
	}
	return out, nil
}

// NewRef returns a multi-area reference on sheet.
func (e *Engine) NewRef(sheet uint64, rects ...Rect) (Value, error) {
	if err := e.heap.Reserve(refBytes(len(rects))); err != nil {
		return Value{}, err
	}
	buf := make([]Rect, len(rects), max(len(rects), 1))
	copy(buf, rects)
	return Value{kind: KindRef, sheet: sheet, refs: buf}, nil
}

// NewBigData returns a KindBigData value holding a copy of b. An empty
// buffer yields a KindBigData value that owns nothing.
func (e *Engine) NewBigData(b []byte) (Value, error) {
	if len(b) == 0 {
		return Value{kind: KindBigData}, nil
	}
	if err := e.heap.Reserve(len(b)); err != nil {
		return Value{}, err
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	return Value{kind: KindBigData, data: buf}, nil
}

var errSentinelWrite = errors.New("value: the #VALUE! sentinel is read-only")

func checkDims(rows, cols int) error {
	if rows < 0 || cols < 0 || rows > MaxRows || cols > MaxCols {
		return fmt.Errorf("%w: %dx%d (max %dx%d)", sdkerrors.ErrMatrixTooLarge, rows, cols, MaxRows, MaxCols)
	}
	return nil
}

// Copy overwrites dst with an independent deep copy of src. Whatever dst
// held before is not released. Copying a value onto itself is a no-op, and
// the #VALUE! sentinel cannot be a destination.
// On failure dst is left as the zero Value and every buffer allocated during
// the copy has been released.
func (e *Engine) Copy(dst, src *Value) error {
	if dst == src {
		return nil
	}
	if IsSentinel(dst) {
		return errSentinelWrite
	}
	var out Value
	if err := e.copyInto(&out, src); err != nil {
		*dst = Value{}
		return err
	}
	*dst = out
	return nil
}

func (e *Engine) copyInto(dst, src *Value) error {
	switch src.kind {
	case KindStr:
		v, err := e.NewWide(src.str)
		if err != nil {
			return err
		}
		*dst = v
	case KindRef:
		v, err := e.NewRef(src.sheet, src.refs...)
		if err != nil {
			return err
		}
		*dst = v
	case KindBigData:
		v, err := e.NewBigData(src.data)
		if err != nil {
			return err
		}
		*dst = v
	case KindMulti:
		return e.copyArray(dst, src)
	default:
		*dst = *src
		dst.flags = 0
	}
	return nil
}

func (e *Engine) copyArray(dst, src *Value) error {
	if err := checkDims(int(src.rows), int(src.cols)); err != nil {
		return err
	}
	*dst = Value{kind: KindMulti, rows: src.rows, cols: src.cols}
	n := src.Len()
	if n == 0 {
		return nil
	}
	if len(src.elems) < n {
		return fmt.Errorf("array %dx%d has only %d elements", src.rows, src.cols, len(src.elems))
	}
	if err := e.heap.Reserve(arrayBytes(n)); err != nil {
		*dst = Value{}
		return err
	}
	elems := make([]Value, n)
	for i := 0; i < n; i++ {
		if err := e.copyInto(&elems[i], &src.elems[i]); err != nil {
			for j := 0; j < i; j++ {
				e.Release(&elems[j])
			}
			e.heap.Free(arrayBytes(n))
			*dst = Value{}
			return err
		}
	}
	dst.elems = elems
	return nil
}

// Release frees every buffer owned by v, recursing into array elements
// before the element buffer, and resets v to the zero Value. It is
// idempotent. Values flagged FlagHostFree are left untouched.
func (e *Engine) Release(v *Value) {
	if v == nil || v.flags&FlagHostFree != 0 || IsSentinel(v) {
		return
	}
	switch v.kind {
	case KindStr:
		if v.str != nil {
			e.heap.Free(stringBytes(len(v.str)))
		}
	case KindRef:
		if v.refs != nil {
			e.heap.Free(refBytes(len(v.refs)))
		}
	case KindBigData:
		if v.data != nil {
			e.heap.Free(len(v.data))
		}
	case KindMulti:
		if n := v.Len(); n > 0 && v.elems != nil {
			for i := 0; i < n; i++ {
				e.Release(&v.elems[i])
			}
			e.heap.Free(arrayBytes(n))
		}
	}
	*v = Value{}
}

// Move transfers src's payload to dst and clears src. dst is overwritten
// without being released. Moving out of the #VALUE! sentinel copies it and
// leaves it intact; moving into it does nothing.
func (e *Engine) Move(dst, src *Value) {
	if dst == src || IsSentinel(dst) {
		return
	}
	*dst = *src
	if !IsSentinel(src) {
		*src = Value{}
	}
}

// NewString builds a KindStr value with DefaultEngine.
func NewString(s string) (Value, error) { return DefaultEngine.NewString(s) }

// NewArray builds an array value with DefaultEngine.
func NewArray(rows, cols int, cells []Value) (Value, error) {
	return DefaultEngine.NewArray(rows, cols, cells)
}

// NewRef builds a reference value with DefaultEngine.
func NewRef(sheet uint64, rects ...Rect) (Value, error) { return DefaultEngine.NewRef(sheet, rects...) }

// NewBigData builds a binary value with DefaultEngine.
func NewBigData(b []byte) (Value, error) { return DefaultEngine.NewBigData(b) }

// Copy deep-copies src into dst with DefaultEngine.
func Copy(dst, src *Value) error { return DefaultEngine.Copy(dst, src) }

// Release releases v with DefaultEngine.
func Release(v *Value) { DefaultEngine.Release(v) }

// Move moves src into dst.
func Move(dst, src *Value) { DefaultEngine.Move(dst, src) }
