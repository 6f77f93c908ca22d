package value

import "fmt"

// Borrowed records the payload buffers owned by someone other than the
// receiver of a result: the host's arguments and the copies made for a
// call. Results that share one of those buffers are copied rather than
// moved.
//
// A nil *Borrowed records nothing.
type Borrowed struct {
	bufs map[any]struct{}
}

// NewBorrowed returns an empty set.
func NewBorrowed() *Borrowed {
	return &Borrowed{bufs: make(map[any]struct{})}
}

// Add records the buffers of v and of its array elements.
func (b *Borrowed) Add(v *Value) {
	if v == nil {
		return
	}
	if k := bufferKey(v); k != nil {
		b.bufs[k] = struct{}{}
	}
	elems := v.Elems()
	for i := range elems {
		b.Add(&elems[i])
	}
}

// AddMatrix records the buffers of every cell of m.
func (b *Borrowed) AddMatrix(m Matrix) {
	for i := range m.Cells {
		b.Add(&m.Cells[i])
	}
}

// Shares reports whether v or any of its elements uses a recorded buffer.
func (b *Borrowed) Shares(v *Value) bool {
	if b == nil || len(b.bufs) == 0 || v == nil {
		return false
	}
	if b.has(bufferKey(v)) {
		return true
	}
	elems := v.Elems()
	for i := range elems {
		if b.Shares(&elems[i]) {
			return true
		}
	}
	return false
}

func (b *Borrowed) has(k any) bool {
	if k == nil {
		return false
	}
	_, ok := b.bufs[k]
	return ok
}

// bufferKey identifies the buffer behind v's payload by the address of its
// first element. Strings and reference tables always have capacity, so
// empty payloads are distinguishable too.
func bufferKey(v *Value) any {
	switch v.kind {
	case KindStr:
		return first(v.str)
	case KindRef:
		return first(v.refs)
	case KindBigData:
		return first(v.data)
	case KindMulti:
		return first(v.elems)
	default:
		return nil
	}
}

func first[T any](s []T) any {
	if cap(s) == 0 {
		return nil
	}
	return &s[:1][0]
}

// Take transfers ownership of src to dst. Parts of src that share storage
// with borrowed are deep-copied and stay with their owner; everything else
// is moved. src is cleared on success. On failure dst is the zero Value and
// src is unchanged.
func (e *Engine) Take(dst, src *Value, borrowed *Borrowed) error {
	if IsSentinel(dst) {
		return errSentinelWrite
	}
	if !borrowed.Shares(src) {
		e.Move(dst, src)
		dst.flags = 0
		return nil
	}
	if err := e.Copy(dst, src); err != nil {
		return err
	}
	e.Discard(src, borrowed)
	return nil
}

// Discard releases the buffers of v that do not share storage with
// borrowed and resets v.
func (e *Engine) Discard(v *Value, borrowed *Borrowed) {
	if v == nil || IsSentinel(v) {
		return
	}
	e.discard(v, borrowed)
	*v = Value{}
}

func (e *Engine) discard(v *Value, borrowed *Borrowed) {
	if v.flags&FlagHostFree != 0 {
		return
	}
	if !borrowed.Shares(v) {
		e.Release(v)
		return
	}
	if borrowed.has(bufferKey(v)) {
		return
	}
	// An owned array holding some borrowed elements.
	elems := v.Elems()
	for i := range elems {
		e.discard(&elems[i], borrowed)
	}
	e.heap.Free(arrayBytes(len(elems)))
}

// TakeMatrix builds an array value in dst from m's cells. Cells sharing
// storage with borrowed are deep-copied; the others are moved and cleared
// in m. On failure dst is the zero Value and m is unchanged.
func (e *Engine) TakeMatrix(dst *Value, m Matrix, borrowed *Borrowed) error {
	if IsSentinel(dst) {
		return errSentinelWrite
	}
	*dst = Value{}
	if err := checkDims(m.Rows, m.Cols); err != nil {
		return err
	}
	n := m.Size()
	if len(m.Cells) != n {
		return fmt.Errorf("matrix %dx%d needs %d cells, got %d", m.Rows, m.Cols, n, len(m.Cells))
	}
	out := Value{kind: KindMulti, rows: int32(m.Rows), cols: int32(m.Cols)} //nolint:gosec // G115: bounded by checkDims
	if n == 0 {
		*dst = out
		return nil
	}
	if err := e.heap.Reserve(arrayBytes(n)); err != nil {
		return err
	}

	elems := make([]Value, n)
	shared := make([]bool, n)
	for i := range m.Cells {
		if !borrowed.Shares(&m.Cells[i]) {
			continue
		}
		shared[i] = true
		if err := e.copyInto(&elems[i], &m.Cells[i]); err != nil {
			for j := 0; j < i; j++ {
				if shared[j] {
					e.Release(&elems[j])
				}
			}
			e.heap.Free(arrayBytes(n))
			return err
		}
	}
	for i := range m.Cells {
		if !shared[i] {
			e.Move(&elems[i], &m.Cells[i])
			elems[i].flags = 0
		}
	}
	out.elems = elems
	*dst = out
	return nil
}

// DiscardMatrix releases the cells of m that do not share storage with
// borrowed and resets m.
func (e *Engine) DiscardMatrix(m *Matrix, borrowed *Borrowed) {
	for i := range m.Cells {
		e.Discard(&m.Cells[i], borrowed)
	}
	*m = Matrix{}
}
