// Package abi provides allocation accounting for buffers that cross the host
// boundary, and the packed pointer/length encoding used by the wasm bridge.
package abi

import (
	"fmt"
	"sync/atomic"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
)

// MaxTotalAllocations is the default limit on bytes held by boundary buffers.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// PtrHighBits is the shift of the pointer half of a packed ptr/len value.
const PtrHighBits = 32

// Stats is a snapshot of a Tracker.
type Stats struct {
	Allocations int64 // successful reservations
	Frees       int64 // releases
	InUse       int64 // bytes currently reserved
}

// Live returns the number of reservations not yet released.
func (s Stats) Live() int64 {
	return s.Allocations - s.Frees
}

// Tracker counts reservations and releases of boundary buffers and enforces
// a limit on the bytes held at any time. It is safe for concurrent use.
type Tracker struct {
	limit       int64
	inUse       atomic.Int64
	allocations atomic.Int64
	frees       atomic.Int64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLimit sets the byte limit. A limit <= 0 disables the check.
func WithLimit(limit int64) TrackerOption {
	return func(t *Tracker) {
		t.limit = limit
	}
}

// NewTracker creates a Tracker limited to MaxTotalAllocations unless
// configured otherwise.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{limit: MaxTotalAllocations}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Reserve accounts for a buffer of size bytes. It fails with an
// *errors.AllocationFailure when the limit would be exceeded.
func (t *Tracker) Reserve(size int) error {
	n := int64(size)
	for {
		cur := t.inUse.Load()
		if t.limit > 0 && cur+n > t.limit {
			return &sdkerrors.AllocationFailure{Requested: n, InUse: cur, Limit: t.limit}
		}
		if t.inUse.CompareAndSwap(cur, cur+n) {
			break
		}
	}
	t.allocations.Add(1)
	return nil
}

// Free releases a reservation of size bytes.
func (t *Tracker) Free(size int) {
	t.frees.Add(1)
	// Clamp at zero so a mismatched size cannot corrupt the counter.
	for {
		cur := t.inUse.Load()
		next := cur - int64(size)
		if next < 0 {
			next = 0
		}
		if t.inUse.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Allocations: t.allocations.Load(),
		Frees:       t.frees.Load(),
		InUse:       t.inUse.Load(),
	}
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Packed values come from guests, so a null pointer with a non-zero length
// is reported as an error rather than a panic.
func UnpackPtrLen(packed uint64) (ptr, length uint32, err error) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		return 0, 0, fmt.Errorf("abi: null pointer with length %d", length)
	}
	return ptr, length, nil
}
