package abi

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{
			name:   "typical values",
			ptr:    0x12345678,
			length: 0xABCDEF00,
			want:   (uint64(0x12345678) << PtrHighBits) | uint64(0xABCDEF00),
		},
		{
			name:   "zero pointer zero length",
			ptr:    0,
			length: 0,
			want:   0,
		},
		{
			name:   "max pointer",
			ptr:    0xFFFFFFFF,
			length: 1,
			want:   (uint64(0xFFFFFFFF) << PtrHighBits) | 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed, "packed value mismatch")

			gotPtr, gotLen, err := UnpackPtrLen(packed)
			require.NoError(t, err)
			assert.Equal(t, tt.ptr, gotPtr, "unpacked pointer mismatch")
			assert.Equal(t, tt.length, gotLen, "unpacked length mismatch")
		})
	}
}

func TestPackPtrLen_PanicsOnNullPointerWithLength(t *testing.T) {
	assert.Panics(t, func() {
		PackPtrLen(0, 100)
	}, "expected panic for null pointer with non-zero length")
}

func TestUnpackPtrLen_RejectsNullPointerWithLength(t *testing.T) {
	var (
		ptr, length uint32
		err         error
	)
	// ptr=0, len=1
	assert.NotPanics(t, func() { ptr, length, err = UnpackPtrLen(uint64(1)) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null pointer")
	assert.Zero(t, ptr)
	assert.Zero(t, length)
}

func TestTracker_ReserveFree(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.Reserve(1024))
	require.NoError(t, tr.Reserve(16))

	stats := tr.Stats()
	assert.Equal(t, int64(2), stats.Allocations)
	assert.Equal(t, int64(1040), stats.InUse)
	assert.Equal(t, int64(2), stats.Live())

	tr.Free(1024)
	tr.Free(16)

	stats = tr.Stats()
	assert.Equal(t, int64(2), stats.Frees)
	assert.Zero(t, stats.InUse)
	assert.Zero(t, stats.Live())
}

func TestTracker_Limit(t *testing.T) {
	tr := NewTracker(WithLimit(100))

	require.NoError(t, tr.Reserve(60))
	err := tr.Reserve(50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrHeapExhausted))

	var af *sdkerrors.AllocationFailure
	require.True(t, errors.As(err, &af))
	assert.Equal(t, int64(50), af.Requested)
	assert.Equal(t, int64(60), af.InUse)
	assert.Equal(t, int64(100), af.Limit)

	// A failed reservation is not counted.
	assert.Equal(t, int64(1), tr.Stats().Allocations)
}

func TestTracker_NoLimit(t *testing.T) {
	tr := NewTracker(WithLimit(0))
	require.NoError(t, tr.Reserve(MaxTotalAllocations+1))
}

func TestTracker_FreeClampsAtZero(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Reserve(8))
	tr.Free(100)
	assert.Zero(t, tr.Stats().InUse)
}

func TestTracker_Concurrency(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := tr.Reserve(32); err == nil {
					tr.Free(32)
				}
			}
		}()
	}
	wg.Wait()

	stats := tr.Stats()
	assert.Equal(t, int64(5000), stats.Allocations)
	assert.Equal(t, int64(5000), stats.Frees)
	assert.Zero(t, stats.InUse)
}
