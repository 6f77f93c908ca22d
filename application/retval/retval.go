// Package retval provides the storage a dispatch trampoline hands back to
// the host. The host reads a result after the call returns, so it cannot
// live on the trampoline's stack.
//
// Three strategies exist:
//   - StaticSlot: one slot per function, for thread-unsafe functions that
//     only run on the coordinating thread.
//   - ThreadSlots: one slot per function and host thread, for thread-safe
//     functions when thread-local storage is enabled.
//   - HeapSlots: a fresh value per call flagged for the free callback,
//     used for thread-safe functions otherwise.
//
// Reusable slots release their previous content when the next call commits.
package retval

import (
	"context"
	"sync"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Allocator stores a call's result where the host can read it.
type Allocator interface {
	// Commit moves v into the call's slot and returns the slot. v is
	// left empty.
	Commit(ctx context.Context, v *value.Value) *value.Value
}

// StaticSlot is a single reusable slot. It must only be used by functions
// that the host runs on one thread.
type StaticSlot struct {
	eng  *value.Engine
	slot value.Value
}

// NewStaticSlot creates a StaticSlot.
func NewStaticSlot(eng *value.Engine) *StaticSlot {
	return &StaticSlot{eng: eng}
}

// Commit implements Allocator.
func (s *StaticSlot) Commit(_ context.Context, v *value.Value) *value.Value {
	s.eng.Release(&s.slot)
	s.eng.Move(&s.slot, v)
	return &s.slot
}

// Close releases the slot's content.
func (s *StaticSlot) Close() {
	s.eng.Release(&s.slot)
}

// ThreadSlots keeps one reusable slot per host thread. A thread never runs
// two calls at once, so a slot has a single owner at any time.
type ThreadSlots struct {
	eng   *value.Engine
	slots sync.Map // ThreadID -> *value.Value
}

// NewThreadSlots creates a ThreadSlots.
func NewThreadSlots(eng *value.Engine) *ThreadSlots {
	return &ThreadSlots{eng: eng}
}

// Commit implements Allocator. The thread is taken from ctx.
func (t *ThreadSlots) Commit(ctx context.Context, v *value.Value) *value.Value {
	id := GetThread(ctx)
	s, ok := t.slots.Load(id)
	if !ok {
		s, _ = t.slots.LoadOrStore(id, new(value.Value))
	}
	slot := s.(*value.Value)
	t.eng.Release(slot)
	t.eng.Move(slot, v)
	return slot
}

// Threads returns the number of threads that own a slot.
func (t *ThreadSlots) Threads() int {
	n := 0
	t.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close releases every slot.
func (t *ThreadSlots) Close() {
	t.slots.Range(func(k, s any) bool {
		t.eng.Release(s.(*value.Value))
		t.slots.Delete(k)
		return true
	})
}

// HeapSlots allocates a fresh value per call. Each result is flagged
// value.FlagAddinFree and tracked until the host returns it through Free.
type HeapSlots struct {
	eng  *value.Engine
	mu   sync.Mutex
	live map[*value.Value]struct{}
}

// NewHeapSlots creates a HeapSlots.
func NewHeapSlots(eng *value.Engine) *HeapSlots {
	return &HeapSlots{eng: eng, live: make(map[*value.Value]struct{})}
}

// Commit implements Allocator.
func (h *HeapSlots) Commit(_ context.Context, v *value.Value) *value.Value {
	slot := new(value.Value)
	h.eng.Move(slot, v)
	slot.SetFlag(value.FlagAddinFree)

	h.mu.Lock()
	h.live[slot] = struct{}{}
	h.mu.Unlock()
	return slot
}

// Free releases a result handed out by Commit. Values without
// FlagAddinFree and values this allocator does not track are ignored, so
// the host may call it for any result.
func (h *HeapSlots) Free(v *value.Value) {
	if v == nil || !v.HasFlag(value.FlagAddinFree) {
		return
	}
	h.mu.Lock()
	_, ok := h.live[v]
	delete(h.live, v)
	h.mu.Unlock()
	if !ok {
		return
	}
	v.ClearFlag(value.FlagAddinFree)
	h.eng.Release(v)
}

// Live returns the number of results not yet freed.
func (h *HeapSlots) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Select picks the strategy for a function: thread-unsafe functions get a
// StaticSlot, thread-safe functions a ThreadSlots when threadLocal is set
// and the shared heap otherwise.
func Select(eng *value.Engine, attrs entities.Attributes, threadLocal bool, heap *HeapSlots) Allocator {
	switch {
	case !attrs.ThreadSafe:
		return NewStaticSlot(eng)
	case threadLocal:
		return NewThreadSlots(eng)
	default:
		return heap
	}
}
