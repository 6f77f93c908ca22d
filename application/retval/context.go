package retval

import "context"

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var threadKey = &contextKey{name: "host_thread"}

// ThreadID identifies a host calculation thread.
type ThreadID uint64

// CoordinatorThread is the host's main thread, on which thread-unsafe
// functions run.
const CoordinatorThread ThreadID = 0

// WithThread records the host thread a call runs on.
func WithThread(ctx context.Context, id ThreadID) context.Context {
	return context.WithValue(ctx, threadKey, id)
}

// ThreadFromContext returns the host thread recorded in ctx.
func ThreadFromContext(ctx context.Context) (ThreadID, bool) {
	id, ok := ctx.Value(threadKey).(ThreadID)
	return id, ok
}

// GetThread returns the thread recorded in ctx, falling back to the
// coordinator thread.
func GetThread(ctx context.Context) ThreadID {
	if id, ok := ThreadFromContext(ctx); ok {
		return id
	}
	return CoordinatorThread
}
