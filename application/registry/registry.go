// Package registry holds the table of exported functions and announces it
// to the host.
//
// Functions are added independently, in any order, before the add-in is
// attached. Attach freezes the table; afterwards descriptors are immutable
// and shared read-only.
package registry

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/xllconnector/xll-sdk/go/application/config"
	"github.com/xllconnector/xll-sdk/go/application/dispatch"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Registry is the function table of one add-in.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	attached map[string]entities.FunctionDescriptor
	frozen   bool

	cfg        config.Config
	logger     *slog.Logger
	eng        *value.Engine
	heap       *retval.HeapSlots
	middleware []dispatch.Middleware
}

type entry struct {
	fn   any
	desc entities.FunctionDescriptor
	errs []error
}

// Option configures a Registry.
type Option func(*Registry)

// WithConfig sets the add-in configuration. The default is config.Default().
func WithConfig(cfg config.Config) Option {
	return func(r *Registry) {
		r.cfg = cfg
	}
}

// WithLogger sets the logger used during attach and by trampolines.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithEngine sets the ownership engine used by trampolines.
func WithEngine(eng *value.Engine) Option {
	return func(r *Registry) {
		r.eng = eng
	}
}

// WithMiddleware wraps every exported procedure. Middleware executes in
// FIFO order (first added wraps first).
func WithMiddleware(mw ...dispatch.Middleware) Option {
	return func(r *Registry) {
		r.middleware = append(r.middleware, mw...)
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		attached: make(map[string]entities.FunctionDescriptor),
		cfg:      config.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.eng == nil {
		r.eng = value.DefaultEngine
	}
	r.heap = retval.NewHeapSlots(r.eng)
	return r
}

// Add records fn under name and returns a builder for its metadata. Errors
// (duplicate name, frozen registry) are kept on the builder and, for a
// newly added entry, reported again at attach.
func (r *Registry) Add(name string, fn any) *Builder {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{
		fn: fn,
		desc: entities.FunctionDescriptor{
			Name: name,
			Kind: entities.KindFunction,
		},
	}
	b := &Builder{r: r, e: e}

	switch {
	case r.frozen:
		b.err = &errors.RegistrationError{Function: name, Err: errors.ErrRegistryFrozen}
	case name == "":
		b.err = &errors.RegistrationError{Function: name, Err: fmt.Errorf("function name cannot be empty")}
	case r.entries[name] != nil:
		b.err = &errors.RegistrationError{Function: name, Err: fmt.Errorf("duplicate function name: %q", name)}
	default:
		r.entries[name] = e
	}
	return b
}

// Edit returns a builder for an already added function.
func (r *Registry) Edit(name string) (*Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return &Builder{r: r, e: e}, true
}

// Frozen reports whether Attach has run.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Names returns the added function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the descriptor of name. After attach this is the
// descriptor announced to the host.
func (r *Registry) Lookup(name string) (entities.FunctionDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.attached[name]; ok {
		return d.Clone(), true
	}
	if e, ok := r.entries[name]; ok {
		return e.desc.Clone(), true
	}
	return entities.FunctionDescriptor{}, false
}

// Descriptors returns every descriptor sorted by name.
func (r *Registry) Descriptors() []entities.FunctionDescriptor {
	names := r.Names()
	out := make([]entities.FunctionDescriptor, 0, len(names))
	for _, name := range names {
		if d, ok := r.Lookup(name); ok {
			out = append(out, d)
		}
	}
	return out
}

// Config returns the configuration the registry was created with.
func (r *Registry) Config() config.Config {
	return r.cfg
}

// Free is the callback for results flagged value.FlagAddinFree. Unknown
// values are ignored.
func (r *Registry) Free(v *value.Value) {
	r.heap.Free(v)
}

// Attach freezes the registry and announces every function to host. The
// procedures are bound in exports under the configured wrapper prefix.
// Functions that cannot be registered are recorded in the report and
// skipped; the returned error is non-nil only when the registry was already
// attached.
func (r *Registry) Attach(ctx context.Context, host ports.HostRegistrar, exports ports.ExportTable, module string) (*entities.RegistrationReport, error) {
	r.mu.Lock()
	if r.frozen {
		r.mu.Unlock()
		return nil, errors.ErrRegistryFrozen
	}
	r.frozen = true
	r.mu.Unlock()

	report := &entities.RegistrationReport{}
	for _, name := range r.sortedNames() {
		desc, id, err := r.register(ctx, host, exports, module, r.entries[name])
		if err != nil {
			r.recordFailure(ctx, report, name, err)
			continue
		}

		r.mu.Lock()
		r.attached[name] = desc
		r.mu.Unlock()
		report.Registered = append(report.Registered, entities.RegisteredFunction{
			Name:      desc.Name,
			Signature: desc.Signature,
			ID:        id,
		})
	}

	r.logger.InfoContext(ctx, "xll: attach complete",
		"module", module,
		"registered", len(report.Registered),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (r *Registry) recordFailure(ctx context.Context, report *entities.RegistrationReport, name string, err error) {
	var regErr *errors.RegistrationError
	if !stdErrors.As(err, &regErr) {
		regErr = &errors.RegistrationError{Function: name, Err: err}
	}
	r.logger.WarnContext(ctx, "xll: registration failed", "function", name, "error", regErr.Err)
	report.Failed = append(report.Failed, entities.FailedRegistration{
		Name:  name,
		Error: regErr.ToErrorDetail(),
	})
}
