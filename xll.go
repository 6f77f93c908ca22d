// Package xll exports Go functions to a spreadsheet host.
//
// Functions are registered once, typically from init, and announced to the
// host when the add-in is opened:
//
//	func init() {
//	    xll.Func2(xll.Default(), "Hypot", math.Hypot).
//	        Description("Length of the hypotenuse").
//	        Arg("x", "first side").
//	        Arg("y", "second side").
//	        ThreadSafe()
//	}
//
// The host calls each function through a generated trampoline that
// converts the host's tagged values to Go types, recovers panics and
// answers #VALUE! on any failure.
package xll

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/xllconnector/xll-sdk/go/application/config"
	"github.com/xllconnector/xll-sdk/go/application/dispatch"
	"github.com/xllconnector/xll-sdk/go/application/registry"
	"github.com/xllconnector/xll-sdk/go/application/service"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
	"github.com/xllconnector/xll-sdk/go/internal/abi"
	xlllog "github.com/xllconnector/xll-sdk/go/log"
)

// Builder sets the registration metadata of one function.
type Builder = registry.Builder

// Addin is one add-in module: its configuration and function table.
type Addin struct {
	cfg    config.Config
	reg    *registry.Registry
	eng    *value.Engine
	logger *slog.Logger
}

type addinConfig struct {
	cfg        config.Config
	logger     *slog.Logger
	eng        *value.Engine
	middleware []dispatch.Middleware
}

// Option configures an Addin.
type Option func(*addinConfig)

// WithConfig sets the configuration. The default is config.Default().
func WithConfig(cfg config.Config) Option {
	return func(c *addinConfig) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger. The default writes JSON lines to stderr at
// the configured log level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *addinConfig) {
		c.logger = logger
	}
}

// WithEngine sets the ownership engine. The default is an engine limited
// to the configured heap size.
func WithEngine(eng *value.Engine) Option {
	return func(c *addinConfig) {
		c.eng = eng
	}
}

// WithMiddleware wraps every exported function.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...dispatch.Middleware) Option {
	return func(c *addinConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// New creates an add-in with an empty function table.
func New(opts ...Option) *Addin {
	c := addinConfig{cfg: config.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = xlllog.New(os.Stderr, xlllog.WithLevel(c.cfg.SlogLevel()))
	}
	if c.eng == nil {
		c.eng = value.NewEngine(value.WithHeap(abi.NewTracker(abi.WithLimit(c.cfg.Addin.HeapLimitBytes))))
	}

	mw := append([]dispatch.Middleware{dispatch.PanicRecoveryMiddleware(c.logger)}, c.middleware...)
	return &Addin{
		cfg:    c.cfg,
		eng:    c.eng,
		logger: c.logger,
		reg: registry.New(
			registry.WithConfig(c.cfg),
			registry.WithEngine(c.eng),
			registry.WithLogger(c.logger),
			registry.WithMiddleware(mw...),
		),
	}
}

// Load creates an add-in configured from the xll.toml file in dir.
func Load(dir string, opts ...Option) (*Addin, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(*cfg)}, opts...)...), nil
}

// Export adds fn under name. fn must be a function whose parameter and
// result types are in the supported set; this is checked when the add-in
// is attached. Prefer the typed FuncN helpers, which check at compile time.
func (a *Addin) Export(name string, fn any) *Builder {
	return a.reg.Add(name, fn)
}

// ExportService adds every function declared by a service struct.
func (a *Addin) ExportService(svc any) error {
	return service.Register(a.reg, svc)
}

// Registry returns the function table.
func (a *Addin) Registry() *registry.Registry {
	return a.reg
}

// Engine returns the ownership engine used by the add-in.
func (a *Addin) Engine() *value.Engine {
	return a.eng
}

// Logger returns the add-in logger.
func (a *Addin) Logger() *slog.Logger {
	return a.logger
}

// ModuleName returns the module name announced to the host.
func (a *Addin) ModuleName() string {
	switch {
	case a.cfg.Addin.Module != "":
		return a.cfg.Addin.Module
	case a.cfg.Addin.Name != "":
		return a.cfg.Addin.Name + ".xll"
	default:
		return "addin.xll"
	}
}

// AutoOpen binds every function in exports and registers it with host.
// It runs once; later calls return errors.ErrRegistryFrozen.
func (a *Addin) AutoOpen(ctx context.Context, host ports.HostRegistrar, exports ports.ExportTable) (*entities.RegistrationReport, error) {
	return a.reg.Attach(ctx, host, exports, a.ModuleName())
}

// AutoFree releases a result the host received with value.FlagAddinFree
// set. Other values are ignored.
func (a *Addin) AutoFree(v *value.Value) {
	a.reg.Free(v)
}

var (
	defaultOnce  sync.Once
	defaultAddin *Addin
)

// Default returns the process-wide add-in used by static registration.
func Default() *Addin {
	defaultOnce.Do(func() {
		defaultAddin = New()
	})
	return defaultAddin
}

// Export adds fn to the default add-in.
func Export(name string, fn any) *Builder {
	return Default().Export(name, fn)
}

// AutoFree is the free callback of the default add-in.
func AutoFree(v *value.Value) {
	Default().AutoFree(v)
}
