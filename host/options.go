package host

import (
	"log/slog"

	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Option defines a functional option for configuring the Host.
type Option func(*Host)

// WithFree sets the callback for results flagged value.FlagAddinFree.
func WithFree(fn ports.FreeFunc) Option {
	return func(h *Host) {
		h.free = fn
	}
}

// WithThreads sets the number of calculation threads available to
// thread-safe functions. The default is 4.
func WithThreads(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.threads = n
		}
	}
}

// WithEngine sets the engine that owns the host's copies of cells and
// results.
func WithEngine(eng *value.Engine) Option {
	return func(h *Host) {
		h.eng = eng
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithRejected makes Register fail for the named functions with code, as
// the host does for invalid registrations.
func WithRejected(code errors.HostReturnCode, names ...string) Option {
	return func(h *Host) {
		for _, n := range names {
			h.rejected[n] = code
		}
	}
}

// WithWizardOpen sets the check the host runs before each call to learn
// whether its function wizard or replace dialog is open. Wizard-suppressed
// functions are not run while it reports true.
func WithWizardOpen(open func() bool) Option {
	return func(h *Host) {
		h.wizardOpen = open
	}
}
