package dispatch

import "context"

type contextKey struct {
	name string
}

var (
	functionKey = &contextKey{name: "function_name"}
	wizardKey   = &contextKey{name: "wizard_open"}
)

// WithFunction records the exported function a call targets.
func WithFunction(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, functionKey, name)
}

// FunctionFromContext returns the function name recorded in ctx.
func FunctionFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(functionKey).(string)
	return name, ok
}

// GetFunction returns the recorded function name or "unknown".
func GetFunction(ctx context.Context) string {
	if name, ok := FunctionFromContext(ctx); ok {
		return name
	}
	return "unknown"
}

// WithWizardOpen marks a call made while the host's function wizard or
// replace dialog is open.
func WithWizardOpen(ctx context.Context) context.Context {
	return context.WithValue(ctx, wizardKey, true)
}

// WizardOpen reports whether ctx was marked by WithWizardOpen.
func WizardOpen(ctx context.Context) bool {
	open, _ := ctx.Value(wizardKey).(bool)
	return open
}
