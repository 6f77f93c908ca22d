package entities

import "strings"

// RegistrationID is the identifier the host assigns to a registered function.
type RegistrationID float64

// RegistrationRequest is the ordered operand list announced to the host for
// one function.
type RegistrationRequest struct {
	Module      string
	EntryPoint  EntryPoint
	Signature   string
	Name        string
	ArgNames    string // comma-joined, empty when the function has no parameters
	Kind        FunctionKind
	Category    string
	Shortcut    string
	HelpTopic   string
	Description string
	ArgHelp     []string // last element padded with two spaces
}

// NewRegistrationRequest builds the request for a descriptor.
func NewRegistrationRequest(module string, d FunctionDescriptor) RegistrationRequest {
	names := make([]string, len(d.Args))
	help := make([]string, len(d.Args))
	for i, a := range d.Args {
		names[i] = a.Name
		help[i] = a.Description
	}
	// The host trims the final operand; the padding keeps the last
	// description intact in the function wizard.
	if n := len(help); n > 0 {
		help[n-1] += "  "
	}

	return RegistrationRequest{
		Module:      module,
		EntryPoint:  d.EntryPoint,
		Signature:   d.Signature,
		Name:        d.Name,
		ArgNames:    strings.Join(names, ","),
		Kind:        d.Kind,
		Category:    d.Category,
		Shortcut:    d.Shortcut,
		HelpTopic:   d.HelpTopic,
		Description: d.Description,
		ArgHelp:     help,
	}
}

// Short reports whether the request stops after the help topic. That is
// the case when there is neither a description nor any argument help.
func (r RegistrationRequest) Short() bool {
	return r.Description == "" && len(r.ArgHelp) == 0
}

// RegisteredFunction is a successful entry of a RegistrationReport.
type RegisteredFunction struct {
	Name      string         `json:"name" yaml:"name"`
	Signature string         `json:"signature" yaml:"signature"`
	ID        RegistrationID `json:"id" yaml:"id"`
}

// FailedRegistration is a skipped entry of a RegistrationReport.
type FailedRegistration struct {
	Error *ErrorDetail `json:"error" yaml:"error"`
	Name  string       `json:"name" yaml:"name"`
}

// RegistrationReport summarises one attach pass.
type RegistrationReport struct {
	Registered []RegisteredFunction `json:"registered" yaml:"registered"`
	Failed     []FailedRegistration `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// OK reports whether every function was registered.
func (r *RegistrationReport) OK() bool {
	return r != nil && len(r.Failed) == 0
}

// Lookup returns the registration of the named function.
func (r *RegistrationReport) Lookup(name string) (RegisteredFunction, bool) {
	for _, f := range r.Registered {
		if f.Name == name {
			return f, true
		}
	}
	return RegisteredFunction{}, false
}
