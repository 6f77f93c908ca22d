package entities

// FunctionKind is the host's classification of a registered procedure.
type FunctionKind int

const (
	// KindHidden registers a procedure that is callable but not listed.
	KindHidden FunctionKind = 0
	// KindFunction registers a worksheet function.
	KindFunction FunctionKind = 1
	// KindCommand registers a command (macro).
	KindCommand FunctionKind = 2
)

func (k FunctionKind) String() string {
	switch k {
	case KindHidden:
		return "hidden"
	case KindFunction:
		return "function"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Attributes are the per-function flags that affect the signature suffix,
// the return slot strategy and the function wizard.
type Attributes struct {
	// Volatile functions are recalculated on every host recalculation.
	Volatile bool `json:"volatile,omitempty" yaml:"volatile,omitempty"`

	// ThreadSafe functions may run concurrently on distinct host threads.
	ThreadSafe bool `json:"thread_safe,omitempty" yaml:"thread_safe,omitempty"`

	// WizardSuppressed hides the function from the host's function wizard.
	WizardSuppressed bool `json:"wizard_suppressed,omitempty" yaml:"wizard_suppressed,omitempty"`

	// InPlace marks a procedure that returns its result through argument 1.
	InPlace bool `json:"in_place,omitempty" yaml:"in_place,omitempty"`
}

// Argument is the help text attached to one parameter.
type Argument struct {
	Name        string `json:"name" yaml:"name" validate:"max=255"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=255"`
}

// EntryPoint identifies the exported procedure the host calls: by symbol
// name, or by ordinal when Ordinal is nonzero.
type EntryPoint struct {
	Symbol  string `json:"symbol" yaml:"symbol"`
	Ordinal uint32 `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
}

// ByOrdinal reports whether the entry point is announced by ordinal.
func (e EntryPoint) ByOrdinal() bool {
	return e.Ordinal != 0
}

// FunctionDescriptor is the registration metadata of one exported function.
// Text fields are limited to the host's 255 character operand length.
type FunctionDescriptor struct {
	EntryPoint  EntryPoint   `json:"entry_point" yaml:"entry_point"`
	Name        string       `json:"name" yaml:"name" validate:"required,max=255"`
	Signature   string       `json:"signature" yaml:"signature"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" validate:"max=255"`
	Category    string       `json:"category,omitempty" yaml:"category,omitempty" validate:"max=255"`
	Shortcut    string       `json:"shortcut,omitempty" yaml:"shortcut,omitempty" validate:"max=255"`
	HelpTopic   string       `json:"help_topic,omitempty" yaml:"help_topic,omitempty" validate:"max=255"`
	Args        []Argument   `json:"args,omitempty" yaml:"args,omitempty" validate:"max=245,dive"`
	Kind        FunctionKind `json:"kind" yaml:"kind" validate:"min=0,max=2"`
	Attributes  Attributes   `json:"attributes" yaml:"attributes"`
}

// Clone returns a copy that shares no slices with d.
func (d FunctionDescriptor) Clone() FunctionDescriptor {
	out := d
	if d.Args != nil {
		out.Args = make([]Argument, len(d.Args))
		copy(out.Args, d.Args)
	}
	return out
}
