package registry

import (
	"fmt"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
)

// Builder sets the registration metadata of one function. Every method
// returns the builder so calls can be chained:
//
//	reg.Add("Hypot", math.Hypot).
//	    Description("Length of the hypotenuse").
//	    Arg("x", "first side").
//	    Arg("y", "second side").
//	    ThreadSafe()
//
// Methods called after the registry is attached have no effect and set
// Err to ErrRegistryFrozen.
type Builder struct {
	r   *Registry
	e   *entry
	err error
}

// Err returns the first error recorded by Add or a builder method.
func (b *Builder) Err() error {
	return b.err
}

// update applies fn to the descriptor unless the registry is frozen.
func (b *Builder) update(fn func(d *entities.FunctionDescriptor) error) *Builder {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()

	if b.r.frozen {
		if b.err == nil {
			b.err = &errors.RegistrationError{Function: b.e.desc.Name, Err: errors.ErrRegistryFrozen}
		}
		return b
	}
	if err := fn(&b.e.desc); err != nil {
		b.e.errs = append(b.e.errs, err)
		if b.err == nil {
			b.err = &errors.RegistrationError{Function: b.e.desc.Name, Err: err}
		}
	}
	return b
}

// Description sets the function wizard description.
func (b *Builder) Description(s string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Description = s
		return nil
	})
}

// Arg appends the name and help text of the next parameter.
func (b *Builder) Arg(name, help string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		if name == "" {
			return fmt.Errorf("argument %d: name cannot be empty", len(d.Args)+1)
		}
		d.Args = append(d.Args, entities.Argument{Name: name, Description: help})
		return nil
	})
}

// Category sets the function wizard category.
func (b *Builder) Category(s string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Category = s
		return nil
	})
}

// Shortcut sets the command shortcut key.
func (b *Builder) Shortcut(s string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Shortcut = s
		return nil
	})
}

// HelpTopic sets the help link, "file!topic" or a URL.
func (b *Builder) HelpTopic(s string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.HelpTopic = s
		return nil
	})
}

// Volatile marks the function as recalculated on every host recalculation.
func (b *Builder) Volatile() *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Attributes.Volatile = true
		return nil
	})
}

// Pure clears the volatile attribute.
func (b *Builder) Pure() *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Attributes.Volatile = false
		return nil
	})
}

// ThreadSafe allows concurrent calls from distinct host threads.
func (b *Builder) ThreadSafe() *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Attributes.ThreadSafe = true
		return nil
	})
}

// SuppressWizard keeps the function from running while the host's function
// wizard is open; such calls answer dispatch.WizardResult.
func (b *Builder) SuppressWizard() *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Attributes.WizardSuppressed = true
		return nil
	})
}

// InPlace declares that the function returns its result by modifying
// argument 1.
func (b *Builder) InPlace() *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		d.Attributes.InPlace = true
		return nil
	})
}

// Kind sets the function kind.
func (b *Builder) Kind(k entities.FunctionKind) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		if k < entities.KindHidden || k > entities.KindCommand {
			return fmt.Errorf("invalid function kind %d", k)
		}
		d.Kind = k
		return nil
	})
}

// ArgHelp replaces the help text of the named parameter.
func (b *Builder) ArgHelp(name, help string) *Builder {
	return b.update(func(d *entities.FunctionDescriptor) error {
		for i := range d.Args {
			if d.Args[i].Name == name {
				d.Args[i].Description = help
				return nil
			}
		}
		return fmt.Errorf("no argument named %q", name)
	})
}
