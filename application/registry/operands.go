package registry

import (
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Operands renders req as the ordered operand list of the host's register
// call. Empty optional text becomes a missing operand, the argument-name
// list included. When req is short the list stops after the help topic.
// The caller releases the result with ReleaseOperands.
func Operands(eng *value.Engine, req entities.RegistrationRequest) ([]value.Value, error) {
	if eng == nil {
		eng = value.DefaultEngine
	}
	ops := make([]value.Value, 0, 10+len(req.ArgHelp))
	fail := func(err error) ([]value.Value, error) {
		ReleaseOperands(eng, ops)
		return nil, err
	}
	text := func(s string, optional bool) error {
		if s == "" && optional {
			ops = append(ops, value.Missing())
			return nil
		}
		v, err := eng.NewString(s)
		if err != nil {
			return err
		}
		ops = append(ops, v)
		return nil
	}

	if err := text(req.Module, false); err != nil {
		return fail(err)
	}
	if req.EntryPoint.ByOrdinal() {
		ops = append(ops, value.Num(float64(req.EntryPoint.Ordinal)))
	} else if err := text(req.EntryPoint.Symbol, false); err != nil {
		return fail(err)
	}
	for _, s := range []string{req.Signature, req.Name} {
		if err := text(s, false); err != nil {
			return fail(err)
		}
	}
	if err := text(req.ArgNames, true); err != nil {
		return fail(err)
	}
	ops = append(ops, value.Num(float64(req.Kind)))
	for _, s := range []string{req.Category, req.Shortcut, req.HelpTopic} {
		if err := text(s, true); err != nil {
			return fail(err)
		}
	}
	if req.Short() {
		return ops, nil
	}

	if err := text(req.Description, true); err != nil {
		return fail(err)
	}
	for _, h := range req.ArgHelp {
		if err := text(h, true); err != nil {
			return fail(err)
		}
	}
	return ops, nil
}

// ReleaseOperands releases a list built by Operands.
func ReleaseOperands(eng *value.Engine, ops []value.Value) {
	if eng == nil {
		eng = value.DefaultEngine
	}
	for i := range ops {
		eng.Release(&ops[i])
	}
}
