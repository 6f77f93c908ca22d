package registry

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/xllconnector/xll-sdk/go/application/config"
	"github.com/xllconnector/xll-sdk/go/application/dispatch"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/ports"
)

// register builds the trampoline of one entry, binds it in the export table
// and announces it to the host.
func (r *Registry) register(ctx context.Context, host ports.HostRegistrar, exports ports.ExportTable, module string, e *entry) (entities.FunctionDescriptor, entities.RegistrationID, error) {
	desc := e.desc.Clone()
	fail := func(err error) (entities.FunctionDescriptor, entities.RegistrationID, error) {
		return desc, 0, &errors.RegistrationError{Function: desc.Name, Err: err}
	}

	if len(e.errs) > 0 {
		return fail(stdErrors.Join(e.errs...))
	}

	config.Apply(&desc, r.cfg.Override(desc.Name))
	if desc.Category == "" {
		desc.Category = r.cfg.Addin.DefaultCategory
	}

	alloc := retval.Select(r.eng, desc.Attributes, r.cfg.Addin.ThreadLocalReturns, r.heap)
	tramp, err := dispatch.New(desc.Name, e.fn, desc.Attributes, alloc,
		dispatch.WithEngine(r.eng),
		dispatch.WithLogger(r.logger),
	)
	if err != nil {
		return fail(err)
	}

	params := len(tramp.Shape().Params)
	if limit := r.cfg.Addin.MaxParameters; limit > 0 && params > limit {
		return fail(fmt.Errorf("%w: %d exceeds the configured maximum of %d", errors.ErrTooManyParameters, params, limit))
	}
	if len(desc.Args) > params {
		return fail(fmt.Errorf("%d argument descriptions for %d parameters", len(desc.Args), params))
	}
	for i := len(desc.Args); i < params; i++ {
		desc.Args = append(desc.Args, entities.Argument{Name: fmt.Sprintf("arg%d", i+1)})
	}
	desc.Signature = tramp.Signature()

	if err := config.Struct(&desc); err != nil {
		return fail(err)
	}

	symbol := r.cfg.Addin.WrapperPrefix + desc.Name
	if err := exports.Bind(symbol, tramp.Procedure(r.middleware...)); err != nil {
		return fail(fmt.Errorf("bind %s: %w", symbol, err))
	}
	ordinal, ok := exports.Lookup(symbol)
	if !ok || ordinal == 0 {
		return fail(fmt.Errorf("%w: %s", errors.ErrEntryPointNotFound, symbol))
	}
	desc.EntryPoint = entities.EntryPoint{Symbol: symbol}
	if r.cfg.Addin.EntryByOrdinal {
		desc.EntryPoint.Ordinal = ordinal
	}

	id, err := host.Register(ctx, entities.NewRegistrationRequest(module, desc))
	if err != nil {
		return fail(err)
	}

	r.logger.DebugContext(ctx, "xll: registered function",
		"function", desc.Name,
		"symbol", symbol,
		"signature", desc.Signature,
		"id", float64(id),
	)
	return desc, id, nil
}
