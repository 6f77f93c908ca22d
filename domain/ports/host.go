package ports

import (
	"context"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// Procedure is an exported entry point as the host calls it: wire arguments
// in, a tagged result out. In-place procedures return nil and deliver their
// result through argument 1.
type Procedure func(ctx context.Context, args []any) *value.Value

// HostRegistrar announces functions to the host.
type HostRegistrar interface {
	// Register sends one registration request and returns the host's id
	// for the function.
	Register(ctx context.Context, req entities.RegistrationRequest) (entities.RegistrationID, error)
}

// ExportTable is the module's table of exported procedures.
type ExportTable interface {
	// Bind exports proc under symbol.
	Bind(symbol string, proc Procedure) error

	// Lookup returns the ordinal of an exported symbol.
	Lookup(symbol string) (uint32, bool)
}

// FreeFunc is the callback the host invokes for results flagged
// value.FlagAddinFree once it has consumed them.
type FreeFunc func(v *value.Value)
