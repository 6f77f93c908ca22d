// Package wazero exposes the functions of an add-in to WebAssembly guests
// running under the wazero runtime.
//
// Every registered function becomes an export of a host module (default
// "xll_host") with the signature (i64) -> i64. The parameter is a packed
// pointer and length (pointer in the high 32 bits) of a CBOR array of
// arguments in guest memory, encoded by the cborwire package. The result is
// a packed pointer and length of the CBOR encoded return value, written to
// memory obtained from the guest's "allocate" export. A zero result means
// the response could not be delivered.
//
// # Basic Usage
//
//	h := host.New(host.WithFree(addin.AutoFree))
//	if _, err := addin.AutoOpen(ctx, h, h); err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err := xllwazero.RegisterWithRuntime(ctx, runtime, h,
//	    xllwazero.WithModuleName("xll_host"),
//	)
package wazero
