// Package host is an in-process stand-in for the spreadsheet host.
//
// It implements the registration and export-table ports, keeps every
// registered signature, and calls exported procedures the way the host
// does: cell values are coerced to the wire type of each parameter code,
// thread-unsafe functions run one at a time on the coordinating thread,
// thread-safe ones run concurrently on distinct thread ids, and results
// flagged for add-in release are handed back through the free callback.
//
// It is used by tests and by the wasm bridge.
package host
