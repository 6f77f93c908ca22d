// Package ports defines the interfaces between the add-in core and the
// spreadsheet host. Domain and application logic depend on these
// abstractions; the host package and infrastructure adapters implement them.
package ports
