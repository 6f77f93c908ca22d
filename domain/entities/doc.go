// Package entities provides the core domain entities of the add-in SDK:
// function descriptors, host registration requests and reports, manifests
// and the structured error detail shared by every layer.
package entities
