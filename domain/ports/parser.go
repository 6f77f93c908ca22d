package ports

import "github.com/xllconnector/xll-sdk/go/domain/entities"

// ManifestParser parses raw manifest bytes into a FunctionManifest.
type ManifestParser interface {
	// Parse unmarshals manifest bytes into a FunctionManifest struct.
	Parse(data []byte) (*entities.FunctionManifest, error)
}
