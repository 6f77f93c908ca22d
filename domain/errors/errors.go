// Package errors provides domain-specific error types for the add-in SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/xllconnector/xll-sdk/go/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Sentinel errors matched with errors.Is.
var (
	ErrStringTooLong      = stdErrors.New("string exceeds host length limit")
	ErrMatrixTooLarge     = stdErrors.New("matrix exceeds host dimension limits")
	ErrIncompatibleTag    = stdErrors.New("incompatible value tag")
	ErrTooManyParameters  = stdErrors.New("too many parameters")
	ErrEntryPointNotFound = stdErrors.New("entry point not found in export table")
	ErrRegistryFrozen     = stdErrors.New("registry is frozen after attach")
	ErrHeapExhausted      = stdErrors.New("allocation limit exceeded")
	ErrUnsupportedType    = stdErrors.New("unsupported native type")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// ReturnIndex is the ArgumentConversionError index used for the return value.
const ReturnIndex = -1

// ArgumentConversionError reports a wire value that could not be converted
// to the native parameter type, or a native result that could not be encoded.
type ArgumentConversionError struct {
	Err   error
	Code  string // signature code of the slot
	Index int    // zero-based parameter index, ReturnIndex for the result
}

func (e *ArgumentConversionError) Error() string {
	if e.Index == ReturnIndex {
		return fmt.Sprintf("return value (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("argument %d (%s): %v", e.Index+1, e.Code, e.Err)
}

func (e *ArgumentConversionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError. A conversion that failed for
// lack of heap is reported as an allocation failure.
func (e *ArgumentConversionError) ToErrorDetail() *entities.ErrorDetail {
	typ := "conversion"
	var af *AllocationFailure
	if stdErrors.As(e.Err, &af) {
		typ = "allocation"
	}
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    typ,
		Code:    e.Code,
		Details: map[string]any{"index": e.Index},
	}
}

// AllocationFailure is returned when a buffer reservation would exceed the
// configured heap limit.
type AllocationFailure struct {
	Requested int64
	InUse     int64
	Limit     int64
}

func (e *AllocationFailure) Error() string {
	return fmt.Sprintf("allocation of %d bytes failed (in use: %d, limit: %d)", e.Requested, e.InUse, e.Limit)
}

func (e *AllocationFailure) Unwrap() error {
	return ErrHeapExhausted
}

// ToErrorDetail implements DetailedError.
func (e *AllocationFailure) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "allocation", Code: "heap_limit"}
}

// RegistrationError records why a single function could not be announced to the host.
type RegistrationError struct {
	Err      error
	Function string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.Function, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RegistrationError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "registration", Code: e.Function}
	if stdErrors.Is(e.Err, ErrEntryPointNotFound) {
		detail.IsNotFound = true
	}
	return detail
}

// HostProtocolError is a non-success return code from a host callback.
type HostProtocolError struct {
	Call string
	Code HostReturnCode
}

func (e *HostProtocolError) Error() string {
	return fmt.Sprintf("host call %s returned %s", e.Call, e.Code)
}

// ToErrorDetail implements DetailedError.
func (e *HostProtocolError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "host", Code: e.Code.String()}
}

// PanicError wraps a value recovered from a panicking native function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "panic", Stack: e.Stack}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
