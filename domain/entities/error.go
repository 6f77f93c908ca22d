package entities

import "fmt"

// ErrorDetail is the structured form of an SDK error, as recorded in a
// registration report or a dispatch failure log.
//
// Type is one of "conversion", "allocation", "registration", "host",
// "config", "panic" or "internal".
type ErrorDetail struct {
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Message    string         `json:"message" yaml:"message"`
	Type       string         `json:"type" yaml:"type"`
	Code       string         `json:"code,omitempty" yaml:"code,omitempty"`
	Stack      []byte         `json:"stack,omitempty" yaml:"-"`
	IsNotFound bool           `json:"is_not_found,omitempty" yaml:"is_not_found,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = e.Type + ": " + msg
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail of the given type.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
