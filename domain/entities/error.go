package entities

import "fmt"

// ErrorDetail provides structured error information.
// It is the Go-side mirror of a wrapped VM error and the payload reported by
// tooling (CLI, logs) when a boundary call fails.
// Error Types: "contract", "argument", "conversion", "version", "runtime", "internal"
type ErrorDetail struct {
	// Wrapped contains a wrapped error for error chains.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details contains additional error context.
	Details map[string]any `json:"details,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code, usually the ABI field name.
	Code string `json:"code"`

	// Source is the chunk name the failure was attributed to, if known.
	Source string `json:"source,omitempty"`

	// Line is the line in Source, or 0.
	Line int `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches the given details and returns the receiver.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithLocation attaches a source location and returns the receiver.
func (e *ErrorDetail) WithLocation(source string, line int) *ErrorDetail {
	e.Source = source
	e.Line = line
	return e
}
