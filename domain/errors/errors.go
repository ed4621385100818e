// Package errors provides the error taxonomy of the native boundary.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/seal-runtime/seal-abi/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves to
// a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ErrEmbeddedNul is returned when a string bound for a C representation
// contains a zero byte.
var ErrEmbeddedNul = stdErrors.New("embedded NUL byte")

// ToErrorDetail converts a Go error to our structured ErrorDetail.
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

// ContractError is a caller-contract violation: invalid state handle,
// out-of-range stack index, insufficient stack capacity, bad pointer.
type ContractError struct {
	Err    error
	Op     string // ABI field that detected the violation
	Reason string
}

func (e *ContractError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ContractError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "contract", Code: e.Op}
}

// ArgumentError is a failed argument check in a checked (luaL_*) operation.
type ArgumentError struct {
	Func     string // name of the native function being called, may be empty
	Arg      int
	Expected string
	Got      string
	Extra    string // free-form message used instead of Expected/Got
}

func (e *ArgumentError) Error() string {
	var detail string
	switch {
	case e.Extra != "":
		detail = e.Extra
	case e.Got != "":
		detail = fmt.Sprintf("%s expected, got %s", e.Expected, e.Got)
	default:
		detail = e.Expected + " expected"
	}
	fn := e.Func
	if fn == "" {
		fn = "?"
	}
	return fmt.Sprintf("bad argument #%d to '%s' (%s)", e.Arg, fn, detail)
}

// ToErrorDetail implements DetailedError.
func (e *ArgumentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "argument", Code: e.Func}
}

// ConversionError is a value that cannot be represented on the other side of
// the boundary: embedded NUL, integer out of range, unterminated C string.
type ConversionError struct {
	Err error
	Op  string
}

func (e *ConversionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: conversion failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConversionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "conversion", Code: e.Op}
}

// VersionError reports a plugin built against an incompatible ABI table.
type VersionError struct {
	Plugin  string
	Want    uint32 // version the plugin was built against, 0 if unknown
	Have    uint32
	Missing string // first import the table cannot satisfy
}

func (e *VersionError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("plugin %s imports %q which ABI v%d does not provide", e.Plugin, e.Missing, e.Have)
	}
	return fmt.Sprintf("plugin %s requires ABI v%d, host provides v%d", e.Plugin, e.Want, e.Have)
}

// ToErrorDetail implements DetailedError.
func (e *VersionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "version", Code: e.Plugin}
}

// RuntimeError is a failure raised inside the VM and observed from Go,
// carrying the structured error fields when the value was wrapped.
type RuntimeError struct {
	Message string
	Source  string
	Line    int
	Kind    string
	Trace   string
}

func (e *RuntimeError) Error() string {
	if e.Source != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Message)
	}
	return e.Message
}

// ToErrorDetail implements DetailedError.
func (e *RuntimeError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Message, Type: "runtime", Code: e.Kind}
	return d.WithLocation(e.Source, e.Line)
}
