package errcode

import (
	"fmt"
	"strconv"
)

// Code is a stable, machine-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK               Code = "ok"
	InvalidParams    Code = "invalid_params"
	Unsupported      Code = "unsupported"
	UnknownPlatform  Code = "unknown_platform"
	UnknownComponent Code = "unknown_component"
	DuplicateID      Code = "duplicate_id"
	UnknownBus       Code = "unknown_bus"
	NotI2CDevice     Code = "not_i2c_device"
	SetupFailed      Code = "setup_failed"
	IOError          Code = "io_error"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// New is shorthand for &E{C: c, Op: op, Msg: msg}.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// ValidationError reports a configuration value that failed a schema check.
// Path is the dotted key path (e.g. "battery_voltage.accuracy_decimals").
type ValidationError struct {
	Path       string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return "invalid config at " + strconv.Quote(e.Path) + ": " + e.Constraint
	}
	return fmt.Sprintf("invalid config at %q: %s (got %#v)", e.Path, e.Constraint, e.Value)
}

func (e *ValidationError) Code() Code { return InvalidParams }

// Invalid builds a ValidationError.
func Invalid(path, constraint string, value any) *ValidationError {
	return &ValidationError{Path: path, Constraint: constraint, Value: value}
}

// Of extracts a Code from an error, defaulting to Error.
// Wrapped and joined errors are searched depth-first.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := find(err); ok {
		return c
	}
	return Error
}

func find(err error) (Code, bool) {
	switch x := err.(type) {
	case Code:
		return x, true
	case interface{ Code() Code }:
		return x.Code(), true
	case interface{ Unwrap() error }:
		if inner := x.Unwrap(); inner != nil {
			return find(inner)
		}
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if c, ok := find(inner); ok {
				return c, true
			}
		}
	}
	return "", false
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return IOError
}
