package parse

import (
	"errors"
	"fmt"
)

// Parse failures. Every *ParseError wraps one of these.
var (
	ErrUnregistered     = errors.New("unregistered operator")
	ErrVoidCall         = errors.New("call does not return a value")
	ErrNotLambda        = errors.New("argument is not a function literal")
	ErrCompiledLambda   = errors.New("argument is a compiled function")
	ErrTooFewArguments  = errors.New("too few arguments")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrTooDeep          = errors.New("call chain nested too deeply")
	ErrNotASource       = errors.New("not a query source")
	ErrInvalidCall      = errors.New("invalid operator call")
	ErrInvalidModel     = errors.New("invalid query model")
)

// ParseError reports a call that could not be parsed.
type ParseError struct {
	// Call is the literal text of the offending call.
	Call string
	// Reason is a human-readable explanation.
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s: %s", e.Call, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseError(call string, sentinel error, format string, args ...any) *ParseError {
	return &ParseError{Call: call, Reason: fmt.Sprintf(format, args...), Err: sentinel}
}
