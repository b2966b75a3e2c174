// Package diag defines the fatal error categories of the C code generator.
//
// Every failure detected while lowering TIR aborts the generation pass. The
// failure is returned as *Error carrying one of the Code values below, so
// callers can branch on the category with errors.Is:
//
//	if errors.Is(err, diag.UnsupportedType) { ... }
//
// The message names the offending function, callee or argument position
// whenever it is known.
package diag

import (
	"errors"
	"fmt"
)

// Error is a classified generation failure.
type Error struct {
	Code Code
	// Func is the function being emitted when the failure happened, if any.
	Func string
	Msg  string
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Func != "" {
		return fmt.Sprintf("%s: in function %s: %s", e.Code.ID(), e.Func, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg)
}

// Is matches a bare Code or another *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch t := target.(type) {
	case Code:
		return e.Code == t
	case *Error:
		return t != nil && e.Code == t.Code
	}
	return false
}

// InFunc annotates err with the function name when it is an *Error that has
// none yet. Other errors are returned unchanged.
func InFunc(err error, name string) error {
	var de *Error
	if !errors.As(err, &de) || de.Func != "" {
		return err
	}
	cp := *de
	cp.Func = name
	return &cp
}

// CodeOf returns the category of err, or UnknownCode.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}
