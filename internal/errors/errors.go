package errors

import (
	"errors"
	"fmt"
)

var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

type appError struct {
	code    ErrorCode
	message string
	detail  any
	cause   error
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	switch {
	case e.detail != nil:
		return fmt.Sprintf("%s: %v", msg, e.detail)
	case e.cause != nil:
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *appError) Code() ErrorCode    { return e.code }
func (e *appError) Severity() Severity { return severityOf(e.code) }
func (e *appError) Unwrap() error      { return e.cause }

func (e *appError) WithMessage(msg string) Error {
	c := *e
	c.message = msg
	return &c
}

func (e *appError) WithData(data any) Error {
	c := *e
	c.detail = data
	return &c
}

type factory struct{}

// New returns the Factory used throughout the module.
func New() Factory {
	return factory{}
}

func (factory) New(code ErrorCode) Error {
	return &appError{code: code}
}

func (factory) Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, cause: err}
}

func (factory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{code: code, message: msg}
}

func (factory) WithData(code ErrorCode, data any) Error {
	return &appError{code: code, detail: data}
}

// HasCode reports whether err or anything it wraps carries code. Joined
// errors are searched branch by branch.
func HasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case Error:
		return e.Code() == code || HasCode(e.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	return false
}
