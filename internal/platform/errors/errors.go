package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindDomain     Kind = "domain"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransport  Kind = "transport"
	KindPlatform   Kind = "platform"
	KindBootstrap  Kind = "bootstrap"
	KindStorage    Kind = "storage"
	KindUnknown    Kind = "unknown"
)

// Error is the typed error carried across layers. Code is a stable,
// user-facing identifier (e.g. "0x0113"); it is empty for infrastructure errors.
type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s:%s]", e.Kind, e.Op)
	if e.Code != "" {
		prefix = fmt.Sprintf("[%s:%s:%s]", e.Kind, e.Op, e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so coded sentinels still
// match after WithOp or Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithOp returns a copy of e tagged with the operation that raised it.
func (e *Error) WithOp(op string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Op = op
	return &cp
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// Coded builds a sentinel carrying a stable code.
func Coded(kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the kind of the first typed error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first typed error in the chain.
func CodeOf(err error) string {
	var target *Error
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
