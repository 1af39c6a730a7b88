package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies a negotiation failure so callers can decide how to react
type Kind string

const (
	// KindValidation is a malformed tool call or offer. State is unchanged.
	KindValidation Kind = "validation"
	// KindConflict is a write against a terminal negotiation, a stale round or an existing decision.
	KindConflict Kind = "conflict"
	// KindDependency is a failed required write to the persistence gateway.
	KindDependency Kind = "dependency"
	// KindPrecondition is a caller error that retrying cannot fix, e.g. scoring with no completed negotiation.
	KindPrecondition Kind = "precondition"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToHTTPError maps the error kind onto a status code, carrying kind and op as meta.
func (e *Error) ToHTTPError() *httperror.HTTPError {
	code := http.StatusInternalServerError
	switch e.Kind {
	case KindValidation:
		code = http.StatusBadRequest
	case KindConflict:
		code = http.StatusConflict
	case KindDependency:
		code = http.StatusServiceUnavailable
	case KindPrecondition:
		code = http.StatusUnprocessableEntity
	}

	// the wrapped cause stays in the logs
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}

	return httperror.NewHTTPError(code, msg).AddMetaValue("kind", string(e.Kind)).AddMetaValue("op", e.Op)
}

func New(kind Kind, op string, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func Validationf(op string, format string, args ...any) *Error {
	return Newf(KindValidation, op, format, args...)
}

func Conflictf(op string, format string, args ...any) *Error {
	return Newf(KindConflict, op, format, args...)
}

func Preconditionf(op string, format string, args ...any) *Error {
	return Newf(KindPrecondition, op, format, args...)
}

// Dependency wraps a gateway failure. An existing classified error keeps its kind.
func Dependency(op string, err error, msg string) error {
	var e *Error
	if stderrors.As(err, &e) {
		return err
	}
	return Wrap(KindDependency, op, err, msg)
}

// KindOf returns the kind of the first classified error in the chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

func IsDependency(err error) bool {
	return KindOf(err) == KindDependency
}

func IsPrecondition(err error) bool {
	return KindOf(err) == KindPrecondition
}

// ToHTTPError converts classified errors for the API layer and passes everything else through.
func ToHTTPError(err error) error {
	var e *Error
	if stderrors.As(err, &e) {
		return e.ToHTTPError()
	}
	return err
}
