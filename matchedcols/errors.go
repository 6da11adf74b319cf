package matchedcols

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrArgument     ErrorKind = "argument"
	ErrRegistration ErrorKind = "registration"
	ErrQueryParse   ErrorKind = "query_parse"
	ErrContext      ErrorKind = "match_context"
	ErrEngine       ErrorKind = "engine"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Name    string // auxiliary function name, when relevant
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Name != "" {
		base = fmt.Sprintf("%s (function=%s)", base, e.Name)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func ArgumentError(name string) *Error {
	return &Error{Kind: ErrArgument, Message: "wrong number of arguments", Name: name}
}

func RegistrationError(msg string, cause error) *Error {
	return &Error{Kind: ErrRegistration, Message: msg, Cause: cause}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		if e.Cause == nil {
			return false
		}
		err = e.Cause
	}
	return false
}
