package types

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindMalformed
	KindLengthMismatch
	KindIOFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindMalformed:
		return "malformed"
	case KindLengthMismatch:
		return "length mismatch"
	case KindIOFailure:
		return "io failure"
	}
	return "unknown"
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrMalformed      = &Error{Kind: KindMalformed}
	ErrLengthMismatch = &Error{Kind: KindLengthMismatch}
	ErrIOFailure      = &Error{Kind: KindIOFailure}
)

// Error is a tagged engine error
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Errorf builds an Error of the given kind with a formatted cause
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with a kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any Error with the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first Error in err's chain, or 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
