package store

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a store failure.
type ErrorKind string

const (
	Unreachable ErrorKind = "unreachable"
	AuthExpired ErrorKind = "auth_expired"
	Malformed   ErrorKind = "malformed"
	NotFound    ErrorKind = "not_found"
)

var (
	ErrUnreachable = errors.New("store unreachable")
	ErrAuthExpired = errors.New("store credentials expired")
	ErrMalformed   = errors.New("malformed store data")
	ErrNotFound    = errors.New("record not found")
	ErrReadOnly    = errors.New("store is read-only")
)

// StoreError wraps an adapter failure with its kind and operation.
type StoreError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	switch e.Kind {
	case Unreachable:
		return target == ErrUnreachable
	case AuthExpired:
		return target == ErrAuthExpired
	case Malformed:
		return target == ErrMalformed
	case NotFound:
		return target == ErrNotFound
	}
	return false
}

// NewError builds a *StoreError.
func NewError(kind ErrorKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of a store error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
