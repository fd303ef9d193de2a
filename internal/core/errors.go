package core

import (
	"errors"
	"fmt"
)

// ValidationKind classifies why a raw record was rejected.
type ValidationKind string

const (
	NegativeAmount  ValidationKind = "negative_amount"
	BadTimestamp    ValidationKind = "bad_timestamp"
	UnknownCategory ValidationKind = "unknown_category"
	BadAmount       ValidationKind = "bad_amount"
	BadKind         ValidationKind = "bad_kind"
	MissingField    ValidationKind = "missing_field"
)

var (
	ErrBadTimestamp    = errors.New("bad timestamp")
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingField    = errors.New("missing field")

	ErrInvalidCustomRange = errors.New("invalid custom range")
)

func (k ValidationKind) sentinel() error {
	switch k {
	case NegativeAmount:
		return ErrNegativeAmount
	case BadTimestamp:
		return ErrBadTimestamp
	case UnknownCategory:
		return ErrUnknownCategory
	case BadAmount:
		return ErrInvalidAmount
	case BadKind:
		return ErrInvalidKind
	case MissingField:
		return ErrMissingField
	}
	return nil
}

// ValidationError describes a single record that could not be turned into a
// ledger entry. errors.Is matches it against the sentinel of its Kind, so
// errors.Is(err, ErrNegativeAmount) holds for a NegativeAmount error.
type ValidationError struct {
	Kind   ValidationKind
	Record string // store key of the offending record
	Field  string
	Value  any
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("record %q: %s", e.Record, e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" in field %q", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value %v)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// RangeErrorKind classifies a rejected period request.
type RangeErrorKind string

const InvalidCustomRange RangeErrorKind = "invalid_custom_range"

// RangeError is returned when a custom period ends before it starts.
type RangeError struct {
	Kind RangeErrorKind
	From Date
	To   Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: from %s is after to %s", e.Kind, e.From, e.To)
}

func (e *RangeError) Is(target error) bool {
	return e.Kind == InvalidCustomRange && target == ErrInvalidCustomRange
}
