package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures so callers can render a specific message or status code.
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindAllocationExhausted Kind = "allocation_exhausted"
	KindPartialFailure      Kind = "partial_failure"
)

// Sentinels usable with errors.Is regardless of field or id details.
var (
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrAllocationExhausted = &Error{Kind: KindAllocationExhausted}
	ErrPartialFailure      = &Error{Kind: KindPartialFailure}
)

// Error carries the failure kind plus the offending field or entity id.
type Error struct {
	Kind  Kind
	Field string
	ID    string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if e.ID != "" {
		b.WriteString(" id=")
		b.WriteString(e.ID)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so wrapped details never defeat errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// InvalidArgument reports malformed or out-of-range input on field.
func InvalidArgument(field, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Field: entity, ID: id, Msg: entity + " not found"}
}

// Conflict reports a uniqueness violation that could not be resolved.
func Conflict(field, msg string, cause error) error {
	return &Error{Kind: KindConflict, Field: field, Msg: msg, Err: cause}
}

// AllocationExhausted reports that no unique value was found within the attempt budget.
func AllocationExhausted(attempts int) error {
	return &Error{Kind: KindAllocationExhausted, Field: "barcode", Msg: fmt.Sprintf("could not generate a unique barcode after %d attempts", attempts)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrPartialFailure) {
		return KindPartialFailure
	}
	return ""
}
