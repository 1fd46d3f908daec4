package errors

import (
	"fmt"
	"strings"
)

// Op names the registry operation that produced the error.
type Op string

const (
	OpAlloc     Op = "alloc"
	OpRetain    Op = "retain"
	OpRelease   Op = "release"
	OpQuery     Op = "query"
	OpConstruct Op = "construct"
	OpDestruct  Op = "destruct"
	OpConfig    Op = "config"
	OpClose     Op = "close"
)

// Kind categorizes the error.
type Kind string

const (
	// KindInvalidArgument marks a nil or empty creation descriptor,
	// or a nil table/registry.
	KindInvalidArgument Kind = "invalid_argument"

	// KindExhausted marks a kind table with no free slot at its fixed
	// capacity. This is an expected condition, not a bug; the caller may
	// release resources and retry.
	KindExhausted Kind = "exhausted"

	// KindConstructionFailed marks a backing-object construction hook
	// reporting failure. The slot was returned to the free state.
	KindConstructionFailed Kind = "construction_failed"

	// KindClosed marks an operation against a closed table or registry.
	KindClosed Kind = "closed"

	// KindInvalidConfig marks a capacity configuration that fails
	// validation.
	KindInvalidConfig Kind = "invalid_config"
)

// Error is the structured error type used throughout the registry.
//
// Stale handles are deliberately NOT represented here: passing an
// already-released handle to retain/release/query is an expected,
// recoverable condition and degrades to a no-op or sentinel return,
// never an Error.
type Error struct {
	Cause    error
	Op       Op
	Kind     Kind
	Resource string // kind-table name ("texture", "buffer", "sampler"), if relevant
	Detail   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Resource != "" {
		b.WriteString(" (")
		b.WriteString(e.Resource)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by (Op, Kind).
// A target with an empty Op matches any Op of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return e.Kind == t.Kind
}

// Convenience constructors for the registry's error classes.

// InvalidArgument creates an invalid-argument error.
func InvalidArgument(op Op, resource, detail string) *Error {
	return &Error{
		Op:       op,
		Kind:     KindInvalidArgument,
		Resource: resource,
		Detail:   detail,
	}
}

// Exhausted creates a capacity-exhaustion error for a kind table.
func Exhausted(resource string, capacity uint32) *Error {
	return &Error{
		Op:       OpAlloc,
		Kind:     KindExhausted,
		Resource: resource,
		Detail:   fmt.Sprintf("no free slot (capacity %d)", capacity),
	}
}

// ConstructionFailed wraps a constructor hook failure.
func ConstructionFailed(resource string, slot uint32, cause error) *Error {
	return &Error{
		Op:       OpAlloc,
		Kind:     KindConstructionFailed,
		Resource: resource,
		Detail:   fmt.Sprintf("construct backing object for slot %d", slot),
		Cause:    cause,
	}
}

// Closed creates an error for operations against a closed table.
func Closed(op Op, resource string) *Error {
	return &Error{
		Op:       op,
		Kind:     KindClosed,
		Resource: resource,
		Detail:   "table closed",
	}
}

// InvalidConfig creates a configuration validation error.
func InvalidConfig(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Op:     OpConfig,
		Kind:   KindInvalidConfig,
		Detail: detail,
	}
}

// Sentinels for errors.Is matching by Kind regardless of Op.
var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrExhausted          = &Error{Kind: KindExhausted}
	ErrConstructionFailed = &Error{Kind: KindConstructionFailed}
	ErrClosed             = &Error{Kind: KindClosed}
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
)
