// Package errors provides structured error types for the bindless registry.
//
// Errors are categorized by Op (which registry operation failed) and Kind
// (error class). Alloc is the only operation that surfaces hard errors:
//
//	h, err := table.Alloc(desc)
//	switch {
//	case errors.Is(err, errors.ErrExhausted):
//	    // release something and retry
//	case errors.Is(err, errors.ErrConstructionFailed):
//	    // driver-level failure; slot was returned to the free state
//	}
//
// Stale or malformed handles are never errors: retain/release/query treat
// them as safe no-ops, because racing a defensive release against another
// owner is an expected condition in shared ownership graphs.
//
// All errors implement the standard error interface and support
// errors.Is/As; Is matches on (Op, Kind), with the exported Err* sentinels
// matching any Op of their Kind.
package errors
