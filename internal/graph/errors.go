package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the binding's precondition and lifecycle failures.
var (
	// ErrNotLoaded is returned by every graph operation invoked before the
	// native extension has been loaded and verified.
	ErrNotLoaded = errors.New("graph extension not loaded")

	// ErrExtensionNotFound means no extension library path could be resolved
	// from the explicit config, the environment, or the search directories.
	ErrExtensionNotFound = errors.New("graph extension library not found")

	// ErrClosed is returned for operations on a closed Graph.
	ErrClosed = errors.New("graph connection closed")
)

// QueryError carries a native-side failure message verbatim. The extension
// reports errors as strings beginning with "Error", and callers diagnosing a
// bad Cypher query need that text untouched.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("graph query failed: %s", e.Message)
}

// DecodeError means the native response was neither valid JSON nor a
// recognized plain-text message. Raw holds the offending payload.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode graph result %q: %v", e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
