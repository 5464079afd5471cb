package resolver

import (
	"errors"
	"fmt"
)

// Failures of a single dynamic resolution. Each one is terminal for the
// resolution in which it occurs and never aborts other in-flight resolutions.
var (
	// ErrUnsupportedQuery the query type is not handled dynamically
	ErrUnsupportedQuery = errors.New("unsupported query type")

	// ErrOutOfScope the domain suffix is not in the allow-list
	ErrOutOfScope = errors.New("domain suffix is not allow-listed")

	// ErrNoSuchDomain the backing store has no entry for the queried name
	ErrNoSuchDomain = errors.New("no such domain")

	// ErrMismatchedRecordType the stored literal's address family disagrees with the requested record type
	ErrMismatchedRecordType = errors.New("stored address family does not match the query type")
)

// StoreError signals a failed backing-store call, with the cause attached for diagnostics
type StoreError struct {
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store lookup failed: %v", e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// DelegationError signals a failed or timed out upstream resolution of an alias target
type DelegationError struct {
	Cause error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("upstream delegation failed: %v", e.Cause)
}

func (e *DelegationError) Unwrap() error {
	return e.Cause
}
