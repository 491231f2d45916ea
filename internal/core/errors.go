package core

import "fmt"

// ConcurrentOperationError reports a second import or restore attempted
// against a target that already has one mid-operation. The first operation
// is unaffected; the caller should retry after it finishes.
type ConcurrentOperationError struct {
	Target string
}

func (e *ConcurrentOperationError) Error() string {
	return fmt.Sprintf("another import is already running for %s, try again shortly", e.Target)
}

// PartialCommitError reports a flat-table replace that failed after the
// destructive phase may have begun. The record store performs the swap
// transactionally where it can, but the caller must still verify the
// collection rather than assume either the old or the new contents.
type PartialCommitError struct {
	Target string
	Err    error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("import of %s did not complete, verify the collection before retrying: %v", e.Target, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
