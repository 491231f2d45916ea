package backup

import (
	"fmt"
	"strings"
)

// InvalidArchiveError reports an uploaded archive that failed validation.
// Nothing has been mutated when this is returned; the upload can simply be
// corrected and retried.
type InvalidArchiveError struct {
	Reason string
}

func (e *InvalidArchiveError) Error() string {
	return fmt.Sprintf("invalid backup archive: %s", e.Reason)
}

// PartialRestoreError reports a restore that began mutating data and then
// failed. Collections lists every collection touched before the failure,
// including the one that failed. Unlike validation failures this is not
// safely retryable without an operator first checking those collections.
type PartialRestoreError struct {
	Collections []string
	Err         error
}

func (e *PartialRestoreError) Error() string {
	return fmt.Sprintf("restore failed partway, verify collections [%s]: %v",
		strings.Join(e.Collections, ", "), e.Err)
}

func (e *PartialRestoreError) Unwrap() error { return e.Err }
