package core

// target_lock.go implements per-target mutual exclusion for destructive
// operations.
//
// Imports and restores run delete-then-write sequences that must never
// interleave on the same collection, so each target admits at most one
// in-flight operation. There is no queueing: a second attempt fails
// immediately with *ConcurrentOperationError and the client retries.
// Exports are read-only and take no lock.

import "sync"

// targetLocks tracks which targets have a destructive operation in flight.
type targetLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newTargetLocks() *targetLocks {
	return &targetLocks{held: make(map[string]bool)}
}

// acquire claims a target for one operation.
// The caller MUST release the same key when the operation completes.
func (l *targetLocks) acquire(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return &ConcurrentOperationError{Target: key}
	}
	l.held[key] = true
	return nil
}

// release frees a previously acquired target.
func (l *targetLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// activeCount returns how many targets currently hold an operation.
func (l *targetLocks) activeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
