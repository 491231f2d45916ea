package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked flock acquisition retries before
// the caller's context gives up.
const lockRetryDelay = 50 * time.Millisecond

// DocumentDir implements Documents as one JSON file per key under a data
// directory. A sidecar lock file guards each write so two processes (the
// server and an operator running a restore) cannot interleave a
// read-modify-write cycle.
type DocumentDir struct {
	dir string
}

// NewDocumentDir creates the document store rooted at dir, creating the
// directory if needed.
func NewDocumentDir(dir string) (*DocumentDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &DocumentDir{dir: dir}, nil
}

// Read returns the stored bytes for key, or nil when the key has never
// been written.
func (d *DocumentDir) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	lock := flock.New(path + ".lock")
	if _, err := lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("lock document %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the stored document for key. The bytes land in a temp file
// first and are renamed into place, so readers never observe a torn write.
func (d *DocumentDir) Write(ctx context.Context, key string, doc []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock document %s: %w", key, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(d.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("stage document %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("stage document %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("stage document %s: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish document %s: %w", key, err)
	}
	return nil
}

// path maps a document key to its file, rejecting keys that would escape
// the data directory.
func (d *DocumentDir) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid document key: %q", key)
	}
	return filepath.Join(d.dir, key+".json"), nil
}
