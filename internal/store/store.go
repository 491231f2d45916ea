// Package store holds the three persistence collaborators the interchange
// engine writes through: a PostgreSQL record store for the flat
// collections, a file-backed JSON document store for the document-shaped
// collections, and a byte-blob asset store for uploads. The orchestrator
// and the backup engine depend only on the interfaces here, so tests swap
// in in-memory doubles.
package store

import (
	"context"
	"io"

	"github.com/sunghokim-dev/presbytery-site/internal/schema"
)

// Records is the flat-collection collaborator. Implementations must make
// ReplaceAll atomic: a failure partway through leaves the collection in its
// prior state, never half-deleted.
type Records interface {
	ListAll(ctx context.Context, collection string) ([]schema.FlatRecord, error)
	DeleteAll(ctx context.Context, collection string) error
	BulkInsert(ctx context.Context, collection string, records []schema.FlatRecord) error
	ReplaceAll(ctx context.Context, collection string, records []schema.FlatRecord) error
}

// Documents is the document-collection collaborator. Read returns nil bytes
// (not an error) for a key that has never been written.
type Documents interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, doc []byte) error
}

// Assets is the uploaded-blob collaborator. Paths are slash-separated and
// relative to the asset root. Write consumes a reader so restored archives
// stream to disk one entry at a time instead of passing through memory
// whole.
type Assets interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, r io.Reader) error
	Exists(ctx context.Context, path string) (bool, error)
	RemoveAll(ctx context.Context) error
}

// Stores bundles the three collaborators for components that need all of
// them.
type Stores struct {
	Records   Records
	Documents Documents
	Assets    Assets
}
