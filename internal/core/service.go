// Package core orchestrates the bulk interchange operations: rendering a
// target's current state as a downloadable table and committing parsed
// rows back through the right persistence collaborator. It has no HTTP
// dependencies; internal/web is a thin shell over this package.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/store"
	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// Service dispatches import/export requests to the matching schema adapter
// and persistence collaborator.
type Service struct {
	stores store.Stores
	locks  *targetLocks
}

// NewService creates a Service over the given collaborators.
func NewService(stores store.Stores) *Service {
	return &Service{
		stores: stores,
		locks:  newTargetLocks(),
	}
}

// Targets returns the info of every registered target, sorted by key.
func (s *Service) Targets() []schema.TargetInfo {
	defs := schema.All()
	infos := make([]schema.TargetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// ImportResult reports the outcome of one table import. OperationID ties
// the response to the server log lines for the same commit.
type ImportResult struct {
	OperationID   string        `json:"operationId"`
	Target        string        `json:"target"`
	ImportedCount int           `json:"importedCount"`
	Duration      time.Duration `json:"-"`
}

// ExportTable renders the current state of a target as a tabular document.
// When nothing is persisted yet, the document carries exactly one example
// row so the downloaded template documents its own columns. Exports take
// no lock and may run concurrently with anything.
func (s *Service) ExportTable(ctx context.Context, target string) (*tabular.Document, error) {
	def, ok := schema.Get(target)
	if !ok {
		return nil, fmt.Errorf("unknown target: %s", target)
	}

	domain, err := s.loadSnapshot(ctx, def)
	if err != nil {
		return nil, err
	}

	rows := def.ToRows(domain)
	if len(rows) == 0 {
		rows = def.ToRows(def.Sample())
	}

	return &tabular.Document{Headers: def.Headers, Rows: rows}, nil
}

// ImportTable decodes raw CSV bytes, converts them through the target's
// adapter, and commits the result: flat targets as an atomic
// delete-all-plus-bulk-insert, document targets as a read-modify-write
// that preserves fields the tabular form does not carry.
//
// The commit is destructive for flat targets; callers own the user-facing
// confirmation step before invoking it.
func (s *Service) ImportTable(ctx context.Context, target string, data []byte) (*ImportResult, error) {
	def, ok := schema.Get(target)
	if !ok {
		return nil, fmt.Errorf("unknown target: %s", target)
	}

	if err := s.locks.acquire(target); err != nil {
		return nil, err
	}
	defer s.locks.release(target)

	opID := uuid.NewString()
	start := time.Now()

	doc, err := tabular.DecodeWith(data, tabular.DecodeOptions{PadShortRows: def.PadShortRows})
	if err != nil {
		return nil, err
	}
	// Checked against the header line, not the rows, so a headers-only
	// upload with the wrong columns cannot commit an empty snapshot.
	if err := schema.RequireColumns(target, def.Headers, doc.Headers); err != nil {
		return nil, err
	}
	domain, err := def.FromRows(doc.Rows)
	if err != nil {
		return nil, err
	}

	var count int
	switch def.Info.Kind {
	case schema.KindFlat:
		count, err = s.commitFlat(ctx, def, domain)
	case schema.KindDocument:
		count, err = s.commitDocument(ctx, def, domain, len(doc.Rows))
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "table imported",
		"operation_id", opID,
		"target", target,
		"rows", len(doc.Rows),
		"imported", count,
		"duration", time.Since(start),
	)

	return &ImportResult{
		OperationID:   opID,
		Target:        target,
		ImportedCount: count,
		Duration:      time.Since(start),
	}, nil
}

// commitFlat swaps the whole collection for the imported records. The
// record store runs the swap in one transaction; a failure is still
// surfaced as *PartialCommitError so the caller verifies state instead of
// assuming a clean rollback.
func (s *Service) commitFlat(ctx context.Context, def schema.Definition, domain any) (int, error) {
	records := domain.([]schema.FlatRecord)
	if err := s.stores.Records.ReplaceAll(ctx, def.Info.Collection, records); err != nil {
		return 0, &PartialCommitError{Target: def.Info.Key, Err: err}
	}
	return len(records), nil
}

// commitDocument folds the imported snapshot into the stored document and
// writes it back under the store's file lock.
func (s *Service) commitDocument(ctx context.Context, def schema.Definition, domain any, rowCount int) (int, error) {
	raw, err := s.stores.Documents.Read(ctx, def.Info.Collection)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", def.Info.Collection, err)
	}
	existing, err := def.DecodeDoc(raw)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", def.Info.Collection, err)
	}

	merged := def.MergeDoc(existing, domain)
	encoded, err := def.EncodeDoc(merged)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", def.Info.Collection, err)
	}
	if err := s.stores.Documents.Write(ctx, def.Info.Collection, encoded); err != nil {
		return 0, fmt.Errorf("write %s: %w", def.Info.Collection, err)
	}
	return rowCount, nil
}

// loadSnapshot returns the target's current domain snapshot, or its
// defaults when nothing is persisted.
func (s *Service) loadSnapshot(ctx context.Context, def schema.Definition) (any, error) {
	switch def.Info.Kind {
	case schema.KindFlat:
		records, err := s.stores.Records.ListAll(ctx, def.Info.Collection)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", def.Info.Collection, err)
		}
		return records, nil

	case schema.KindDocument:
		raw, err := s.stores.Documents.Read(ctx, def.Info.Collection)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", def.Info.Collection, err)
		}
		return def.DecodeDoc(raw)
	}
	return nil, fmt.Errorf("unknown target kind: %d", def.Info.Kind)
}

// ActiveOperations returns how many targets currently have an import or
// restore in flight. Exposed for the shutdown path.
func (s *Service) ActiveOperations() int {
	return s.locks.activeCount()
}

// LockTarget claims a target on behalf of a non-import operation that must
// still exclude imports (the archive restorer). Release with UnlockTarget.
func (s *Service) LockTarget(target string) error {
	return s.locks.acquire(target)
}

// UnlockTarget releases a target claimed with LockTarget.
func (s *Service) UnlockTarget(target string) {
	s.locks.release(target)
}
