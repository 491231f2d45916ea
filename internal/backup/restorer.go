package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/store"
)

// Policy selects how a restore treats data already present.
type Policy string

const (
	// PolicyOverwrite clears each collection and the asset root before
	// writing the archive's contents. The destructive default.
	PolicyOverwrite Policy = "overwrite"

	// PolicyMerge writes only items whose natural key is not already
	// present; collisions are skipped, never replaced.
	PolicyMerge Policy = "merge"
)

// ParsePolicy maps the request's policy flag to a Policy. An empty flag
// means overwrite.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyOverwrite:
		return PolicyOverwrite, nil
	case PolicyMerge:
		return PolicyMerge, nil
	}
	return "", fmt.Errorf("unknown restore policy: %q", s)
}

// RestoreResult summarizes what a restore did, counted per item: one flat
// row, one document, or one asset file each count as one item.
type RestoreResult struct {
	Merged      int `json:"merged"`
	Skipped     int `json:"skipped"`
	Overwritten int `json:"overwritten"`
}

// Locker excludes imports while a restore runs. The orchestrator's
// per-target locks satisfy it.
type Locker interface {
	LockTarget(target string) error
	UnlockTarget(target string)
}

// Restorer applies one uploaded archive. Validation is complete before the
// first mutation: a rejected archive leaves every collection untouched.
type Restorer struct {
	stores store.Stores
	locks  Locker
}

// NewRestorer creates a Restorer over the given collaborators.
func NewRestorer(stores store.Stores, locks Locker) *Restorer {
	return &Restorer{stores: stores, locks: locks}
}

// archiveContents is the validated form of an upload. Collection payloads
// are parsed up front; assets stay as zip entry handles and stream to the
// store during apply, so a restore never holds the whole asset tree in
// memory. An asset read error mid-apply surfaces as *PartialRestoreError.
type archiveContents struct {
	flat   map[string][]schema.FlatRecord
	docs   map[string][]byte
	assets map[string]*zip.File
}

// Restore validates the archive, locks every target against concurrent
// imports, and applies the contents under the given policy.
func (r *Restorer) Restore(ctx context.Context, archive io.ReaderAt, size int64, policy Policy) (*RestoreResult, error) {
	contents, err := r.validate(archive, size)
	if err != nil {
		return nil, err
	}

	targets := schema.All()
	var locked []string
	for _, def := range targets {
		if err := r.locks.LockTarget(def.Info.Key); err != nil {
			for _, key := range locked {
				r.locks.UnlockTarget(key)
			}
			return nil, err
		}
		locked = append(locked, def.Info.Key)
	}
	defer func() {
		for _, key := range locked {
			r.locks.UnlockTarget(key)
		}
	}()

	opID := uuid.NewString()
	start := time.Now()
	var result *RestoreResult
	switch policy {
	case PolicyMerge:
		result, err = r.applyMerge(ctx, contents)
	default:
		result, err = r.applyOverwrite(ctx, contents)
	}
	if err != nil {
		slog.ErrorContext(ctx, "restore failed",
			"operation_id", opID, "policy", string(policy), "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "archive restored",
		"operation_id", opID,
		"policy", string(policy),
		"merged", result.Merged,
		"skipped", result.Skipped,
		"overwritten", result.Overwritten,
		"duration", time.Since(start),
	)
	return result, nil
}

// validate opens and fully parses the archive. Every failure here is an
// *InvalidArchiveError; nothing has been written yet.
func (r *Restorer) validate(archive io.ReaderAt, size int64) (*archiveContents, error) {
	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return nil, &InvalidArchiveError{Reason: fmt.Sprintf("not a readable zip: %v", err)}
	}

	entries := make(map[string]*zip.File, len(zr.File))
	var declared uint64
	for _, f := range zr.File {
		if err := validateEntryPath(f.Name); err != nil {
			return nil, &InvalidArchiveError{Reason: err.Error()}
		}
		declared += f.UncompressedSize64
		entries[f.Name] = f
	}
	if declared > maxArchiveSize {
		return nil, &InvalidArchiveError{Reason: fmt.Sprintf("declared size %d exceeds limit", declared)}
	}

	manEntry, ok := entries[manifestName]
	if !ok {
		return nil, &InvalidArchiveError{Reason: "manifest.json is missing"}
	}
	manBytes, err := readEntry(manEntry)
	if err != nil {
		return nil, &InvalidArchiveError{Reason: fmt.Sprintf("manifest unreadable: %v", err)}
	}
	var man manifest
	if err := json.Unmarshal(manBytes, &man); err != nil {
		return nil, &InvalidArchiveError{Reason: fmt.Sprintf("manifest unparseable: %v", err)}
	}
	if man.Version != manifestVersion {
		return nil, &InvalidArchiveError{Reason: fmt.Sprintf("unsupported manifest version %d", man.Version)}
	}

	contents := &archiveContents{
		flat:   make(map[string][]schema.FlatRecord),
		docs:   make(map[string][]byte),
		assets: make(map[string]*zip.File),
	}

	for _, collection := range schema.FlatCollections() {
		name := collectionsPrefix + collection + ".json"
		entry, ok := entries[name]
		if !ok {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("collection file %s is missing", name)}
		}
		data, err := readEntry(entry)
		if err != nil {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("%s unreadable: %v", name, err)}
		}
		records, err := schema.UnmarshalFlat(collection, data)
		if err != nil {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("%s unparseable: %v", name, err)}
		}
		contents.flat[collection] = records
	}

	for _, key := range schema.DocumentKeys() {
		name := collectionsPrefix + key + ".json"
		entry, ok := entries[name]
		if !ok {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("collection file %s is missing", name)}
		}
		data, err := readEntry(entry)
		if err != nil {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("%s unreadable: %v", name, err)}
		}
		def, ok := documentDefinition(key)
		if !ok {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("unknown document collection %s", key)}
		}
		if _, err := def.DecodeDoc(data); err != nil {
			return nil, &InvalidArchiveError{Reason: fmt.Sprintf("%s unparseable: %v", name, err)}
		}
		contents.docs[key] = data
	}

	for name, entry := range entries {
		if !strings.HasPrefix(name, assetsPrefix) || strings.HasSuffix(name, "/") {
			continue
		}
		contents.assets[strings.TrimPrefix(name, assetsPrefix)] = entry
	}

	return contents, nil
}

// applyOverwrite clears and rewrites each collection and the asset root.
// A failure after the first mutation surfaces as *PartialRestoreError
// naming every collection touched so far.
func (r *Restorer) applyOverwrite(ctx context.Context, contents *archiveContents) (*RestoreResult, error) {
	result := &RestoreResult{}
	var touched []string

	for _, collection := range schema.FlatCollections() {
		records := contents.flat[collection]
		touched = append(touched, collection)
		if err := r.stores.Records.ReplaceAll(ctx, collection, records); err != nil {
			return nil, r.partial(touched, fmt.Errorf("replace %s: %w", collection, err))
		}
		result.Overwritten += len(records)
	}

	for _, key := range schema.DocumentKeys() {
		touched = append(touched, key)
		if err := r.stores.Documents.Write(ctx, key, contents.docs[key]); err != nil {
			return nil, r.partial(touched, fmt.Errorf("write %s: %w", key, err))
		}
		result.Overwritten++
	}

	touched = append(touched, "assets")
	if err := r.stores.Assets.RemoveAll(ctx); err != nil {
		return nil, r.partial(touched, fmt.Errorf("clear assets: %w", err))
	}
	for path, entry := range contents.assets {
		if err := r.streamAsset(ctx, path, entry); err != nil {
			return nil, r.partial(touched, err)
		}
		result.Overwritten++
	}

	return result, nil
}

// applyMerge writes only items not already present. Existing items keep
// their bytes; colliding archive items count as skipped.
func (r *Restorer) applyMerge(ctx context.Context, contents *archiveContents) (*RestoreResult, error) {
	result := &RestoreResult{}
	var touched []string

	for _, collection := range schema.FlatCollections() {
		existing, err := r.stores.Records.ListAll(ctx, collection)
		if err != nil {
			return nil, r.partial(touched, fmt.Errorf("list %s: %w", collection, err))
		}
		present := make(map[string]bool, len(existing))
		for _, rec := range existing {
			present[rec.NaturalKey()] = true
		}

		var fresh []schema.FlatRecord
		for _, rec := range contents.flat[collection] {
			if present[rec.NaturalKey()] {
				result.Skipped++
				continue
			}
			fresh = append(fresh, rec)
		}
		if len(fresh) == 0 {
			continue
		}
		touched = append(touched, collection)
		if err := r.stores.Records.BulkInsert(ctx, collection, fresh); err != nil {
			return nil, r.partial(touched, fmt.Errorf("insert into %s: %w", collection, err))
		}
		result.Merged += len(fresh)
	}

	for _, key := range schema.DocumentKeys() {
		existing, err := r.stores.Documents.Read(ctx, key)
		if err != nil {
			return nil, r.partial(touched, fmt.Errorf("read %s: %w", key, err))
		}
		if len(existing) > 0 {
			result.Skipped++
			continue
		}
		touched = append(touched, key)
		if err := r.stores.Documents.Write(ctx, key, contents.docs[key]); err != nil {
			return nil, r.partial(touched, fmt.Errorf("write %s: %w", key, err))
		}
		result.Merged++
	}

	for path, entry := range contents.assets {
		exists, err := r.stores.Assets.Exists(ctx, path)
		if err != nil {
			return nil, r.partial(touched, fmt.Errorf("check asset %s: %w", path, err))
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := r.streamAsset(ctx, path, entry); err != nil {
			return nil, r.partial(append(touched, "assets"), err)
		}
		result.Merged++
	}

	return result, nil
}

func (r *Restorer) partial(touched []string, err error) error {
	return &PartialRestoreError{Collections: touched, Err: err}
}

// streamAsset copies one archive entry into the asset store without
// buffering it.
func (r *Restorer) streamAsset(ctx context.Context, path string, entry *zip.File) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open asset %s: %w", path, err)
	}
	defer rc.Close()
	if err := r.stores.Assets.Write(ctx, path, rc); err != nil {
		return fmt.Errorf("write asset %s: %w", path, err)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// validateEntryPath rejects archive entry names that could escape the
// extraction roots: absolute paths, Windows drive paths, and traversal.
func validateEntryPath(name string) error {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) {
		return fmt.Errorf("absolute path in archive: %s", name)
	}
	if len(name) >= 3 && name[1] == ':' && (name[2] == '\\' || name[2] == '/') {
		return fmt.Errorf("absolute path in archive: %s", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || strings.Contains(name, "..") {
		return fmt.Errorf("path traversal in archive: %s", name)
	}
	return nil
}
