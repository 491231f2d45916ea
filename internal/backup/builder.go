// Package backup packs every persisted collection and the asset tree into a
// single zip archive, and restores such archives under an overwrite or a
// merge policy. Building and restoring both work collection-by-collection
// so asset payloads are never held in memory all at once.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/store"
)

// buildState tracks one build operation through its phases. Each Builder
// runs a single operation, so the state is never shared between requests.
type buildState int

const (
	stateIdle buildState = iota
	stateCollecting
	statePacking
	stateDone
	stateFailed
)

func (s buildState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCollecting:
		return "collecting"
	case statePacking:
		return "packing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Builder assembles one backup archive. Create a fresh Builder per
// operation; it is not reusable after Done or Failed.
type Builder struct {
	stores store.Stores
	state  buildState
}

// NewBuilder creates a Builder over the given collaborators.
func NewBuilder(stores store.Stores) *Builder {
	return &Builder{stores: stores, state: stateIdle}
}

// State returns the phase the build is in.
func (b *Builder) State() string { return b.state.String() }

// Filename returns the download name for a backup taken at the given time.
func Filename(now time.Time) string {
	return fmt.Sprintf("presbytery-backup-%s.zip", now.Format("2006-01-02"))
}

// WriteTo streams the archive directly to w. Used by the download handler,
// which owns the response; a mid-stream failure surfaces as a truncated
// body there, so callers needing an all-or-nothing file use BuildFile.
func (b *Builder) WriteTo(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	if err := b.writeArchive(ctx, zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		b.state = stateFailed
		return fmt.Errorf("finalize archive: %w", err)
	}
	b.state = stateDone
	return nil
}

// BuildFile writes the archive to path. The bytes land in a temp file in
// the same directory and are renamed into place, so a failed build leaves
// no partial archive visible at path.
func (b *Builder) BuildFile(ctx context.Context, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "backup-*.zip.tmp")
	if err != nil {
		b.state = stateFailed
		return fmt.Errorf("stage archive: %w", err)
	}
	tmpName := tmp.Name()

	zw := zip.NewWriter(tmp)
	if err := b.writeArchive(ctx, zw); err != nil {
		zw.Close()
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		b.state = stateFailed
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		b.state = stateFailed
		return fmt.Errorf("stage archive: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		b.state = stateFailed
		return fmt.Errorf("publish archive: %w", err)
	}
	b.state = stateDone
	return nil
}

// writeArchive runs Collecting then Packing against the open zip writer.
func (b *Builder) writeArchive(ctx context.Context, zw *zip.Writer) error {
	b.state = stateCollecting
	start := time.Now()

	flat := schema.FlatCollections()
	docs := schema.DocumentKeys()

	assetPaths, err := b.stores.Assets.List(ctx)
	if err != nil {
		return b.fail(fmt.Errorf("list assets: %w", err))
	}

	man := manifest{
		Version:     manifestVersion,
		CreatedAt:   time.Now().UTC(),
		Collections: flat,
		Documents:   docs,
		AssetCount:  len(assetPaths),
	}

	b.state = statePacking

	manBytes, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return b.fail(fmt.Errorf("encode manifest: %w", err))
	}
	if err := b.addEntry(zw, manifestName, manBytes, man.CreatedAt); err != nil {
		return b.fail(err)
	}

	for _, collection := range flat {
		records, err := b.stores.Records.ListAll(ctx, collection)
		if err != nil {
			return b.fail(fmt.Errorf("collect %s: %w", collection, err))
		}
		data, err := schema.MarshalFlat(records)
		if err != nil {
			return b.fail(fmt.Errorf("serialize %s: %w", collection, err))
		}
		if err := b.addEntry(zw, collectionsPrefix+collection+".json", data, man.CreatedAt); err != nil {
			return b.fail(err)
		}
	}

	for _, key := range docs {
		data, err := b.documentBytes(ctx, key)
		if err != nil {
			return b.fail(err)
		}
		if err := b.addEntry(zw, collectionsPrefix+key+".json", data, man.CreatedAt); err != nil {
			return b.fail(err)
		}
	}

	for _, path := range assetPaths {
		if ctx.Err() != nil {
			return b.fail(ctx.Err())
		}
		data, err := b.stores.Assets.Read(ctx, path)
		if err != nil {
			return b.fail(fmt.Errorf("collect asset %s: %w", path, err))
		}
		if err := b.addEntry(zw, assetsPrefix+path, data, man.CreatedAt); err != nil {
			return b.fail(err)
		}
	}

	slog.InfoContext(ctx, "backup archive built",
		"collections", len(flat)+len(docs),
		"assets", len(assetPaths),
		"duration", time.Since(start),
	)
	return nil
}

// documentBytes returns the stored document, or its canonical empty form
// when the key has never been written, so the archive always carries every
// expected collection file.
func (b *Builder) documentBytes(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.stores.Documents.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", key, err)
	}
	if len(raw) > 0 {
		return raw, nil
	}

	def, ok := documentDefinition(key)
	if !ok {
		return nil, fmt.Errorf("no document target for key %s", key)
	}
	empty, err := def.DecodeDoc(nil)
	if err != nil {
		return nil, fmt.Errorf("default %s: %w", key, err)
	}
	return def.EncodeDoc(empty)
}

func (b *Builder) addEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}

func (b *Builder) fail(err error) error {
	b.state = stateFailed
	return err
}

// documentDefinition finds the target definition backing a document key.
func documentDefinition(key string) (schema.Definition, bool) {
	for _, def := range schema.All() {
		if def.Info.Kind == schema.KindDocument && def.Info.Collection == key {
			return def, true
		}
	}
	return schema.Definition{}, false
}
