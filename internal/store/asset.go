package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AssetDir implements Assets as plain files under a root directory.
// Payloads are unbounded, so writes copy from the reader straight to disk;
// the backup engine feeds archive entries through here one at a time.
type AssetDir struct {
	root string
}

// NewAssetDir creates the asset store rooted at root, creating the
// directory if needed.
func NewAssetDir(root string) (*AssetDir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}
	return &AssetDir{root: root}, nil
}

// Root returns the asset root directory.
func (a *AssetDir) Root() string { return a.root }

// List returns the slash-separated relative paths of every stored asset,
// sorted by the walk order (lexical within each directory).
func (a *AssetDir) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return paths, nil
}

// Read returns the bytes of one asset.
func (a *AssetDir) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := a.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	return data, nil
}

// Write streams an asset to disk, creating intermediate directories as
// needed.
func (a *AssetDir) Write(ctx context.Context, path string, r io.Reader) error {
	full, err := a.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write asset %s: %w", path, err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write asset %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write asset %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write asset %s: %w", path, err)
	}
	return nil
}

// Exists reports whether an asset is present.
func (a *AssetDir) Exists(ctx context.Context, path string) (bool, error) {
	full, err := a.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveAll clears the asset root's contents, keeping the root itself.
func (a *AssetDir) RemoveAll(ctx context.Context) error {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return fmt.Errorf("clear asset root: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(a.root, entry.Name())); err != nil {
			return fmt.Errorf("clear asset root: %w", err)
		}
	}
	return nil
}

// resolve maps a relative slash path inside the root, rejecting traversal.
func (a *AssetDir) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty asset path")
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset path escapes root: %q", path)
	}
	return filepath.Join(a.root, clean), nil
}
