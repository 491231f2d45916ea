package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"
)

func TestAssetDir_WriteListRead(t *testing.T) {
	assets, err := NewAssetDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetDir() error = %v", err)
	}
	ctx := context.Background()

	files := map[string][]byte{
		"officers/hong.jpg":       []byte("jpeg"),
		"gallery/2025/photo.png":  []byte("png"),
		"gallery/2025/photo2.png": []byte("png2"),
	}
	for path, data := range files {
		if err := assets.Write(ctx, path, bytes.NewReader(data)); err != nil {
			t.Fatalf("Write(%q) error = %v", path, err)
		}
	}

	paths, err := assets.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(paths)
	want := []string{"gallery/2025/photo.png", "gallery/2025/photo2.png", "officers/hong.jpg"}
	if len(paths) != len(want) {
		t.Fatalf("List() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	got, err := assets.Read(ctx, "officers/hong.jpg")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, []byte("jpeg")) {
		t.Errorf("Read() = %q, want %q", got, "jpeg")
	}
}

func TestAssetDir_Exists(t *testing.T) {
	assets, err := NewAssetDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetDir() error = %v", err)
	}
	ctx := context.Background()

	if err := assets.Write(ctx, "a.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	ok, err := assets.Exists(ctx, "a.txt")
	if err != nil || !ok {
		t.Errorf("Exists(a.txt) = %v, %v; want true, nil", ok, err)
	}
	ok, err = assets.Exists(ctx, "missing.txt")
	if err != nil || ok {
		t.Errorf("Exists(missing.txt) = %v, %v; want false, nil", ok, err)
	}
}

func TestAssetDir_RemoveAllKeepsRoot(t *testing.T) {
	assets, err := NewAssetDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetDir() error = %v", err)
	}
	ctx := context.Background()

	if err := assets.Write(ctx, "sub/dir/file.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if err := assets.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	paths, err := assets.List(ctx)
	if err != nil {
		t.Fatalf("List() after RemoveAll error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List() = %v, want empty", paths)
	}

	// The root is still usable.
	if err := assets.Write(ctx, "new.txt", strings.NewReader("y")); err != nil {
		t.Errorf("Write() after RemoveAll error = %v", err)
	}
}

func TestAssetDir_RejectsTraversal(t *testing.T) {
	assets, err := NewAssetDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetDir() error = %v", err)
	}
	ctx := context.Background()

	for _, path := range []string{"", "../escape.txt", "/etc/passwd", "a/../../b"} {
		if err := assets.Write(ctx, path, strings.NewReader("x")); err == nil {
			t.Errorf("Write(%q) expected error", path)
		}
	}
}
