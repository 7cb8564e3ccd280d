// Package store writes downloaded tiles into the standard slippy-map
// directory layout {root}/{z}/{x}/{y}.{ext} so the output tree can be served
// to map viewers as-is.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tilepull/internal/slippy"
)

type Store struct {
	root string
}

// New creates the output root if needed and probes it for writability so a
// bad --output fails before any download starts.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	probe, err := os.CreateTemp(root, ".tilepull-probe-*")
	if err != nil {
		return nil, fmt.Errorf("output directory not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return &Store{root: root}, nil
}

// Root returns the output root directory.
func (s *Store) Root() string {
	return s.root
}

// TilePath returns the destination path for a tile.
func (s *Store) TilePath(t slippy.Tile, ext string) string {
	return filepath.Join(s.root, strconv.Itoa(t.Z), strconv.Itoa(t.X), strconv.Itoa(t.Y)+"."+ext)
}

// Exists reports whether the destination already holds a file.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes tile bytes to path. The parent chain is created first
// (MkdirAll is idempotent, so concurrent workers sharing a {z}/{x} directory
// cannot fail each other), then the bytes go to a temp file in the same
// directory and are renamed into place so a half-written tile never lands at
// the final path.
func (s *Store) Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create tile directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp tile file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write tile file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close tile file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize tile file: %w", err)
	}
	return nil
}
