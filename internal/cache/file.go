// Package cache persists the serving process's importer states between
// restarts.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/JakeFAU/iconsync/internal/importer"
	"github.com/JakeFAU/iconsync/internal/storage/local"
)

// Version is the current on-disk format.
const Version = 1

// ErrCorrupt is returned by Load when the file exists but cannot be used.
var ErrCorrupt = errors.New("init cache is corrupt")

// Snapshot is the cached init state.
type Snapshot struct {
	Version   int              `json:"version"`
	Importers []importer.State `json:"importers"`
}

// File is a JSON cache file.
type File struct {
	path string
}

// New returns a cache stored at path.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the cache location.
func (f *File) Path() string {
	return f.path
}

// Exists reports whether a cache file is present.
func (f *File) Exists() bool {
	info, err := os.Stat(f.path)
	return err == nil && !info.IsDir()
}

// Load reads the snapshot. Unreadable, unparsable or wrong-version content
// wraps ErrCorrupt.
func (f *File) Load() (Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read %s: %w", ErrCorrupt, f.path, err)
	}
	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, f.path, err)
	}
	if s.Version != Version {
		return Snapshot{}, fmt.Errorf("%w: version %d, want %d", ErrCorrupt, s.Version, Version)
	}
	for i, st := range s.Importers {
		if st.Kind == "" {
			return Snapshot{}, fmt.Errorf("%w: importer %d has no kind", ErrCorrupt, i)
		}
	}
	return s, nil
}

// Save replaces the cache file atomically. The version is always set to
// Version.
func (f *File) Save(ctx context.Context, s Snapshot) error {
	s.Version = Version
	if s.Importers == nil {
		s.Importers = []importer.State{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode init cache: %w", err)
	}
	if _, err := local.WriteFile(ctx, f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save init cache: %w", err)
	}
	return nil
}

// Remove deletes the cache file. A missing file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove init cache: %w", err)
	}
	return nil
}
