package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/logging"
)

// KindDirectory identifies DirectoryImporter state.
const KindDirectory = "directory"

// DirectoryImporter loads *.json artifacts from a local directory.
type DirectoryImporter struct {
	artifactSets
	dir    string
	logger *zap.Logger
}

// NewDirectoryImporter creates an importer for dir.
func NewDirectoryImporter(dir string, logger *zap.Logger) *DirectoryImporter {
	return &DirectoryImporter{dir: dir, logger: logging.OrNop(logger).Named("importer.directory")}
}

// Kind returns KindDirectory.
func (d *DirectoryImporter) Kind() string { return KindDirectory }

// Dir returns the source directory.
func (d *DirectoryImporter) Dir() string { return d.dir }

// Init reads every artifact in the directory. Artifacts that do not decode
// are logged and skipped.
func (d *DirectoryImporter) Init(ctx context.Context) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read artifact dir %s: %w", d.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	artifacts := make([]export.Artifact, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(d.dir, name)
		a, err := readArtifact(path)
		if err != nil {
			d.logger.Warn("skipping artifact", zap.String("path", path), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, a)
	}
	if err := d.load(artifacts); err != nil {
		return err
	}
	d.logger.Info("artifacts loaded", zap.String("dir", d.dir), zap.Int("sets", len(artifacts)))
	return nil
}

// Snapshot persists the loaded artifacts.
func (d *DirectoryImporter) Snapshot() (State, error) {
	return d.snapshot(KindDirectory, d.dir)
}

// RestoreDirectory rebuilds a DirectoryImporter from state without reading
// the directory.
func RestoreDirectory(logger *zap.Logger) Restorer {
	return func(state State) (Importer, error) {
		s, err := decodeArtifactState(state)
		if err != nil {
			return nil, err
		}
		d := NewDirectoryImporter(s.Source, logger)
		if err := d.load(s.Artifacts); err != nil {
			return nil, err
		}
		return d, nil
	}
}

func readArtifact(path string) (export.Artifact, error) {
	// #nosec G304 -- path is built from a directory listing.
	f, err := os.Open(path)
	if err != nil {
		return export.Artifact{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return export.Decode(f)
}

var _ Importer = (*DirectoryImporter)(nil)
