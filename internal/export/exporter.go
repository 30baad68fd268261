package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/icons"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/storage/local"
)

// Exporter builds artifacts and writes them to the output directory.
type Exporter struct {
	cfg    config.ExportConfig
	store  *local.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock overrides the time source for lastModified.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New constructs an Exporter writing into store.
func New(cfg config.ExportConfig, store *local.BlobStore, logger *zap.Logger, opts ...Option) *Exporter {
	e := &Exporter{
		cfg:    cfg,
		store:  store,
		logger: logging.OrNop(logger).Named("export"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.store.BaseDir()
}

// Export converts set into an artifact carrying the configured info block.
func (e *Exporter) Export(set *icons.Set) Artifact {
	return Build(set, NewInfo(e.cfg, set.Prefix, set.Count()), e.now())
}

// NewInfo fills the info block for a collection from cfg.
func NewInfo(cfg config.ExportConfig, name string, total int) Info {
	return Info{
		Name:    name,
		Total:   total,
		Author:  Author{Name: cfg.AuthorName, URL: cfg.AuthorURL},
		License: License{Title: cfg.LicenseTitle, SPDX: cfg.LicenseSPDX, URL: cfg.LicenseURL},
	}
}

// Build converts set into an artifact. The most common icon size becomes the
// artifact default and matching icons omit it.
func Build(set *icons.Set, info Info, modified time.Time) Artifact {
	a := Artifact{
		Prefix:       set.Prefix,
		LastModified: modified.Unix(),
		Icons:        make(map[string]IconData),
		Info:         info,
	}

	type size struct{ w, h float64 }
	counts := make(map[size]int)
	var common size
	set.ForEach(func(name string, kind icons.EntryKind) {
		entry, _ := set.Get(name)
		if kind == icons.KindAlias {
			if a.Aliases == nil {
				a.Aliases = make(map[string]AliasData)
			}
			a.Aliases[name] = AliasData{Parent: entry.Parent}
			return
		}
		s := size{entry.Icon.Width, entry.Icon.Height}
		counts[s]++
		if counts[s] > counts[common] {
			common = s
		}
	})
	a.Width, a.Height = common.w, common.h

	set.ForEach(func(name string, kind icons.EntryKind) {
		if kind != icons.KindIcon {
			return
		}
		entry, _ := set.Get(name)
		d := IconData{Body: entry.Icon.Body, Left: entry.Icon.Left, Top: entry.Icon.Top}
		if entry.Icon.Width != a.Width || entry.Icon.Height != a.Height {
			d.Width, d.Height = entry.Icon.Width, entry.Icon.Height
		}
		a.Icons[name] = d
	})
	return a
}

// WriteArtifact writes a pretty-printed artifact to <dir>/<name>.json and
// returns the path.
func (e *Exporter) WriteArtifact(ctx context.Context, a Artifact, name string) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact %s: %w", name, err)
	}
	data = append(data, '\n')
	path, err := e.store.PutObject(ctx, name+".json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	e.logger.Info("artifact written", zap.String("collection", name), zap.String("path", path))
	return path, nil
}

// MinifyAll rewrites every *.json file in the output directory without
// whitespace. Files that are not valid JSON are logged and left alone. It
// returns the number of files rewritten.
func (e *Exporter) MinifyAll(ctx context.Context) (int, error) {
	return MinifyDir(ctx, e.Dir(), e.logger)
}

// MinifyDir is MinifyAll for an arbitrary directory.
func MinifyDir(ctx context.Context, dir string, logger *zap.Logger) (int, error) {
	logger = logging.OrNop(logger)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read output dir: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// #nosec G304 -- path is built from a directory listing.
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable artifact", zap.String("path", path), zap.Error(err))
			continue
		}
		if !json.Valid(raw) {
			logger.Warn("skipping invalid artifact", zap.String("path", path))
			continue
		}
		if _, err := local.WriteFile(ctx, path, bytes.NewReader(pretty.Ugly(raw))); err != nil {
			return n, fmt.Errorf("minify %s: %w", path, err)
		}
		n++
	}
	logger.Info("artifacts minified", zap.String("dir", dir), zap.Int("count", n))
	return n, nil
}
