// Package initializer prepares the serving process's icon sets, either from
// the persisted init cache (warm) or by running every importer (cold).
package initializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/cache"
	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/importer"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/metrics"
)

// Mode is the path Init took.
type Mode string

// Init modes.
const (
	ModeCold Mode = "cold"
	ModeWarm Mode = "warm"
)

// StorageCache is the serving layer's blob cache.
type StorageCache interface {
	Purge(ctx context.Context) error
	Put(ctx context.Context, prefix string, data []byte, iconCount int) error
}

// Options controls one Init call.
type Options struct {
	// Cleanup purges the storage cache unless explicitly false. Explicitly
	// true also deletes the init cache and forces a cold start.
	Cleanup *bool
	// Importers replaces the configured sources on a cold start.
	Importers []importer.Importer
}

// Bool returns a pointer to v, for Options.Cleanup.
func Bool(v bool) *bool {
	return &v
}

// Initializer chooses between the warm and cold paths.
type Initializer struct {
	cache    *cache.File
	store    StorageCache
	registry *importer.Registry
	sources  func() []importer.Importer
	builtins func() []importer.Importer
	index    *Index
	info     config.ExportConfig
	logger   *zap.Logger
	now      func() time.Time
}

// Config bundles the Initializer dependencies.
type Config struct {
	Cache    *cache.File
	Store    StorageCache
	Registry *importer.Registry
	// Sources builds the configured importers for a cold start.
	Sources func() []importer.Importer
	// Builtins builds importers that run on every start, before the
	// restored or configured ones. They are expected to decline
	// persistence.
	Builtins func() []importer.Importer
	Index    *Index
	// Info fills the info block of artifacts mirrored into Store.
	Info   config.ExportConfig
	Logger *zap.Logger
}

// New constructs an Initializer.
func New(cfg Config) *Initializer {
	if cfg.Index == nil {
		cfg.Index = NewIndex()
	}
	if cfg.Registry == nil {
		cfg.Registry = importer.NewRegistry()
	}
	return &Initializer{
		cache:    cfg.Cache,
		store:    cfg.Store,
		registry: cfg.Registry,
		sources:  cfg.Sources,
		builtins: cfg.Builtins,
		index:    cfg.Index,
		info:     cfg.Info,
		logger:   logging.OrNop(cfg.Logger).Named("init"),
		now:      time.Now,
	}
}

// Index returns the index Init populates.
func (i *Initializer) Index() *Index {
	return i.index
}

// Init purges the storage cache, then starts warm from the init cache when
// possible or cold otherwise. A cache that cannot be loaded or restored is
// treated as absent. An importer failing Init on the cold path, or a builtin
// failing on either path, is fatal.
func (i *Initializer) Init(ctx context.Context, opts Options) (Mode, error) {
	if opts.Cleanup == nil || *opts.Cleanup {
		if i.store != nil {
			if err := i.store.Purge(ctx); err != nil {
				return "", fmt.Errorf("purge storage cache: %w", err)
			}
		}
	}
	forceRefresh := opts.Cleanup != nil && *opts.Cleanup
	if forceRefresh && i.cache != nil {
		if err := i.cache.Remove(); err != nil {
			return "", err
		}
	}

	if !forceRefresh && i.cache != nil && i.cache.Exists() {
		importers, err := i.restore()
		if err == nil {
			builtins, err := i.initBuiltins(ctx)
			if err != nil {
				return "", err
			}
			importers = append(builtins, importers...)
			i.activate(ctx, importers)
			i.logger.Info("warm start", zap.Int("importers", len(importers)), zap.String("cache", i.cache.Path()))
			metrics.ObserveInit(string(ModeWarm))
			return ModeWarm, nil
		}
		i.logger.Warn("init cache unusable, starting cold", zap.String("cache", i.cache.Path()), zap.Error(err))
	}

	if err := i.cold(ctx, opts.Importers); err != nil {
		return "", err
	}
	metrics.ObserveInit(string(ModeCold))
	return ModeCold, nil
}

func (i *Initializer) restore() ([]importer.Importer, error) {
	snap, err := i.cache.Load()
	if err != nil {
		return nil, err
	}
	importers := make([]importer.Importer, 0, len(snap.Importers))
	for _, state := range snap.Importers {
		imp, err := i.registry.Restore(state)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	return importers, nil
}

func (i *Initializer) cold(ctx context.Context, importers []importer.Importer) error {
	if importers == nil && i.sources != nil {
		importers = i.sources()
	}
	if err := initAll(ctx, importers); err != nil {
		return err
	}
	builtins, err := i.initBuiltins(ctx)
	if err != nil {
		return err
	}
	importers = append(builtins, importers...)
	i.activate(ctx, importers)
	i.logger.Info("cold start", zap.Int("importers", len(importers)))

	if i.cache == nil {
		return nil
	}
	states := make([]importer.State, 0, len(importers))
	for _, imp := range importers {
		state, err := imp.Snapshot()
		if errors.Is(err, importer.ErrNotPersistable) {
			continue
		}
		if err != nil {
			i.logger.Warn("skipping importer state", zap.String("importer", imp.Kind()), zap.Error(err))
			continue
		}
		states = append(states, state)
	}
	if err := i.cache.Save(ctx, cache.Snapshot{Importers: states}); err != nil {
		i.logger.Error("failed to save init cache", zap.String("cache", i.cache.Path()), zap.Error(err))
		return nil
	}
	i.logger.Info("init cache saved", zap.String("cache", i.cache.Path()), zap.Int("states", len(states)))
	return nil
}

func (i *Initializer) initBuiltins(ctx context.Context) ([]importer.Importer, error) {
	if i.builtins == nil {
		return nil, nil
	}
	importers := i.builtins()
	if err := initAll(ctx, importers); err != nil {
		return nil, fmt.Errorf("builtin %w", err)
	}
	return importers, nil
}

func initAll(ctx context.Context, importers []importer.Importer) error {
	for n, imp := range importers {
		if err := imp.Init(ctx); err != nil {
			return fmt.Errorf("init importer %d (%s): %w", n, imp.Kind(), err)
		}
	}
	return nil
}

// activate rebuilds the index and mirrors every set into the storage cache.
func (i *Initializer) activate(ctx context.Context, importers []importer.Importer) {
	i.index.Rebuild(importers, i.logger)
	if i.store == nil {
		return
	}
	now := i.now()
	for _, prefix := range i.index.Prefixes() {
		set, _ := i.index.Get(prefix)
		artifact := export.Build(set, export.NewInfo(i.info, prefix, set.Count()), now)
		data, err := json.Marshal(artifact)
		if err != nil {
			i.logger.Warn("failed to encode icon set", zap.String("prefix", prefix), zap.Error(err))
			continue
		}
		if err := i.store.Put(ctx, prefix, data, set.Count()); err != nil {
			i.logger.Warn("failed to store icon set", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
