// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/api"
	"github.com/JakeFAU/iconsync/internal/bucket"
	"github.com/JakeFAU/iconsync/internal/cache"
	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/download"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/hash/sha256"
	"github.com/JakeFAU/iconsync/internal/iconstore"
	"github.com/JakeFAU/iconsync/internal/id/uuid"
	"github.com/JakeFAU/iconsync/internal/importer"
	"github.com/JakeFAU/iconsync/internal/initializer"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/metrics"
	"github.com/JakeFAU/iconsync/internal/normalize"
	"github.com/JakeFAU/iconsync/internal/pipeline"
	"github.com/JakeFAU/iconsync/internal/publisher"
	pubmemory "github.com/JakeFAU/iconsync/internal/publisher/memory"
	"github.com/JakeFAU/iconsync/internal/publisher/pubsub"
	"github.com/JakeFAU/iconsync/internal/retry"
	"github.com/JakeFAU/iconsync/internal/storage"
	"github.com/JakeFAU/iconsync/internal/storage/local"
	"github.com/JakeFAU/iconsync/internal/storage/memory"
	"github.com/JakeFAU/iconsync/internal/svg"
)

// Options adjusts how the container is built.
type Options struct {
	// DryRun replaces the configured bucket with an in-memory one and keeps
	// artifact notifications in process.
	DryRun bool
	// SeedDir fills the in-memory bucket; each top-level directory becomes a
	// collection.
	SeedDir string
}

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and hands out the pipeline, the
// initializer and the HTTP server built on top of them.
type App struct {
	cfg            config.Config
	logger         *zap.Logger
	storage        storage.Provider
	hasCredentials bool
	dryRun         bool
	closers        []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetStorage exposes the configured object-storage provider.
func (a *App) GetStorage() storage.Provider {
	return a.storage
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// NewApp creates the container for cfg. It fails fast if the storage backend
// cannot be initialized. Missing S3 credentials are not an error here; the
// pipeline reports them before listing.
func NewApp(ctx context.Context, cfg config.Config, opts Options, logger *zap.Logger) (*App, error) {
	l := logging.OrNop(logger)
	l.Info("Initializing application services...")
	metrics.Init()

	a := &App{cfg: cfg, logger: l, hasCredentials: true, dryRun: opts.DryRun}

	provider := cfg.Storage.Provider
	if opts.DryRun {
		provider = config.ProviderMemory
	}
	switch provider {
	case config.ProviderMemory:
		b := memory.NewBucket(cfg.Storage.PageSize)
		if opts.SeedDir != "" {
			if err := b.Seed(opts.SeedDir); err != nil {
				return nil, fmt.Errorf("seed memory bucket: %w", err)
			}
		}
		l.Info("Using in-memory storage provider", zap.String("seed_dir", opts.SeedDir), zap.Int("objects", b.Len()))
		a.storage = b
	case config.ProviderS3:
		if !cfg.Storage.HasCredentials() {
			l.Warn("S3 credentials are not set; storage calls are disabled")
			a.hasCredentials = false
			a.storage = storage.NoOpProvider{}
			break
		}
		s3p, err := storage.NewS3Provider(storage.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UsePathStyle:    cfg.Storage.UsePathStyle,
			PageSize:        cfg.Storage.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		l.Info("Using S3 storage provider", zap.String("bucket", cfg.Storage.Bucket), zap.String("endpoint", cfg.Storage.Endpoint))
		a.storage = s3p
	case config.ProviderGCS:
		gcs, err := storage.NewGCSProvider(ctx, cfg.Storage.Bucket, storage.DefaultGCSClientFactory{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		gcs.PageSize = cfg.Storage.PageSize
		l.Info("Using GCS storage provider", zap.String("bucket", cfg.Storage.Bucket))
		a.storage = gcs
		a.onClose("gcs client", gcs.Close)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}

	l.Info("Application services initialized successfully.")
	return a, nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// PipelineOptions are the per-run switches of the build command.
type PipelineOptions struct {
	PruneSVG bool
}

// NewPipeline wires the batch stages against the configured storage.
func (a *App) NewPipeline(ctx context.Context, opts PipelineOptions) (*pipeline.Pipeline, error) {
	cfg := a.cfg
	out, err := local.New(local.Config{BaseDir: cfg.Paths.OutputDir})
	if err != nil {
		return nil, fmt.Errorf("init output store: %w", err)
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}

	policy := retry.NewExponentialPolicy(cfg.Download.MaxAttempts, cfg.Download.BackoffInitial(), cfg.Download.BackoffMax())
	exporter := export.New(cfg.Export, out, a.logger)
	return pipeline.New(
		pipeline.Options{
			StagingRoot:    cfg.Paths.TempDir,
			OutputRoot:     cfg.Paths.OutputDir,
			HasCredentials: a.hasCredentials,
			PruneSVG:       opts.PruneSVG,
		},
		pipeline.Deps{
			Lister: bucket.NewLister(a.GetStorage(), a.logger,
				bucket.WithCallTimeout(cfg.Storage.CallTimeout()),
				bucket.WithPageSize(cfg.Storage.PageSize),
			),
			Downloader: download.New(a.GetStorage(), policy, download.Config{
				Concurrency: cfg.Download.Concurrency,
				Suffix:      cfg.Download.IconSuffix,
				CallTimeout: cfg.Storage.CallTimeout(),
			}, a.logger),
			Normalizer: normalize.New(exporter, a.logger, normalize.WithOptimizer(svg.NewOptimizer(0))),
			Exporter:   exporter,
			Publisher:  pub,
			Hasher:     sha256.New(),
			IDs:        uuid.New(),
			Logger:     a.logger,
		},
	), nil
}

func (a *App) publisher(ctx context.Context) (publisher.Publisher, error) {
	if a.dryRun {
		a.logger.Info("Dry run: artifact notifications stay in memory")
		return pubmemory.New(a.logger), nil
	}
	if a.cfg.Publish.Topic == "" {
		return publisher.NoOp{}, nil
	}
	if a.cfg.Publish.ProjectID == "" {
		return nil, fmt.Errorf("publish.topic is set but publish.project_id is not")
	}
	a.logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", a.cfg.Publish.Topic))
	pub, closeFn, err := pubsub.Connect(ctx, a.cfg.Publish.ProjectID, a.cfg.Publish.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}
	a.onClose("pubsub client", closeFn)
	return pub, nil
}

// Serving bundles what the serve command needs.
type Serving struct {
	Initializer *initializer.Initializer
	Store       *iconstore.Store
}

// NewServing opens the storage cache and builds the initializer with every
// importer kind registered.
func (a *App) NewServing() (*Serving, error) {
	cfg := a.cfg
	store, err := iconstore.Open(cfg.Server.StorageCacheFile)
	if err != nil {
		return nil, fmt.Errorf("open storage cache: %w", err)
	}
	a.onClose("storage cache", store.Close)

	registry := importer.NewRegistry()
	registry.Register(importer.KindDirectory, importer.RestoreDirectory(a.logger))
	registry.Register(importer.KindBucket, importer.RestoreBucket(a.GetStorage(), cfg.Storage.CallTimeout(), a.logger))

	in := initializer.New(initializer.Config{
		Cache:    cache.New(cfg.Server.CacheFile),
		Store:    store,
		Registry: registry,
		Sources:  a.sources,
		Builtins: a.builtins,
		Info:     cfg.Export,
		Logger:   a.logger,
	})
	return &Serving{Initializer: in, Store: store}, nil
}

// sources builds the configured importers for a cold start.
func (a *App) sources() []importer.Importer {
	out := make([]importer.Importer, 0, len(a.cfg.Server.Sources))
	for _, src := range a.cfg.Server.Sources {
		switch src.Kind {
		case config.SourceDirectory:
			dir := src.Path
			if dir == "" {
				dir = a.cfg.Paths.OutputDir
			}
			out = append(out, importer.NewDirectoryImporter(filepath.Clean(dir), a.logger))
		case config.SourceBucket:
			out = append(out, importer.NewBucketImporter(a.GetStorage(), src.Prefix, a.cfg.Storage.CallTimeout(), a.logger))
		}
	}
	return out
}

// builtins serves the configured static artifact files on every start.
func (a *App) builtins() []importer.Importer {
	if len(a.cfg.Server.StaticFiles) == 0 {
		return nil
	}
	return []importer.Importer{importer.NewStaticFileImporter(a.cfg.Server.StaticFiles...)}
}

// NewServer builds the HTTP API over the serving state.
func (a *App) NewServer(s *Serving) *api.Server {
	return api.NewServer(s.Initializer.Index(), s.Store, a.cfg, a.logger)
}

// Close gracefully shuts down all services in the App container, newest
// first.
func (a *App) Close() {
	a.GetLogger().Info("Shutting down application services...")
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.GetLogger().Warn("Error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil

	// Flushing the logger buffer ensures all logs are written before exit.
	_ = a.GetLogger().Sync()
}
