// Package pipeline runs one batch build: list the bucket, download every
// collection, normalize and export it, then minify and announce the artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/bucket"
	"github.com/JakeFAU/iconsync/internal/download"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/metrics"
	"github.com/JakeFAU/iconsync/internal/model"
	"github.com/JakeFAU/iconsync/internal/normalize"
	"github.com/JakeFAU/iconsync/internal/publisher"
)

// ErrMissingCredentials aborts a run before any listing.
var ErrMissingCredentials = errors.New("storage credentials are not configured")

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewRunID() (string, error)
}

// Hasher digests artifact files.
type Hasher interface {
	HashFile(path string) (string, error)
}

// Options carries the run-level settings.
type Options struct {
	// StagingRoot holds per-collection staging copies and is removed after
	// the run.
	StagingRoot string
	// OutputRoot receives the artifacts and the svg/ processing tree.
	OutputRoot string
	// HasCredentials is false when the storage backend cannot authenticate.
	HasCredentials bool
	// PruneSVG removes the processing tree after the run.
	PruneSVG bool
}

// Pipeline wires the batch stages together.
type Pipeline struct {
	opts       Options
	lister     *bucket.Lister
	downloader *download.Downloader
	normalizer *normalize.Normalizer
	exporter   *export.Exporter
	publisher  publisher.Publisher
	hasher     Hasher
	ids        IDGenerator
	out        io.Writer
	logger     *zap.Logger
	now        func() time.Time
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Lister     *bucket.Lister
	Downloader *download.Downloader
	Normalizer *normalize.Normalizer
	Exporter   *export.Exporter
	Publisher  publisher.Publisher
	Hasher     Hasher
	IDs        IDGenerator
	// Out receives the run summary. Defaults to stdout.
	Out    io.Writer
	Logger *zap.Logger
}

// New constructs a Pipeline.
func New(opts Options, deps Deps) *Pipeline {
	if deps.Publisher == nil {
		deps.Publisher = publisher.NoOp{}
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	return &Pipeline{
		opts:       opts,
		lister:     deps.Lister,
		downloader: deps.Downloader,
		normalizer: deps.Normalizer,
		exporter:   deps.Exporter,
		publisher:  deps.Publisher,
		hasher:     deps.Hasher,
		ids:        deps.IDs,
		out:        deps.Out,
		logger:     logging.OrNop(deps.Logger).Named("pipeline"),
		now:        time.Now,
	}
}

// Run executes one build. Only precondition failures are returned; every
// collection-level failure is reported in the summary instead.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if !p.opts.HasCredentials {
		p.logger.Error("missing storage credentials, aborting before listing")
		return Summary{}, ErrMissingCredentials
	}

	runID := ""
	if p.ids != nil {
		id, err := p.ids.NewRunID()
		if err != nil {
			return Summary{}, fmt.Errorf("generate run id: %w", err)
		}
		runID = id
	}
	logger := p.logger.With(zap.String("run_id", runID))
	summary := Summary{RunID: runID, Started: p.now()}

	for _, dir := range []string{p.opts.StagingRoot, p.opts.OutputRoot} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Summary{}, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	names := p.lister.ListCollections(ctx)
	logger.Info("collections listed", zap.Int("count", len(names)))
	collections := make([]model.Collection, len(names))
	for i, name := range names {
		collections[i] = model.NewCollection(name, p.opts.StagingRoot, p.opts.OutputRoot)
	}

	downloads := p.downloadAll(ctx, collections)
	results := p.normalizeAll(ctx, collections, downloads)

	summary.Results = make([]model.ProcessResult, len(results))
	for i, r := range results {
		summary.Results[i] = r.ProcessResult
		metrics.ObserveCollection(!r.Failed())
	}
	if err := summary.Print(p.out); err != nil {
		logger.Warn("failed to print summary", zap.Error(err))
	}

	if err := os.RemoveAll(p.opts.StagingRoot); err != nil {
		logger.Warn("failed to remove staging root", zap.String("path", p.opts.StagingRoot), zap.Error(err))
	}
	if p.opts.PruneSVG {
		svgRoot := filepath.Join(p.opts.OutputRoot, "svg")
		if err := os.RemoveAll(svgRoot); err != nil {
			logger.Warn("failed to remove processing tree", zap.String("path", svgRoot), zap.Error(err))
		}
	}

	if _, err := p.exporter.MinifyAll(ctx); err != nil {
		logger.Error("minify pass failed", zap.Error(err))
	}

	p.announce(ctx, logger, runID, results)
	summary.Finished = p.now()
	logger.Info("run complete", zap.Duration("elapsed", summary.Finished.Sub(summary.Started)))
	return summary, nil
}

// downloadAll lists and downloads every collection concurrently.
func (p *Pipeline) downloadAll(ctx context.Context, collections []model.Collection) []model.ProcessResult {
	results := make([]model.ProcessResult, len(collections))
	var wg sync.WaitGroup
	for i, c := range collections {
		wg.Add(1)
		go func() {
			defer wg.Done()
			objects := p.lister.ListObjects(ctx, c.Prefix())
			results[i] = p.downloader.Download(ctx, c, objects)
		}()
	}
	wg.Wait()
	return results
}

// normalizeAll normalizes every collection concurrently. A collection whose
// download failed keeps that failure and is not normalized.
func (p *Pipeline) normalizeAll(ctx context.Context, collections []model.Collection, downloads []model.ProcessResult) []normalize.Result {
	results := make([]normalize.Result, len(collections))
	var wg sync.WaitGroup
	for i, c := range collections {
		if downloads[i].Failed() {
			results[i] = normalize.Result{ProcessResult: downloads[i]}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.normalizer.Normalize(ctx, c)
		}()
	}
	wg.Wait()
	return results
}

// announce publishes one notification per written artifact. Failures are
// logged and do not affect the run.
func (p *Pipeline) announce(ctx context.Context, logger *zap.Logger, runID string, results []normalize.Result) {
	for _, r := range results {
		if r.Failed() || r.ArtifactPath == "" {
			continue
		}
		n := publisher.Notification{
			RunID:      runID,
			Collection: r.Collection,
			IconCount:  r.IconCount,
			Path:       r.ArtifactPath,
			Timestamp:  p.now().UTC(),
		}
		if p.hasher != nil {
			sum, err := p.hasher.HashFile(r.ArtifactPath)
			if err != nil {
				logger.Warn("failed to hash artifact", zap.String("path", r.ArtifactPath), zap.Error(err))
			}
			n.SHA256 = sum
		}
		id, err := p.publisher.Publish(ctx, n)
		if err != nil {
			logger.Warn("failed to publish notification", zap.String("collection", r.Collection), zap.Error(err))
			continue
		}
		if id != "" {
			logger.Debug("notification published", zap.String("collection", r.Collection), zap.String("message_id", id))
		}
	}
}
