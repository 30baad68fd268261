// Package normalize turns a downloaded collection into a validated,
// single-color, optimized icon set and exports it.
package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/icons"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/metrics"
	"github.com/JakeFAU/iconsync/internal/model"
	"github.com/JakeFAU/iconsync/internal/svg"
)

// Result is the outcome of normalizing one collection.
type Result struct {
	model.ProcessResult
	// Set is nil when the collection failed.
	Set *icons.Set
	// ArtifactPath is where the export was written.
	ArtifactPath string
}

// Normalizer runs the per-icon pipeline and exports the result.
type Normalizer struct {
	exporter  *export.Exporter
	optimizer *svg.Optimizer
	recolor   svg.ColorCallback
	logger    *zap.Logger
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithOptimizer replaces the default size pass.
func WithOptimizer(o *svg.Optimizer) Option {
	return func(n *Normalizer) { n.optimizer = o }
}

// WithColorCallback replaces the monotone color policy.
func WithColorCallback(cb svg.ColorCallback) Option {
	return func(n *Normalizer) { n.recolor = cb }
}

// New constructs a Normalizer.
func New(exporter *export.Exporter, logger *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		exporter:  exporter,
		optimizer: svg.NewOptimizer(0),
		recolor:   svg.Monotone,
		logger:    logging.OrNop(logger).Named("normalize"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize imports the collection's processing directory, normalizes every
// icon and writes the artifact. Icons that fail any step are dropped;
// import or export failures fail the collection with a zero count.
func (n *Normalizer) Normalize(ctx context.Context, c model.Collection) Result {
	logger := n.logger.With(zap.String("collection", c.Name))

	set, err := icons.ImportDirectory(c.ProcessingDir, c.Name, logger)
	if err != nil {
		logger.Error("import failed", zap.Error(err))
		return Result{ProcessResult: model.FailedResult(c.Name, err)}
	}

	set.ForEach(func(name string, kind icons.EntryKind) {
		if kind != icons.KindIcon {
			return
		}
		doc := set.ToSVG(name)
		if doc == nil {
			logger.Warn("dropping icon that does not render", zap.String("icon", name))
			set.Remove(name)
			metrics.ObserveIcon(c.Name, false)
			return
		}
		if err := n.process(doc); err != nil {
			logger.Warn("dropping icon", zap.String("icon", name), zap.Error(err))
			set.Remove(name)
			metrics.ObserveIcon(c.Name, false)
			return
		}
		if err := set.FromSVG(name, doc); err != nil {
			logger.Warn("dropping icon", zap.String("icon", name), zap.Error(err))
			set.Remove(name)
			metrics.ObserveIcon(c.Name, false)
			return
		}
		metrics.ObserveIcon(c.Name, true)
	})

	artifact := n.exporter.Export(set)
	path, err := n.exporter.WriteArtifact(ctx, artifact, c.Name)
	if err != nil {
		logger.Error("export failed", zap.Error(err))
		return Result{ProcessResult: model.FailedResult(c.Name, err)}
	}

	count := set.Count()
	logger.Info("collection normalized", zap.Int("icons", count), zap.String("path", path))
	return Result{
		ProcessResult: model.ProcessResult{Collection: c.Name, IconCount: count},
		Set:           set,
		ArtifactPath:  path,
	}
}

func (n *Normalizer) process(doc *svg.Document) error {
	if err := doc.Cleanup(); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	doc.ParseColors(n.recolor)
	if err := n.optimizer.Optimize(doc); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}
