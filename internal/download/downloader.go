// Package download fetches collection objects into the local staging and
// processing directories.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/metrics"
	"github.com/JakeFAU/iconsync/internal/model"
	"github.com/JakeFAU/iconsync/internal/retry"
	"github.com/JakeFAU/iconsync/internal/storage"
	"github.com/JakeFAU/iconsync/internal/storage/local"
)

// Config tunes the downloader.
type Config struct {
	// Concurrency is the in-flight cap within one collection.
	Concurrency int
	// Suffix selects the object keys to fetch.
	Suffix string
	// CallTimeout bounds a single attempt.
	CallTimeout time.Duration
}

// Downloader fetches objects with bounded concurrency and per-object retry.
type Downloader struct {
	provider storage.Provider
	policy   retry.Policy
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Downloader. Zero config values fall back to 20 in flight,
// ".svg" and a 30s call timeout.
func New(provider storage.Provider, policy retry.Policy, cfg Config, logger *zap.Logger) *Downloader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 20
	}
	if cfg.Suffix == "" {
		cfg.Suffix = ".svg"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if policy == nil {
		policy = retry.NewExponentialPolicy(3, 0, 0)
	}
	return &Downloader{
		provider: provider,
		policy:   policy,
		cfg:      cfg,
		logger:   logging.OrNop(logger).Named("download"),
	}
}

// Download fetches every matching object of the collection into freshly
// cleared staging and processing directories. Objects that fail
// every attempt are logged and skipped; only directory setup failures are
// reported in the result. The icon count is always zero.
func (d *Downloader) Download(ctx context.Context, c model.Collection, objects []model.RemoteObject) model.ProcessResult {
	logger := d.logger.With(zap.String("collection", c.Name))

	// Both trees are rebuilt from the bucket on every run.
	for _, dir := range []string{c.StagingDir, c.ProcessingDir} {
		if err := os.RemoveAll(dir); err != nil {
			return model.FailedResult(c.Name, fmt.Errorf("clear directory %s: %w", dir, err))
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return model.FailedResult(c.Name, fmt.Errorf("create directory %s: %w", dir, err))
		}
	}

	var ok, failed atomic.Int64
	var g errgroup.Group
	inFlight := 0
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, d.cfg.Suffix) {
			continue
		}
		g.Go(func() error {
			if d.fetch(ctx, logger, c, obj) {
				ok.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
		inFlight++
		if inFlight >= d.cfg.Concurrency {
			_ = g.Wait()
			inFlight = 0
		}
	}
	_ = g.Wait()

	logger.Info("collection downloaded",
		zap.Int64("downloaded", ok.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return model.ProcessResult{Collection: c.Name}
}

// fetch runs the attempts for one object and reports success.
func (d *Downloader) fetch(ctx context.Context, logger *zap.Logger, c model.Collection, obj model.RemoteObject) bool {
	staging := filepath.Join(c.StagingDir, obj.FileName)
	processing := filepath.Join(c.ProcessingDir, obj.FileName)

	err := retry.Do(ctx, d.policy, func(ctx context.Context, attempt int) error {
		metrics.ObserveDownloadAttempt()
		if err := d.attempt(ctx, obj.Key, staging, processing); err != nil {
			logger.Warn("download attempt failed",
				zap.String("key", obj.Key),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", d.policy.MaxAttempts()),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	metrics.ObserveDownload(c.Name, err == nil)
	if err != nil {
		logger.Error("download failed",
			zap.String("key", obj.Key),
			zap.Error(err),
		)
		return false
	}
	return true
}

// attempt streams the object into the staging path then copies it to the
// processing path.
func (d *Downloader) attempt(ctx context.Context, key, staging, processing string) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	body, err := d.provider.Open(callCtx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer func() { _ = body.Close() }()

	if _, err := local.WriteFile(callCtx, staging, body); err != nil {
		return err
	}
	if err := local.CopyFile(callCtx, staging, processing); err != nil {
		return err
	}
	return nil
}
