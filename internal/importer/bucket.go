package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/bucket"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/storage"
)

// KindBucket identifies BucketImporter state.
const KindBucket = "bucket"

// BucketImporter loads *.json artifacts stored under a bucket prefix.
type BucketImporter struct {
	artifactSets
	provider    storage.Provider
	prefix      string
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewBucketImporter creates an importer reading artifacts under prefix.
func NewBucketImporter(provider storage.Provider, prefix string, callTimeout time.Duration, logger *zap.Logger) *BucketImporter {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &BucketImporter{
		provider:    provider,
		prefix:      prefix,
		callTimeout: callTimeout,
		logger:      logging.OrNop(logger).Named("importer.bucket"),
	}
}

// Kind returns KindBucket.
func (b *BucketImporter) Kind() string { return KindBucket }

// Init lists the prefix and fetches every artifact. Artifacts that cannot be
// fetched or decoded are logged and skipped.
func (b *BucketImporter) Init(ctx context.Context) error {
	if b.provider == nil {
		return fmt.Errorf("bucket importer %q has no storage provider", b.prefix)
	}
	lister := bucket.NewLister(b.provider, b.logger, bucket.WithCallTimeout(b.callTimeout))
	var artifacts []export.Artifact
	for _, obj := range lister.ListObjects(ctx, b.prefix) {
		if !strings.HasSuffix(strings.ToLower(obj.Key), ".json") {
			continue
		}
		a, err := b.fetch(ctx, obj.Key)
		if err != nil {
			b.logger.Warn("skipping artifact", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, a)
	}
	if err := b.load(artifacts); err != nil {
		return err
	}
	b.logger.Info("artifacts loaded", zap.String("prefix", b.prefix), zap.Int("sets", len(artifacts)))
	return nil
}

func (b *BucketImporter) fetch(ctx context.Context, key string) (export.Artifact, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()
	rc, err := b.provider.Open(callCtx, key)
	if err != nil {
		return export.Artifact{}, err
	}
	defer func() { _ = rc.Close() }()
	return export.Decode(rc)
}

// Snapshot persists the fetched artifacts.
func (b *BucketImporter) Snapshot() (State, error) {
	return b.snapshot(KindBucket, b.prefix)
}

// RestoreBucket rebuilds a BucketImporter from state. provider is attached
// for later refreshes but is not called.
func RestoreBucket(provider storage.Provider, callTimeout time.Duration, logger *zap.Logger) Restorer {
	return func(state State) (Importer, error) {
		s, err := decodeArtifactState(state)
		if err != nil {
			return nil, err
		}
		b := NewBucketImporter(provider, s.Source, callTimeout, logger)
		if err := b.load(s.Artifacts); err != nil {
			return nil, err
		}
		return b, nil
	}
}

var _ Importer = (*BucketImporter)(nil)
