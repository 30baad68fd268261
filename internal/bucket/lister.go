// Package bucket discovers collections and their objects in the remote
// bucket.
package bucket

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/model"
	"github.com/JakeFAU/iconsync/internal/storage"
)

const delimiter = "/"

// Lister wraps a storage.Provider with the listing rules of the pipeline.
// Listing failures are logged and reported as empty results.
type Lister struct {
	provider    storage.Provider
	logger      *zap.Logger
	callTimeout time.Duration
	pageSize    int
}

// Option customizes a Lister.
type Option func(*Lister)

// WithCallTimeout bounds each List call.
func WithCallTimeout(d time.Duration) Option {
	return func(l *Lister) { l.callTimeout = d }
}

// WithPageSize sets MaxKeys on each List call.
func WithPageSize(n int) Option {
	return func(l *Lister) { l.pageSize = n }
}

// NewLister constructs a Lister.
func NewLister(provider storage.Provider, logger *zap.Logger, opts ...Option) *Lister {
	l := &Lister{
		provider:    provider,
		logger:      logging.OrNop(logger).Named("bucket"),
		callTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListCollections returns the names of the top-level prefixes, without the
// trailing separator. Empty names are dropped.
func (l *Lister) ListCollections(ctx context.Context) []string {
	var names []string
	token := ""
	for {
		res, err := l.list(ctx, storage.ListOptions{Delimiter: delimiter, ContinuationToken: token})
		if err != nil {
			l.logger.Error("failed to list collections", zap.Error(err))
			return nil
		}
		for _, p := range res.CommonPrefixes {
			name := strings.TrimSuffix(p, delimiter)
			if name == "" {
				continue
			}
			names = append(names, name)
		}
		if res.ContinuationToken == "" {
			return names
		}
		token = res.ContinuationToken
	}
}

// ListObjects follows continuation tokens until the listing under prefix is
// exhausted. Pages are fetched sequentially and all objects are returned
// together.
func (l *Lister) ListObjects(ctx context.Context, prefix string) []model.RemoteObject {
	var objects []model.RemoteObject
	token := ""
	for page := 1; ; page++ {
		res, err := l.list(ctx, storage.ListOptions{Prefix: prefix, ContinuationToken: token})
		if err != nil {
			l.logger.Error("failed to list objects",
				zap.String("prefix", prefix),
				zap.Int("page", page),
				zap.Error(err),
			)
			return nil
		}
		for _, obj := range res.Objects {
			if obj.Key == "" || strings.HasSuffix(obj.Key, delimiter) {
				continue
			}
			objects = append(objects, model.NewRemoteObject(obj.Key, obj.Size))
		}
		if res.ContinuationToken == "" {
			l.logger.Debug("listed objects",
				zap.String("prefix", prefix),
				zap.Int("pages", page),
				zap.Int("objects", len(objects)),
			)
			return objects
		}
		token = res.ContinuationToken
	}
}

func (l *Lister) list(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	if l.pageSize > 0 {
		opts.MaxKeys = l.pageSize
	}
	callCtx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()
	return l.provider.List(callCtx, opts)
}
