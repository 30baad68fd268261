package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/iconsync/internal/logging"
)

// GCSClientFactory creates storage clients. It exists so tests can hand in a
// client pointed at a fake server.
type GCSClientFactory interface {
	NewClient(ctx context.Context) (*storage.Client, error)
}

// DefaultGCSClientFactory builds clients from application default credentials.
type DefaultGCSClientFactory struct{}

// NewClient creates a client using ADC.
func (DefaultGCSClientFactory) NewClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("new gcs client: %w", err)
	}
	return client, nil
}

// GCSProvider implements Provider for Google Cloud Storage.
type GCSProvider struct {
	Client     *storage.Client
	BucketName string
	PageSize   int
}

// NewGCSProvider initializes a GCS client and verifies the bucket is reachable.
// Authentication is handled automatically via Google's "Application Default Credentials" (ADC).
func NewGCSProvider(ctx context.Context, bucketName string, factory GCSClientFactory) (*GCSProvider, error) {
	if factory == nil {
		factory = DefaultGCSClientFactory{}
	}
	client, err := factory.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Fail fast on startup if the bucket is missing or we lack permissions.
	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logging.L.Warn("Failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to get GCS bucket '%s' attributes: %w", bucketName, err)
	}

	return &GCSProvider{
		Client:     client,
		BucketName: bucketName,
	}, nil
}

// List returns one page of objects. GCS page tokens play the role of
// continuation tokens; prefixes produced by the delimiter come back as
// synthetic entries with only Prefix set.
func (g *GCSProvider) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := &storage.Query{Prefix: opts.Prefix, Delimiter: opts.Delimiter}
	it := g.Client.Bucket(g.BucketName).Objects(ctx, query)

	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = g.PageSize
	}
	if pageSize <= 0 {
		pageSize = 1000
	}

	var attrs []*storage.ObjectAttrs
	next, err := iterator.NewPager(it, pageSize, opts.ContinuationToken).NextPage(&attrs)
	if err != nil {
		return nil, fmt.Errorf("list gcs objects under %q: %w", opts.Prefix, err)
	}

	res := &ListResult{ContinuationToken: next}
	for _, a := range attrs {
		if a.Prefix != "" {
			res.CommonPrefixes = append(res.CommonPrefixes, a.Prefix)
			continue
		}
		res.Objects = append(res.Objects, ObjectSummary{Key: a.Name, Size: a.Size, ETag: a.Etag})
	}
	return res, nil
}

// Open returns a reader for the object body.
func (g *GCSProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.Client.Bucket(g.BucketName).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("open gcs object %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("open gcs object %s: %w", key, err)
	}
	return r, nil
}

// Close releases the underlying client.
func (g *GCSProvider) Close() error {
	if err := g.Client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
