// Package storage defines the object-storage capability consumed by the sync
// pipeline. This abstraction keeps the core independent of a specific backend
// (S3-compatible stores, Google Cloud Storage, or an in-memory bucket).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Provider lists and reads objects in one bucket.
//
// Implementations must follow the usual object-store semantics: List returns
// one page and a continuation token that is empty once the listing is
// exhausted; when Delimiter is set, keys sharing the next path segment are
// grouped into CommonPrefixes instead of being returned as objects.
type Provider interface {
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ListOptions configures one List call.
type ListOptions struct {
	Prefix            string
	Delimiter         string
	ContinuationToken string
	// MaxKeys limits the page size. Zero uses the backend default.
	MaxKeys int
}

// ListResult is one page of a listing.
type ListResult struct {
	CommonPrefixes    []string
	Objects           []ObjectSummary
	ContinuationToken string
}

// ObjectSummary holds the metadata returned by List.
type ObjectSummary struct {
	Key  string
	Size int64
	ETag string
}

// NoOpProvider is an empty bucket. It is useful for wiring checks where no
// remote access is wanted.
type NoOpProvider struct{}

// List always returns an empty page.
func (NoOpProvider) List(_ context.Context, _ ListOptions) (*ListResult, error) {
	return &ListResult{}, nil
}

// Open always reports ErrNotFound.
func (NoOpProvider) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, ErrNotFound
}
