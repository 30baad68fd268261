// Package memory implements an in-memory bucket for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/JakeFAU/iconsync/internal/storage"
)

const defaultPageSize = 1000

// Bucket stores objects in-memory and serves them through storage.Provider.
type Bucket struct {
	mu       sync.RWMutex
	data     map[string][]byte
	pageSize int
	failures map[string]int
}

// NewBucket creates an empty bucket. pageSize <= 0 uses 1000.
func NewBucket(pageSize int) *Bucket {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Bucket{
		data:     make(map[string][]byte),
		pageSize: pageSize,
		failures: make(map[string]int),
	}
}

// Put stores a copy of data under key.
func (b *Bucket) Put(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), data...)
}

// FailOpen makes the next n Open calls for key fail.
func (b *Bucket) FailOpen(key string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key] = n
}

// Seed loads every regular file under dir, keyed by its slash-separated path
// relative to dir.
func (b *Bucket) Seed(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		// #nosec G304 -- path comes from walking the seed directory.
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file %s: %w", path, err)
		}
		b.Put(filepath.ToSlash(rel), data)
		return nil
	})
}

// Len returns the number of stored objects.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// List returns one page of keys in lexical order. The continuation token is
// the offset of the next entry.
func (b *Bucket) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := b.entries(opts.Prefix, opts.Delimiter)

	start := 0
	if opts.ContinuationToken != "" {
		n, err := strconv.Atoi(opts.ContinuationToken)
		if err != nil || n < 0 || n > len(entries) {
			return nil, fmt.Errorf("invalid continuation token %q", opts.ContinuationToken)
		}
		start = n
	}
	size := opts.MaxKeys
	if size <= 0 {
		size = b.pageSize
	}
	end := min(start+size, len(entries))

	res := &storage.ListResult{}
	b.mu.RLock()
	for _, e := range entries[start:end] {
		if e.prefix {
			res.CommonPrefixes = append(res.CommonPrefixes, e.key)
			continue
		}
		res.Objects = append(res.Objects, storage.ObjectSummary{Key: e.key, Size: int64(len(b.data[e.key]))})
	}
	b.mu.RUnlock()
	if end < len(entries) {
		res.ContinuationToken = strconv.Itoa(end)
	}
	return res, nil
}

// Open returns a reader over a copy of the object.
func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.failures[key]; n > 0 {
		b.failures[key] = n - 1
		return nil, fmt.Errorf("open %s: injected failure", key)
	}
	data, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

type entry struct {
	key    string
	prefix bool
}

// entries lists matching keys, folding everything past the delimiter into a
// single common prefix entry.
func (b *Bucket) entries(prefix, delimiter string) []entry {
	b.mu.RLock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	b.mu.RUnlock()
	sort.Strings(keys)

	out := make([]entry, 0, len(keys))
	seen := make(map[string]struct{})
	for _, k := range keys {
		if delimiter != "" {
			rest := strings.TrimPrefix(k, prefix)
			if i := strings.Index(rest, delimiter); i >= 0 {
				common := prefix + rest[:i+len(delimiter)]
				if _, ok := seen[common]; !ok {
					seen[common] = struct{}{}
					out = append(out, entry{key: common, prefix: true})
				}
				continue
			}
		}
		out = append(out, entry{key: k})
	}
	return out
}

var _ storage.Provider = (*Bucket)(nil)
