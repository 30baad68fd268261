// Package storage_test contains unit tests for the storage package.
package storage_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/iconsync/internal/storage"
)

// MockGCSClientFactory returns a canned client or error.
type MockGCSClientFactory struct {
	Client *gcs.Client
	Err    error
}

// NewClient returns the mock client and error.
func (m *MockGCSClientFactory) NewClient(_ context.Context) (*gcs.Client, error) {
	return m.Client, m.Err
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestGCSProvider creates a GCSProvider pointed at a test server.
func newTestGCSProvider(t *testing.T, handler http.Handler) *storage.GCSProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcs.NewClient(
		context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
		gcs.WithJSONReads(),
	)
	require.NoError(t, err)

	return &storage.GCSProvider{Client: client, BucketName: "test-bucket"}
}

func TestGCSProvider_ListGroupsPrefixes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o")
		assert.Equal(t, "/", r.URL.Query().Get("delimiter"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"kind":"storage#objects","prefixes":["brand/","ui/"]}`)
	})

	provider := newTestGCSProvider(t, handler)
	res, err := provider.List(context.Background(), storage.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"brand/", "ui/"}, res.CommonPrefixes)
	assert.Empty(t, res.Objects)
	assert.Empty(t, res.ContinuationToken)
}

func TestGCSProvider_ListReturnsObjectsAndToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brand/", r.URL.Query().Get("prefix"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"kind":"storage#objects","nextPageToken":"page-2","items":[`+
			`{"name":"brand/a.svg","bucket":"test-bucket","size":"12","etag":"e1"},`+
			`{"name":"brand/b.svg","bucket":"test-bucket","size":"7","etag":"e2"}]}`)
	})

	provider := newTestGCSProvider(t, handler)
	res, err := provider.List(context.Background(), storage.ListOptions{Prefix: "brand/", MaxKeys: 2})
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "brand/a.svg", res.Objects[0].Key)
	assert.Equal(t, int64(12), res.Objects[0].Size)
	assert.Equal(t, "page-2", res.ContinuationToken)
}

func TestGCSProvider_OpenReadsBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		fmt.Fprint(w, `<svg/>`)
	})

	provider := newTestGCSProvider(t, handler)
	rc, err := provider.Open(context.Background(), "brand/a.svg")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(body))
}

func TestGCSProvider_ListError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	provider := newTestGCSProvider(t, handler)
	_, err := provider.List(context.Background(), storage.ListOptions{})
	assert.Error(t, err)
}

func TestNewGCSProvider_Success(t *testing.T) {
	bucketName := "test-bucket"

	client, err := gcs.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				assert.Contains(t, r.URL.Path, fmt.Sprintf("/storage/v1/b/%s", bucketName))
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`{}`)),
					Header:     make(http.Header),
					Request:    r,
				}, nil
			}),
		}),
	)
	require.NoError(t, err)

	provider, err := storage.NewGCSProvider(context.Background(), bucketName, &MockGCSClientFactory{Client: client})
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewGCSProvider_ClientError(t *testing.T) {
	factory := &MockGCSClientFactory{Err: fmt.Errorf("failed to create client")}

	_, err := storage.NewGCSProvider(context.Background(), "test-bucket", factory)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create GCS client")
}

func TestNewGCSProvider_BucketAttrsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client, err := gcs.NewClient(
		ctx,
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader(``)),
					Header:     make(http.Header),
					Request:    r,
				}, nil
			}),
		}),
	)
	require.NoError(t, err)

	_, err = storage.NewGCSProvider(ctx, "test-bucket", &MockGCSClientFactory{Client: client})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get GCS bucket")
}
