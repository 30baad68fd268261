package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// List is the mock implementation of the List method.
func (m *MockProvider) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	args := m.Called(ctx, opts)
	res, _ := args.Get(0).(*ListResult)
	return res, args.Error(1) //nolint:wrapcheck
}

// Open is the mock implementation of the Open method.
func (m *MockProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1) //nolint:wrapcheck
}
