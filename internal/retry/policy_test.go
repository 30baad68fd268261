package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(3, time.Millisecond, 10*time.Millisecond)
	boom := errors.New("boom")

	assert.False(t, p.ShouldRetry(nil, 1))
	assert.True(t, p.ShouldRetry(boom, 1))
	assert.True(t, p.ShouldRetry(boom, 2))
	assert.False(t, p.ShouldRetry(boom, 3))
	assert.False(t, p.ShouldRetry(context.Canceled, 1))
	assert.True(t, p.ShouldRetry(context.DeadlineExceeded, 1))
	assert.False(t, p.ShouldRetry(context.DeadlineExceeded, 3))
}

func TestExponentialPolicyBackoffIsBounded(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(3, 100*time.Millisecond, 400*time.Millisecond)
	for attempt := 1; attempt <= 6; attempt++ {
		d := p.Backoff(attempt)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 400*time.Millisecond)
	}
}

func TestNewExponentialPolicyDefaults(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(0, 0, 0)
	assert.Equal(t, 3, p.MaxAttempts())
	assert.Equal(t, 250*time.Millisecond, p.baseDelay)
	assert.Equal(t, 5*time.Second, p.maxDelay)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(3, time.Millisecond, 2*time.Millisecond)
	var attempts []int
	err := Do(context.Background(), p, func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		return errors.New("unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoReturnsOnSuccess(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(3, time.Millisecond, 2*time.Millisecond)
	calls := 0
	err := Do(context.Background(), p, func(_ context.Context, _ int) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewExponentialPolicy(3, time.Hour, time.Hour)
	err := Do(ctx, p, func(_ context.Context, _ int) error {
		cancel()
		return errors.New("flaky")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoRetriesAttemptTimeouts(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(3, time.Millisecond, 2*time.Millisecond)
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, _ int) error {
		calls++
		if calls == 1 {
			callCtx, cancel := context.WithTimeout(ctx, time.Millisecond)
			defer cancel()
			<-callCtx.Done()
			return callCtx.Err()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoStopsWhenParentDeadlinePasses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	p := NewExponentialPolicy(3, time.Millisecond, 2*time.Millisecond)
	calls := 0
	err := Do(ctx, p, func(ctx context.Context, _ int) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
