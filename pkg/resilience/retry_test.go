package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return http.StatusText(int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterServerErrors(t *testing.T) {
	var attempts []int
	err := Retry(context.Background(), fastRetry(3), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return statusErr(http.StatusServiceUnavailable)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRetry_RetriesTransportErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func(context.Context, int) error {
		calls++
		if calls == 1 {
			return dialErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsOnClientError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func(context.Context, int) error {
		calls++
		return statusErr(http.StatusBadRequest)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, statusErr(http.StatusBadRequest), err)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(2), func(context.Context, int) error {
		calls++
		return statusErr(http.StatusTooManyRequests)
	})

	assert.Equal(t, 3, calls)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err), "last error stays reachable through wrapping")
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
}

func TestRetry_CustomPredicate(t *testing.T) {
	errFlaky := errors.New("flaky")
	calls := 0
	cfg := fastRetry(5)
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, errFlaky) }

	err := Retry(context.Background(), cfg, func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := Retry(ctx, cfg, func(context.Context, int) error {
		calls++
		cancel()
		return statusErr(http.StatusBadGateway)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestRetry_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Retry(ctx, fastRetry(3), func(context.Context, int) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_Bounds(t *testing.T) {
	base := 10 * time.Millisecond
	maxDelay := 50 * time.Millisecond

	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := calculateDelay(attempt, base, maxDelay)
			assert.GreaterOrEqual(t, d, time.Millisecond)
			assert.LessOrEqual(t, d, maxDelay)
		}
	}
}
