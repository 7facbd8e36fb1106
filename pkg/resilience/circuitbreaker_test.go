package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(clock *fakeClock, threshold int, transitions *[]string) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         10 * time.Second,
		Clock:            clock.Now,
		OnStateChange: func(from, to CircuitState) {
			if transitions != nil {
				*transitions = append(*transitions, from.String()+"->"+to.String())
			}
		},
	})
}

func failing() error { return statusErr(http.StatusInternalServerError) }
func succeeding() error { return nil }

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 3, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, cb.State())
		_ = cb.Execute(failing)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	_, failures, rejected := cb.Counts()
	assert.EqualValues(t, 3, failures)
	assert.EqualValues(t, 1, rejected)
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 3, nil)

	_ = cb.Execute(failing)
	_ = cb.Execute(failing)
	require.NoError(t, cb.Execute(succeeding))
	_ = cb.Execute(failing)
	_ = cb.Execute(failing)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 2, nil)

	for i := 0; i < 5; i++ {
		err := cb.Execute(func() error { return statusErr(http.StatusBadRequest) })
		assert.Equal(t, statusErr(http.StatusBadRequest), err)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_NeutralErrorKeepsHalfOpen(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 1, nil)

	_ = cb.Execute(failing)
	clock.Advance(10 * time.Second)

	errBusy := errors.New("no key")
	assert.ErrorIs(t, cb.Execute(func() error { return errBusy }), errBusy)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := newTestBreaker(clock, 1, &transitions)

	_ = cb.Execute(failing)
	require.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 10*time.Second, cb.RetryAfter())

	clock.Advance(10 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.Zero(t, cb.RetryAfter())

	// While the probe is in flight, other callers are rejected.
	err := cb.Execute(func() error {
		assert.ErrorIs(t, cb.Execute(succeeding), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 1, nil)

	_ = cb.Execute(failing)
	clock.Advance(10 * time.Second)

	_ = cb.Execute(failing)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 10*time.Second, cb.RetryAfter())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestIsServerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error mentioning 500", errors.New("got 500 widgets"), false},
		{"rate limited", statusErr(http.StatusTooManyRequests), true},
		{"internal", statusErr(http.StatusInternalServerError), true},
		{"gateway timeout", statusErr(http.StatusGatewayTimeout), true},
		{"bad request", statusErr(http.StatusBadRequest), false},
		{"wrapped", fmt.Errorf("calling upstream: %w", statusErr(http.StatusBadGateway)), true},
		{"connection refused", fmt.Errorf("gemini: do request: %w", dialErr()), true},
		{"truncated body", fmt.Errorf("decode: %w", io.ErrUnexpectedEOF), true},
		{"caller canceled", fmt.Errorf("gemini: do request: %w",
			&url.Error{Op: "Post", URL: "http://upstream", Err: context.Canceled}), false},
		{"caller deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsServerError(tt.err))
		})
	}
}

func dialErr() error {
	return &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused"),
	}}
}

func TestCircuitBreaker_TransportErrorsTrip(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(clock, 2, nil)

	for i := 0; i < 2; i++ {
		err := cb.Execute(func() error { return dialErr() })
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
