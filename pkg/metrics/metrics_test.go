package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

func TestRecordCacheLookup(t *testing.T) {
	lookups := testutil.ToFloat64(CacheLookupsTotal)
	hits := testutil.ToFloat64(CacheHitsTotal)

	RecordCacheLookup(true)
	RecordCacheLookup(false)

	assert.Equal(t, lookups+2, testutil.ToFloat64(CacheLookupsTotal))
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHitsTotal))
}

func TestRecordKeyPool(t *testing.T) {
	RecordKeyPool(3, 1, []resilience.KeyStatus{
		{ID: "key_1", Used: 15, Limit: 15, ResetAt: time.Now()},
		{ID: "key_2", Used: 4, Limit: 15},
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(KeyPoolSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(KeyPoolAvailable))
	assert.Equal(t, 15.0, testutil.ToFloat64(KeyUsage.WithLabelValues("key_1")))
	assert.Equal(t, 4.0, testutil.ToFloat64(KeyUsage.WithLabelValues("key_2")))
}

func TestRecordBreakerState(t *testing.T) {
	hook := RecordBreakerState("test-backend")
	g := CircuitBreakerState.WithLabelValues("test-backend")
	assert.Equal(t, 0.0, testutil.ToFloat64(g))

	hook(resilience.StateClosed, resilience.StateOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(g))

	hook(resilience.StateOpen, resilience.StateHalfOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(g))
}
