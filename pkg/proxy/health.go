package proxy

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/abdhe/animal-speech-proxy/pkg/metrics"
	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

// HealthServiceName is the service name reported alongside the overall "" status.
const HealthServiceName = "animalspeech.Proxy"

// HealthReporter mirrors key availability into a gRPC health server and the pool gauges.
type HealthReporter struct {
	server   *health.Server
	pool     *resilience.KeyPool
	interval time.Duration
	logger   *slog.Logger

	last healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthReporter creates a reporter. A nil pool is always SERVING.
func NewHealthReporter(pool *resilience.KeyPool, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthReporter{
		server:   health.NewServer(),
		pool:     pool,
		interval: interval,
		logger:   logger,
	}
}

// Server returns the health server to register on a grpc.Server.
func (h *HealthReporter) Server() *health.Server { return h.server }

// Refresh publishes the current pool state once.
func (h *HealthReporter) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.pool != nil {
		available := h.pool.AvailableCount()
		metrics.RecordKeyPool(h.pool.Size(), available, h.pool.Snapshot())
		if available == 0 {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	if status != h.last {
		h.logger.Info("serving status changed", "from", h.last.String(), "to", status.String())
		h.last = status
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(HealthServiceName, status)
	return status
}

// Run refreshes on every tick until ctx is done, then marks everything NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Refresh()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Refresh()
		}
	}
}
