// Animal speech proxy: main entry point.
//
// Configuration comes from an optional YAML file (CONFIG_FILE) overridden by
// environment variables; see pkg/config for the full list. The most common ones:
//
//	BACKEND                 gemini | vllm (default: gemini)
//	GEMINI_API_KEYS         comma-separated Gemini keys (GOOGLE_API_KEYS also accepted)
//	VLLM_BASE_URL           OpenAI-compatible vLLM server
//	MAX_REQUESTS_PER_MINUTE per-key cap inside KEY_WINDOW (default: 15)
//	KEY_WAIT_TIMEOUT        how long a request waits for a free key (default: 5s)
//	REDIS_ADDR              enables the response cache when set
//	HTTP_ADDR, METRICS_ADDR, GRPC_ADDR
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/abdhe/animal-speech-proxy/pkg/cache"
	"github.com/abdhe/animal-speech-proxy/pkg/config"
	"github.com/abdhe/animal-speech-proxy/pkg/metrics"
	"github.com/abdhe/animal-speech-proxy/pkg/provider"
	"github.com/abdhe/animal-speech-proxy/pkg/proxy"
	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("starting animal speech proxy", "backend", cfg.Backend, "model", cfg.ActiveModel())

	// -------------------------------------------------------------------------
	// Key pool
	// -------------------------------------------------------------------------
	var pool *resilience.KeyPool
	if keys := cfg.ActiveKeys(); len(keys) > 0 {
		pool, err = resilience.NewKeyPool(keys, cfg.KeyPool.MaxRequestsPerWindow,
			resilience.WithWindow(cfg.KeyPool.Window))
		if err != nil {
			return fmt.Errorf("key pool: %w", err)
		}
		logger.Info("key pool ready",
			"keys", pool.Size(),
			"max_per_window", pool.Limit(),
			"window", pool.Window(),
		)
	} else {
		logger.Warn("no API keys configured, backend is called without a key")
	}

	// -------------------------------------------------------------------------
	// Backend, breaker, cache
	// -------------------------------------------------------------------------
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	var gen provider.TextGenerator
	switch cfg.Backend {
	case config.BackendVLLM:
		gen = provider.NewVLLMProvider(httpClient, cfg.VLLM.BaseURL)
	default:
		gen = provider.NewGeminiProvider(httpClient, cfg.Gemini.BaseURL)
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.CBFailureThreshold,
		Cooldown:         cfg.CBCooldown,
		OnStateChange:    breakerHook(logger, gen.Name()),
	})

	var responseCache proxy.ResponseCache
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, response cache disabled", "addr", cfg.Redis.Addr, "error", err)
			_ = redisCache.Close()
			redisCache = nil
		} else {
			responseCache = redisCache
			logger.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
		cancel()
	}

	svc := proxy.NewService(proxy.ServiceConfig{
		Generator: gen,
		Model:     cfg.ActiveModel(),
		KeyPool:   pool,
		Breaker:   breaker,
		Cache:     responseCache,
		Retry: resilience.RetryConfig{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
		},
		RequestTimeout: cfg.RequestTimeout,
		KeyWaitTimeout: cfg.KeyPool.WaitTimeout,
		Logger:         logger,
	})

	// A nil *KeyPool inside the interface would not compare equal to nil.
	var keys proxy.KeyReporter
	if pool != nil {
		keys = pool
	}
	handler := proxy.NewHandler(svc, keys, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// Servers
	// -------------------------------------------------------------------------
	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           proxy.NewServeMux(handler, proxy.NewClientThrottle(cfg.ClientRPS, cfg.ClientBurst), logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + cfg.KeyPool.WaitTimeout + 5*time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	metricsServer := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	health := proxy.NewHealthReporter(pool, 5*time.Second, logger)
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.Server())
	reflection.Register(grpcServer)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc health server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go health.Run(ctx)

	// -------------------------------------------------------------------------
	// Graceful shutdown
	// -------------------------------------------------------------------------
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed, shutting down", "error", runErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runErr = multierr.Append(runErr, apiServer.Shutdown(shutdownCtx))
	grpcServer.GracefulStop()
	runErr = multierr.Append(runErr, metricsServer.Shutdown(shutdownCtx))
	if redisCache != nil {
		runErr = multierr.Append(runErr, redisCache.Close())
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("animal speech proxy shut down")
	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// breakerHook logs breaker transitions and mirrors them into the state gauge.
func breakerHook(logger *slog.Logger, backend string) func(from, to resilience.CircuitState) {
	record := metrics.RecordBreakerState(backend)
	return func(from, to resilience.CircuitState) {
		record(from, to)
		logger.Warn("circuit breaker state changed", "backend", backend, "from", from.String(), "to", to.String())
	}
}
