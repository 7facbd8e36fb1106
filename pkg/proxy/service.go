// Package proxy turns user text into animal speech, either through a
// rate-limited text-generation backend or with local rules, and serves it over HTTP.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdhe/animal-speech-proxy/pkg/cache"
	"github.com/abdhe/animal-speech-proxy/pkg/convert"
	"github.com/abdhe/animal-speech-proxy/pkg/metrics"
	"github.com/abdhe/animal-speech-proxy/pkg/prompt"
	"github.com/abdhe/animal-speech-proxy/pkg/provider"
	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

var (
	// ErrServiceBusy means no API key had budget within the wait timeout.
	ErrServiceBusy = errors.New("proxy: no API key available")

	// ErrInvalidInput means the text to transform was empty.
	ErrInvalidInput = errors.New("proxy: empty input")
)

// ResponseCache stores generated text by key. *cache.RedisCache implements it.
type ResponseCache interface {
	Get(ctx context.Context, key string) (provider.Response, bool, error)
	Set(ctx context.Context, key string, resp provider.Response) error
}

// ServiceConfig holds the service dependencies. Only Generator and Model are required.
type ServiceConfig struct {
	Generator provider.TextGenerator
	Model     string

	// KeyPool gates every upstream call. Nil means the backend needs no key.
	KeyPool *resilience.KeyPool
	Breaker *resilience.CircuitBreaker
	Cache   ResponseCache

	Retry          resilience.RetryConfig
	RequestTimeout time.Duration
	// KeyWaitTimeout bounds how long a request waits for a key. Zero means no waiting.
	KeyWaitTimeout time.Duration

	Temperature float32
	TopP        float32
	MaxTokens   int32

	Logger *slog.Logger
}

// Service runs transformations.
type Service struct {
	gen     provider.TextGenerator
	model   string
	pool    *resilience.KeyPool
	breaker *resilience.CircuitBreaker
	cache   ResponseCache

	retryCfg       resilience.RetryConfig
	requestTimeout time.Duration
	keyWaitTimeout time.Duration

	temperature float32
	topP        float32
	maxTokens   int32

	logger *slog.Logger
}

// NewService creates a transformation service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	return &Service{
		gen:            cfg.Generator,
		model:          cfg.Model,
		pool:           cfg.KeyPool,
		breaker:        cfg.Breaker,
		cache:          cfg.Cache,
		retryCfg:       cfg.Retry,
		requestTimeout: cfg.RequestTimeout,
		keyWaitTimeout: cfg.KeyWaitTimeout,
		temperature:    cfg.Temperature,
		topP:           cfg.TopP,
		maxTokens:      cfg.MaxTokens,
		logger:         cfg.Logger,
	}
}

// Backend returns the generator name.
func (s *Service) Backend() string { return s.gen.Name() }

// TransformPost rewrites a post in the animal's voice and mood.
func (s *Service) TransformPost(ctx context.Context, content string, animal prompt.Animal, emotion prompt.Emotion) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidInput
	}
	p, err := prompt.Post(content, animal, emotion)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "post", p, content)
}

// TransformComment rewrites a comment in the animal's voice.
func (s *Service) TransformComment(ctx context.Context, content string, animal prompt.Animal) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidInput
	}
	p, err := prompt.Comment(content, animal)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "comment", p, content)
}

// TransformChat rewrites a chat message with local rules. It never uses a key.
func (s *Service) TransformChat(_ context.Context, text, animal string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrInvalidInput
	}
	start := time.Now()
	out, err := convert.Convert(animal, text)
	if err != nil {
		return "", err
	}
	metrics.RequestLatency.WithLabelValues("rules", "chat", "none").Observe(time.Since(start).Seconds())
	return out, nil
}

// RetryAfter estimates how long until a busy or tripped service can take a request again.
func (s *Service) RetryAfter() time.Duration {
	wait := s.breaker.RetryAfter()
	if s.pool != nil {
		if d := s.pool.RetryAfter(); d > wait {
			wait = d
		}
	}
	return wait
}

// generate runs cache lookup, key acquisition and the guarded upstream call.
// fallback is returned when the backend answers with empty text.
func (s *Service) generate(ctx context.Context, kind, rendered, fallback string) (string, error) {
	start := time.Now()
	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	backend := s.gen.Name()
	log := s.logger.With("backend", backend, "kind", kind)

	cacheKey := cache.Key(backend, s.model, rendered)
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			log.Warn("cache lookup failed", "error", err)
		}
		metrics.RecordCacheLookup(hit)
		if hit {
			metrics.RequestLatency.WithLabelValues(backend, kind, "hit").Observe(time.Since(start).Seconds())
			return cached.Text, nil
		}
	}

	var resp provider.Response
	err := s.breaker.Execute(func() error {
		return resilience.Retry(ctx, s.retryCfg, func(ctx context.Context, attempt int) error {
			cred, err := s.acquire(ctx)
			if err != nil {
				return err
			}
			defer s.releaseKey(cred)

			resp, err = s.gen.Generate(ctx, provider.Request{
				Model:       s.model,
				Prompt:      rendered,
				Temperature: s.temperature,
				TopP:        s.topP,
				MaxTokens:   s.maxTokens,
				APIKey:      cred.Secret,
			})
			if err != nil && resilience.IsRateLimited(err) && s.pool != nil {
				s.pool.Exhaust(cred)
				metrics.UpstreamRateLimited.WithLabelValues(cred.ID).Inc()
				log.Warn("upstream rate limited key", "key", cred.ID, "attempt", attempt)
			}
			return err
		})
	})

	if err != nil {
		metrics.RequestLatency.WithLabelValues(backend, kind, "error").Observe(time.Since(start).Seconds())
		log.Error("generation failed", "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("proxy: %s: %w", kind, err)
	}

	metrics.RequestLatency.WithLabelValues(backend, kind, "miss").Observe(time.Since(start).Seconds())
	metrics.TokenUsageTotal.WithLabelValues(backend, "input").Add(float64(resp.PromptTokens))
	metrics.TokenUsageTotal.WithLabelValues(backend, "output").Add(float64(resp.OutputTokens))

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		log.Warn("backend returned empty text, returning input unchanged")
		return fallback, nil
	}
	resp.Text = text

	if s.cache != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, cacheKey, resp); err != nil {
				s.logger.Warn("cache store failed", "error", err)
			}
		}()
	}
	return text, nil
}

// acquire takes a key from the pool, waiting up to keyWaitTimeout.
func (s *Service) acquire(ctx context.Context) (resilience.Credential, error) {
	if s.pool == nil {
		return resilience.Credential{}, nil
	}

	if s.keyWaitTimeout <= 0 {
		cred, ok := s.pool.Acquire()
		if !ok {
			metrics.KeyPoolAcquisitions.WithLabelValues("exhausted").Inc()
			return resilience.Credential{}, ErrServiceBusy
		}
		metrics.KeyPoolAcquisitions.WithLabelValues("acquired").Inc()
		return cred, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.keyWaitTimeout)
	defer cancel()

	cred, err := s.pool.Wait(waitCtx)
	switch {
	case err == nil:
		metrics.KeyPoolAcquisitions.WithLabelValues("acquired").Inc()
		return cred, nil
	case ctx.Err() != nil:
		metrics.KeyPoolAcquisitions.WithLabelValues("cancelled").Inc()
		return resilience.Credential{}, ctx.Err()
	default:
		metrics.KeyPoolAcquisitions.WithLabelValues("exhausted").Inc()
		return resilience.Credential{}, fmt.Errorf("%w: %v", ErrServiceBusy, err)
	}
}

func (s *Service) releaseKey(cred resilience.Credential) {
	if s.pool != nil {
		s.pool.Release(cred)
	}
}
