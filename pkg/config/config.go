// Package config loads proxy configuration from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Supported backends.
const (
	BackendGemini = "gemini"
	BackendVLLM   = "vllm"
)

// Config holds the proxy configuration.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`

	Backend string       `yaml:"backend"`
	Gemini  GeminiConfig `yaml:"gemini"`
	VLLM    VLLMConfig   `yaml:"vllm"`

	KeyPool KeyPoolConfig `yaml:"key_pool"`

	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	CBFailureThreshold int           `yaml:"cb_failure_threshold"`
	CBCooldown         time.Duration `yaml:"cb_cooldown"`

	Redis RedisConfig `yaml:"redis"`

	ClientRPS   float64 `yaml:"client_rps"`
	ClientBurst int     `yaml:"client_burst"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
	BaseURL string   `yaml:"base_url"`
}

type VLLMConfig struct {
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`
}

// KeyPoolConfig bounds per-key usage.
type KeyPoolConfig struct {
	MaxRequestsPerWindow int           `yaml:"max_requests_per_window"`
	Window               time.Duration `yaml:"window"`
	WaitTimeout          time.Duration `yaml:"wait_timeout"`
}

// RedisConfig configures the response cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPAddr:    ":8000",
		MetricsAddr: ":9090",
		GRPCAddr:    ":50051",
		Backend:     BackendGemini,
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		VLLM: VLLMConfig{
			BaseURL: "http://localhost:8001",
		},
		KeyPool: KeyPoolConfig{
			MaxRequestsPerWindow: 15,
			Window:               time.Minute,
			WaitTimeout:          5 * time.Second,
		},
		RequestTimeout:     30 * time.Second,
		MaxRetries:         3,
		CBFailureThreshold: 5,
		CBCooldown:         30 * time.Second,
		Redis: RedisConfig{
			TTL: time.Hour,
		},
		ClientRPS:   5,
		ClientBurst: 10,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables. Malformed values are errors.
// Load does not validate cross-field requirements; call Validate for that.
func Load() (*Config, error) {
	cfg := Default()

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	var errs error
	envString(&cfg.HTTPAddr, "HTTP_ADDR")
	envString(&cfg.MetricsAddr, "METRICS_ADDR")
	envString(&cfg.GRPCAddr, "GRPC_ADDR")
	envString(&cfg.Backend, "BACKEND")
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	// GOOGLE_API_KEYS is the older name; GEMINI_API_KEYS wins when both are set.
	envKeys(&cfg.Gemini.APIKeys, "GOOGLE_API_KEYS")
	envKeys(&cfg.Gemini.APIKeys, "GEMINI_API_KEYS")
	envString(&cfg.Gemini.Model, "GEMINI_MODEL")
	envString(&cfg.Gemini.BaseURL, "GEMINI_BASE_URL")

	envString(&cfg.VLLM.BaseURL, "VLLM_BASE_URL")
	envString(&cfg.VLLM.Model, "VLLM_MODEL")
	envKeys(&cfg.VLLM.APIKeys, "VLLM_API_KEYS")

	errs = multierr.Append(errs, envInt(&cfg.KeyPool.MaxRequestsPerWindow, "MAX_REQUESTS_PER_MINUTE"))
	errs = multierr.Append(errs, envDuration(&cfg.KeyPool.Window, "KEY_WINDOW"))
	errs = multierr.Append(errs, envDuration(&cfg.KeyPool.WaitTimeout, "KEY_WAIT_TIMEOUT"))

	errs = multierr.Append(errs, envDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT"))
	errs = multierr.Append(errs, envInt(&cfg.MaxRetries, "MAX_RETRIES"))
	errs = multierr.Append(errs, envInt(&cfg.CBFailureThreshold, "CB_FAILURE_THRESHOLD"))
	errs = multierr.Append(errs, envDuration(&cfg.CBCooldown, "CB_COOLDOWN"))

	envString(&cfg.Redis.Addr, "REDIS_ADDR")
	envString(&cfg.Redis.Password, "REDIS_PASSWORD")
	errs = multierr.Append(errs, envInt(&cfg.Redis.DB, "REDIS_DB"))
	errs = multierr.Append(errs, envDuration(&cfg.Redis.TTL, "CACHE_TTL"))

	errs = multierr.Append(errs, envFloat(&cfg.ClientRPS, "CLIENT_RPS"))
	errs = multierr.Append(errs, envInt(&cfg.ClientBurst, "CLIENT_BURST"))

	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")

	if errs != nil {
		return nil, fmt.Errorf("config: %w", errs)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field requirements. A gemini backend without keys is
// a startup error rather than a pool that refuses every request.
func (c *Config) Validate() error {
	var errs error
	switch c.Backend {
	case BackendGemini:
		if len(CleanKeys(c.Gemini.APIKeys)) == 0 {
			errs = multierr.Append(errs, errors.New("GEMINI_API_KEYS is required for the gemini backend"))
		}
		if c.Gemini.Model == "" {
			errs = multierr.Append(errs, errors.New("GEMINI_MODEL must not be empty"))
		}
	case BackendVLLM:
		if c.VLLM.Model == "" {
			errs = multierr.Append(errs, errors.New("VLLM_MODEL is required for the vllm backend"))
		}
		if c.VLLM.BaseURL == "" {
			errs = multierr.Append(errs, errors.New("VLLM_BASE_URL must not be empty"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("BACKEND must be %q or %q, got %q", BackendGemini, BackendVLLM, c.Backend))
	}

	if c.KeyPool.MaxRequestsPerWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("MAX_REQUESTS_PER_MINUTE must be positive, got %d", c.KeyPool.MaxRequestsPerWindow))
	}
	if c.KeyPool.Window <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("KEY_WINDOW must be positive, got %s", c.KeyPool.Window))
	}
	if c.KeyPool.WaitTimeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("KEY_WAIT_TIMEOUT must not be negative, got %s", c.KeyPool.WaitTimeout))
	}
	if c.RequestTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	} else if c.KeyPool.WaitTimeout >= c.RequestTimeout {
		// The key wait runs inside the request deadline; a wait that long
		// would surface exhaustion as an upstream timeout.
		errs = multierr.Append(errs, fmt.Errorf("KEY_WAIT_TIMEOUT (%s) must be shorter than REQUEST_TIMEOUT (%s)",
			c.KeyPool.WaitTimeout, c.RequestTimeout))
	}
	if c.MaxRetries < 0 {
		errs = multierr.Append(errs, fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries))
	}
	if c.ClientRPS <= 0 || c.ClientBurst <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("CLIENT_RPS and CLIENT_BURST must be positive, got %g/%d", c.ClientRPS, c.ClientBurst))
	}

	if errs != nil {
		return fmt.Errorf("config: invalid: %w", errs)
	}
	return nil
}

// ActiveKeys returns the API keys of the selected backend.
func (c *Config) ActiveKeys() []string {
	if c.Backend == BackendVLLM {
		return CleanKeys(c.VLLM.APIKeys)
	}
	return CleanKeys(c.Gemini.APIKeys)
}

// ActiveModel returns the model name of the selected backend.
func (c *Config) ActiveModel() string {
	if c.Backend == BackendVLLM {
		return c.VLLM.Model
	}
	return c.Gemini.Model
}

// ParseKeyList splits a key list given either as "a,b" or as a bracketed,
// quoted list such as ['a', "b"].
func ParseKeyList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `'"`)
	}
	return CleanKeys(parts)
}

// CleanKeys trims keys and drops blanks.
func CleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envKeys(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = ParseKeyList(v)
	}
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	*dst = i
	return nil
}

func envFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s has invalid number %q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
