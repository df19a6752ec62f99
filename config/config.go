package config

import (
	"fmt"
	"time"

	"github.com/linebridge/workerlink/logger"
)

// Config is the root configuration for the worker client.
type Config struct {
	Logging    logger.Config    `yaml:"logging" mapstructure:"logging"`
	Worker     WorkerConfig     `yaml:"worker" mapstructure:"worker"`
	Calls      CallConfig       `yaml:"calls" mapstructure:"calls"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// WorkerConfig describes the worker subprocess launch.
type WorkerConfig struct {
	// Binary is the runtime executable hosting the worker, e.g. "node".
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Args are the runtime arguments, typically the worker entrypoint.
	Args []string `yaml:"args" mapstructure:"args"`
	// Dir is the worker's working directory.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// MinRuntimeMajor gates the runtime version before spawn. Zero disables.
	MinRuntimeMajor int `yaml:"min_runtime_major" mapstructure:"min_runtime_major"`
	// GracePeriod is the SIGTERM-to-SIGKILL window on shutdown.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// ExtraEnv names extra environment variables to pass through.
	ExtraEnv []string `yaml:"extra_env" mapstructure:"extra_env"`
}

// ApplyDefaults applies default values to worker configuration.
func (c *WorkerConfig) ApplyDefaults() {
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
}

// Validate validates worker configuration.
func (c *WorkerConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("worker.binary is required")
	}
	if c.MinRuntimeMajor < 0 {
		return fmt.Errorf("worker.min_runtime_major must not be negative")
	}
	return nil
}

// CallConfig bounds individual exchanges with the worker.
type CallConfig struct {
	// RequestTimeout bounds one request/response round trip.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// ConnectTimeout bounds the spawn-and-handshake sequence.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	// HealthCheckTimeout bounds the ping probe.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout" mapstructure:"health_check_timeout"`
}

// ApplyDefaults applies default values to call configuration.
func (c *CallConfig) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = 5 * time.Second
	}
}

// Validate validates call configuration.
func (c *CallConfig) Validate() error {
	if c.RequestTimeout < 0 || c.ConnectTimeout < 0 || c.HealthCheckTimeout < 0 {
		return fmt.Errorf("calls timeouts must not be negative")
	}
	return nil
}

// RetrySettings configures the retry policy.
type RetrySettings struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	Jitter         float64       `yaml:"jitter" mapstructure:"jitter"`
}

// BreakerSettings configures the circuit breaker.
type BreakerSettings struct {
	FailureThreshold     int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	FailureRateThreshold float64       `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinimumSamples       int           `yaml:"minimum_samples" mapstructure:"minimum_samples"`
	SuccessThreshold     int           `yaml:"success_threshold" mapstructure:"success_threshold"`
	OpenTimeout          time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
}

// RateLimitSettings configures the token-bucket rate limiter.
type RateLimitSettings struct {
	Rate    float64       `yaml:"rate" mapstructure:"rate"`
	Burst   int           `yaml:"burst" mapstructure:"burst"`
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// BulkheadSettings configures the concurrency limiter.
type BulkheadSettings struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ResilienceConfig groups all resilience policy settings.
type ResilienceConfig struct {
	Retry     RetrySettings     `yaml:"retry" mapstructure:"retry"`
	Breaker   BreakerSettings   `yaml:"breaker" mapstructure:"breaker"`
	RateLimit RateLimitSettings `yaml:"rate_limit" mapstructure:"rate_limit"`
	Bulkhead  BulkheadSettings  `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults applies default values to resilience configuration.
func (c *ResilienceConfig) ApplyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = 200 * time.Millisecond
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = 5 * time.Second
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = 2.0
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = 0.2
	}

	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.FailureRateThreshold == 0 {
		c.Breaker.FailureRateThreshold = 0.5
	}
	if c.Breaker.MinimumSamples == 0 {
		c.Breaker.MinimumSamples = 10
	}
	if c.Breaker.SuccessThreshold == 0 {
		c.Breaker.SuccessThreshold = 2
	}
	if c.Breaker.OpenTimeout == 0 {
		c.Breaker.OpenTimeout = 30 * time.Second
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if c.RateLimit.MaxWait == 0 {
		c.RateLimit.MaxWait = 2 * time.Second
	}

	if c.Bulkhead.MaxConcurrent == 0 {
		c.Bulkhead.MaxConcurrent = 1
	}
	if c.Bulkhead.MaxWait == 0 {
		c.Bulkhead.MaxWait = 5 * time.Second
	}
}

// Validate validates resilience configuration.
func (c *ResilienceConfig) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience.retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("resilience.retry.backoff_factor must be at least 1")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("resilience.retry.jitter must be in [0, 1]")
	}
	if c.Breaker.FailureRateThreshold <= 0 || c.Breaker.FailureRateThreshold > 1 {
		return fmt.Errorf("resilience.breaker.failure_rate_threshold must be in (0, 1]")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("resilience.breaker.failure_threshold must be at least 1")
	}
	if c.Breaker.SuccessThreshold < 1 {
		return fmt.Errorf("resilience.breaker.success_threshold must be at least 1")
	}
	if c.RateLimit.Rate <= 0 {
		return fmt.Errorf("resilience.rate_limit.rate must be positive")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("resilience.rate_limit.burst must be at least 1")
	}
	if c.Bulkhead.MaxConcurrent < 1 {
		return fmt.Errorf("resilience.bulkhead.max_concurrent must be at least 1")
	}
	return nil
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	c.Worker.ApplyDefaults()
	c.Calls.ApplyDefaults()
	c.Resilience.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Worker.Validate(); err != nil {
		return err
	}
	if err := c.Calls.Validate(); err != nil {
		return err
	}
	return c.Resilience.Validate()
}
