package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a call cannot be admitted within the
// configured wait budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token-bucket rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Rate is the number of calls allowed per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// MaxWait bounds how long Wait blocks for a token. Zero means block
	// until the context is done.
	MaxWait time.Duration
	// OnLimit is called when a call is rejected.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter implements a token bucket. Tokens accrue at Rate per second up
// to Burst; each admitted call consumes one.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow checks if a call is admitted without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until a token is available, the context is done, or MaxWait
// would be exceeded. Exceeding MaxWait reports ErrRateLimited rather than
// silently dropping the call.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		rl.mu.Unlock()
		return nil
	}

	needed := 1 - rl.tokens
	wait := time.Duration(needed / rl.config.Rate * float64(time.Second))

	if rl.config.MaxWait > 0 && wait > rl.config.MaxWait {
		rl.mu.Unlock()
		if rl.config.OnLimit != nil {
			rl.config.OnLimit(rl.config.Name)
		}
		return ErrRateLimited
	}

	// Reserve the token; returned below if the caller gives up.
	rl.tokens--
	rl.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs a function if the rate limit admits it immediately.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait blocks for admission, then runs the function.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate returns the configured rate (calls per second).
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

// Burst returns the bucket capacity.
func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}

// refill adds tokens based on elapsed time, capped at the bucket capacity.
// Callers must hold rl.mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.config.Rate

	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}
