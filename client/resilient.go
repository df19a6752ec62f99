package client

import (
	"context"
	"errors"
	"time"

	"github.com/linebridge/workerlink/config"
	goerrors "github.com/linebridge/workerlink/errors"
	"github.com/linebridge/workerlink/logger"
	"github.com/linebridge/workerlink/observability"
	"github.com/linebridge/workerlink/resilience"
)

// ResilienceState holds the stateful resilience components shared by every
// call through one client.
type ResilienceState struct {
	bh       *resilience.Bulkhead
	rl       *resilience.RateLimiter
	cb       *resilience.CircuitBreaker
	retryCfg *resilience.RetryConfig
}

// BreakerState returns the circuit breaker's current state.
func (s *ResilienceState) BreakerState() resilience.State {
	return s.cb.State()
}

// BuildResilience assembles the resilience chain from configuration. The
// shared error classification is wired here: only connection failures and
// timeouts are retried or counted against the breaker. Metrics are optional.
func BuildResilience(cfg config.ResilienceConfig, log *logger.Logger, stats *Stats, metrics *observability.Metrics) *ResilienceState {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("resilience")

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		BackoffFactor:  cfg.Retry.BackoffFactor,
		Jitter:         cfg.Retry.Jitter,
		RetryIf:        goerrors.IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			if stats != nil {
				stats.retries.Add(1)
			}
			if metrics != nil {
				metrics.RecordRetry(context.Background())
			}
			log.Warn("retrying call", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				"backoff_ms", backoff.Milliseconds(),
			))
		},
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:                 "worker",
		FailureThreshold:     cfg.Breaker.FailureThreshold,
		FailureRateThreshold: cfg.Breaker.FailureRateThreshold,
		MinimumSamples:       cfg.Breaker.MinimumSamples,
		SuccessThreshold:     cfg.Breaker.SuccessThreshold,
		OpenTimeout:          cfg.Breaker.OpenTimeout,
		Classify:             goerrors.CountsTowardBreaker,
		OnStateChange: func(name string, from, to resilience.State) {
			if stats != nil && to == resilience.StateOpen {
				stats.breakerTrips.Add(1)
			}
			if metrics != nil {
				metrics.RecordBreakerTransition(context.Background(), from.String(), to.String())
			}
			log.Warn("circuit breaker state changed", logger.Fields(
				logger.FieldBreakerState, to.String(),
				"from", from.String(),
				"breaker", name,
			))
		},
	})

	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:    "worker",
		Rate:    cfg.RateLimit.Rate,
		Burst:   cfg.RateLimit.Burst,
		MaxWait: cfg.RateLimit.MaxWait,
		OnLimit: func(name string) {
			log.Debug("call rejected by rate limiter", logger.Fields("limiter", name))
		},
	})

	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "worker",
		MaxConcurrent: cfg.Bulkhead.MaxConcurrent,
		MaxWait:       cfg.Bulkhead.MaxWait,
		OnReject: func(name string) {
			log.Debug("call rejected by bulkhead", logger.Fields("bulkhead", name))
		},
	})

	return &ResilienceState{
		bh:       bh,
		rl:       rl,
		cb:       cb,
		retryCfg: &retryCfg,
	}
}

// ExecuteWithResilience runs fn through the chain:
// Bulkhead → RateLimiter → CircuitBreaker → Retry → fn.
//
// The bulkhead and rate limiter sit outside the breaker so that overload
// rejections never count as worker failures, and the breaker wraps the whole
// retry sequence so one flaky call cannot trip it through its own retries.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		inner := call
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, inner)
		}
	}

	if s.cb != nil {
		cbCall := call
		call = func() (T, error) {
			var result T
			var resultErr error
			cbErr := s.cb.Execute(func() error {
				result, resultErr = cbCall()
				return resultErr
			})
			if cbErr != nil && resultErr == nil {
				return result, wrapResilienceError(cbErr)
			}
			return result, resultErr
		}
	}

	if s.rl != nil {
		rlCall := call
		call = func() (T, error) {
			if err := s.rl.Wait(ctx); err != nil {
				var zero T
				return zero, wrapResilienceError(err)
			}
			return rlCall()
		}
	}

	if s.bh != nil {
		result, err := resilience.ExecuteWithResult(ctx, s.bh, call)
		if err != nil {
			return result, wrapResilienceError(err)
		}
		return result, nil
	}

	return call()
}

// wrapResilienceError converts resilience sentinel errors into application
// errors with distinct codes. Context errors pass through unchanged so
// callers can still match them with errors.Is.
func wrapResilienceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := goerrors.AsAppError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return goerrors.CircuitOpen("worker").WithCause(err)
	case errors.Is(err, resilience.ErrRateLimited):
		return goerrors.RateLimited().WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return goerrors.BulkheadSaturated("worker").WithCause(err)
	default:
		return err
	}
}
