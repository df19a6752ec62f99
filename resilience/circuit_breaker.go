package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited probe requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// FailureThreshold is the number of counted failures before opening.
	FailureThreshold int
	// FailureRateThreshold opens the circuit once the failure rate reaches
	// this fraction, provided at least MinimumSamples requests were seen.
	FailureRateThreshold float64
	// MinimumSamples is the request count below which the rate threshold
	// is not evaluated.
	MinimumSamples int
	// SuccessThreshold is the number of successes in half-open required to
	// close the circuit. It also caps concurrent half-open probes.
	SuccessThreshold int
	// OpenTimeout is how long to wait before transitioning from open to
	// half-open. Evaluated lazily on the next call, not by a timer.
	OpenTimeout time.Duration
	// Classify reports whether a failure counts toward the breaker.
	// Failures it rejects are neutral: they neither trip the breaker nor
	// close a half-open circuit. Nil counts every error.
	Classify func(error) bool
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                 name,
		FailureThreshold:     5,
		FailureRateThreshold: 0.5,
		MinimumSamples:       10,
		SuccessThreshold:     1,
		OpenTimeout:          30 * time.Second,
	}
}

// Counters is a snapshot of the breaker's counters since it last entered
// the closed state.
type Counters struct {
	Requests  int
	Failures  int
	Successes int
}

// FailureRate returns failures over requests, or 0 with no samples.
func (c Counters) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Requests)
}

// CircuitBreaker prevents cascading failures by failing fast when the worker
// is unhealthy.
//
// States:
//   - Closed: normal operation, requests pass through
//   - Open: worker is unhealthy, requests fail immediately
//   - Half-Open: testing recovery, limited probe requests allowed
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	requests        int
	failures        int
	successes       int
	halfOpenCalls   int
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.FailureRateThreshold <= 0 || config.FailureRateThreshold > 1 {
		config.FailureRateThreshold = 0.5
	}
	if config.MinimumSamples <= 0 {
		config.MinimumSamples = 10
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the given function through the circuit breaker.
// Returns ErrCircuitOpen without invoking fn if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Counters returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Counters() Counters {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Counters{
		Requests:  cb.requests,
		Failures:  cb.failures,
		Successes: cb.successes,
	}
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.resetCounters()
}

// allowRequest checks if a request should be allowed.
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.SuccessThreshold {
			cb.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult records the result of a request. Failures the classifier
// rejects are neutral and leave all counters untouched.
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccess()
		return
	}
	if cb.config.Classify != nil && !cb.config.Classify(err) {
		// A neutral failure says nothing about worker health, so the probe
		// slot it consumed must be returned or half-open runs out of probes
		// and rejects every call until Reset.
		if cb.state == StateHalfOpen && cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		return
	}
	cb.onFailure()
}

// onSuccess handles a successful request.
func (cb *CircuitBreaker) onSuccess() {
	cb.requests++

	if cb.currentState() == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.toState(StateClosed)
		}
	}
}

// onFailure handles a counted failure.
func (cb *CircuitBreaker) onFailure() {
	cb.requests++
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.currentState() {
	case StateClosed:
		if cb.shouldTrip() {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.toState(StateOpen)
	}
}

// shouldTrip evaluates the closed→open conditions.
func (cb *CircuitBreaker) shouldTrip() bool {
	if cb.failures >= cb.config.FailureThreshold {
		return true
	}
	if cb.requests >= cb.config.MinimumSamples {
		rate := float64(cb.failures) / float64(cb.requests)
		return rate >= cb.config.FailureRateThreshold
	}
	return false
}

// currentState returns the current state, handling the lazy open→half-open
// transition. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= cb.config.OpenTimeout {
			cb.toState(StateHalfOpen)
		}
	}
	return cb.state
}

// toState transitions to a new state. Callers must hold cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.resetCounters()
	case StateHalfOpen, StateOpen:
		cb.halfOpenCalls = 0
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *CircuitBreaker) resetCounters() {
	cb.requests = 0
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCalls = 0
}
