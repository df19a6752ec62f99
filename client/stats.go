package client

import "sync/atomic"

// Stats tracks client-level call outcomes. Authentication failures are
// counted separately from transport failures: they indicate expired
// credentials, not worker health, and never trip the breaker.
type Stats struct {
	calls        atomic.Int64
	failures     atomic.Int64
	authFailures atomic.Int64
	retries      atomic.Int64
	breakerTrips atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Calls        int64 `json:"calls"`
	Failures     int64 `json:"failures"`
	AuthFailures int64 `json:"auth_failures"`
	Retries      int64 `json:"retries"`
	BreakerTrips int64 `json:"breaker_trips"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Calls:        s.calls.Load(),
		Failures:     s.failures.Load(),
		AuthFailures: s.authFailures.Load(),
		Retries:      s.retries.Load(),
		BreakerTrips: s.breakerTrips.Load(),
	}
}
