package client

import (
	"context"
	"time"

	"github.com/linebridge/workerlink/protocol"
)

// HealthStatus is the result of a health probe.
type HealthStatus struct {
	// Connected reports whether a live worker is attached.
	Connected bool `json:"connected"`
	// RuntimeVersion is the runtime version observed at startup, empty when
	// the version gate was disabled.
	RuntimeVersion string `json:"runtime_version,omitempty"`
	// Responsive reports whether the worker answered the ping.
	Responsive bool `json:"responsive"`
	// ResponseTime is how long the ping round trip took.
	ResponseTime time.Duration `json:"response_time"`
	// Error carries the probe failure, if any.
	Error string `json:"error,omitempty"`
}

// HealthCheck pings the worker directly, bypassing the resilience chain so a
// probe never consumes rate-limit tokens or trips the breaker.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	c.mu.Lock()
	cn := c.conn
	sup := c.sup
	connected := c.connected
	c.mu.Unlock()

	var status HealthStatus
	if sup != nil {
		if v := sup.RuntimeVersion(); v.Major > 0 {
			status.RuntimeVersion = v.String()
		}
	}

	if !connected || cn == nil {
		status.Error = "not connected"
		return status
	}
	if sup != nil && !sup.IsAlive() {
		c.markDisconnected()
		status.Error = "worker process exited unexpectedly"
		return status
	}
	status.Connected = true

	start := time.Now()
	_, err := cn.Call(ctx, protocol.NewRequest(protocol.MethodPing, nil), c.cfg.Calls.HealthCheckTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Responsive = true
	return status
}
