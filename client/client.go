package client

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/linebridge/workerlink/config"
	goerrors "github.com/linebridge/workerlink/errors"
	"github.com/linebridge/workerlink/logger"
	"github.com/linebridge/workerlink/observability"
	"github.com/linebridge/workerlink/process"
	"github.com/linebridge/workerlink/protocol"
	"github.com/linebridge/workerlink/transport"
	"github.com/linebridge/workerlink/util"
	"github.com/linebridge/workerlink/version"
)

// conn is the transport surface the client depends on.
type conn interface {
	Call(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error)
	Notify(req *protocol.Request) error
	Close()
}

// WorkerInfo is what the worker reports about itself in the initialize
// handshake result.
type WorkerInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion"`
}

// Client talks to one worker subprocess. All methods are safe for concurrent
// use; concurrent SendRequest calls queue on the bulkhead because the pipe
// carries one request at a time.
type Client struct {
	cfg     *config.Config
	log     *logger.Logger
	res     *ResilienceState
	stats   *Stats
	metrics *observability.Metrics

	// newConn builds the transport over the worker's pipes. Replaceable in
	// tests.
	newConn func(w io.Writer, r io.Reader, log *logger.Logger) conn

	mu        sync.Mutex
	sup       *process.Supervisor
	conn      conn
	connected bool
	worker    WorkerInfo
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics attaches metric instruments to the client.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client from validated configuration.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	c := &Client{
		cfg:   cfg,
		log:   log.WithComponent("client"),
		stats: &Stats{},
		newConn: func(w io.Writer, r io.Reader, log *logger.Logger) conn {
			return transport.New(w, r, log)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.res = BuildResilience(cfg.Resilience, log, c.stats, c.metrics)
	return c
}

// Connect spawns the worker and performs the initialize handshake. Calling
// Connect on an already-connected client is a no-op. On handshake failure the
// spawned worker is torn down before the error is returned.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Calls.ConnectTimeout)
	defer cancel()

	sup := process.NewSupervisor(process.Config{
		Binary:          c.cfg.Worker.Binary,
		Args:            c.cfg.Worker.Args,
		Dir:             c.cfg.Worker.Dir,
		MinRuntimeMajor: c.cfg.Worker.MinRuntimeMajor,
		GracePeriod:     c.cfg.Worker.GracePeriod,
		ExtraEnv:        c.cfg.Worker.ExtraEnv,
	}, c.log)

	if err := sup.Start(ctx); err != nil {
		return err
	}

	cn := c.newConn(sup.Stdin(), sup.Stdout(), c.log)

	req := protocol.NewRequest(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.Version,
		"clientInfo": map[string]any{
			"name":    "workerlink",
			"version": version.GetShortVersion(),
		},
	})
	resp, err := cn.Call(ctx, req, c.cfg.Calls.RequestTimeout)
	if err != nil {
		cn.Close()
		_ = sup.Stop(context.Background())
		if _, ok := goerrors.AsAppError(err); ok {
			return err
		}
		return goerrors.ConnectionFailed("initialize handshake failed").WithCause(err)
	}

	var info WorkerInfo
	if len(resp.Result) > 0 {
		// Handshake metadata is advisory; a worker that omits it still works.
		_ = json.Unmarshal(resp.Result, &info)
	}

	c.sup = sup
	c.conn = cn
	c.worker = info
	c.connected = true

	c.log.Info("connected to worker", logger.Fields(
		logger.FieldWorkerPID, sup.PID(),
		"worker_name", info.Name,
		"worker_version", info.Version,
	))
	return nil
}

// Disconnect retires the worker: a best-effort shutdown notification, then
// two-phase process termination. Safe to call when not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cn := c.conn
	sup := c.sup
	c.conn = nil
	c.sup = nil
	c.connected = false
	c.mu.Unlock()

	if cn == nil {
		return nil
	}

	// The worker may exit on its own once it sees the notification; Stop
	// handles both the polite and the stubborn case.
	_ = cn.Notify(protocol.NewNotification(protocol.MethodShutdown, nil))
	cn.Close()

	if sup != nil {
		return sup.Stop(ctx)
	}
	return nil
}

// IsConnected reports whether the client holds a live worker. A worker that
// exited unexpectedly flips this to false.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return false
	}
	if c.sup != nil && !c.sup.IsAlive() {
		c.connected = false
		return false
	}
	return true
}

// SendRequest issues one call through the full resilience chain and returns
// the worker's raw result payload.
func (c *Client) SendRequest(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if method == "" {
		return nil, goerrors.InvalidInput("method is required")
	}

	c.mu.Lock()
	cn := c.conn
	sup := c.sup
	connected := c.connected
	c.mu.Unlock()

	if !connected || cn == nil {
		return nil, goerrors.ConnectionFailed("client is not connected")
	}
	if sup != nil && !sup.IsAlive() {
		c.markDisconnected()
		return nil, goerrors.ConnectionFailed("worker process exited unexpectedly")
	}

	c.stats.calls.Add(1)
	c.log.Debug("sending request", logger.Fields(
		logger.FieldMethod, method,
		"params", util.RedactParams(params),
	))

	cc := observability.NewCallContext(method, "", c.metrics)
	ctx, span := cc.StartSpan(ctx)

	result, err := ExecuteWithResilience(ctx, c.res, func() (json.RawMessage, error) {
		resp, callErr := cn.Call(ctx, protocol.NewRequest(method, params), c.cfg.Calls.RequestTimeout)
		if callErr != nil {
			return nil, callErr
		}
		return resp.Result, nil
	})
	if err != nil {
		cc.End(ctx, span, string(goerrors.CodeOf(err)), err)
		c.recordFailure(ctx, err)
		return nil, err
	}
	cc.End(ctx, span, "ok", nil)
	return result, nil
}

// WorkerInfo returns what the worker reported at initialize time.
func (c *Client) WorkerInfo() WorkerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worker
}

// Stats returns a snapshot of the client's call counters.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (c *Client) BreakerState() string {
	return c.res.BreakerState().String()
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	c.stats.failures.Add(1)

	switch goerrors.CodeOf(err) {
	case goerrors.ErrCodeUnauthorized:
		c.stats.authFailures.Add(1)
	case goerrors.ErrCodeCircuitOpen:
		c.recordRejection(ctx, "circuit_open")
	case goerrors.ErrCodeRateLimited:
		c.recordRejection(ctx, "rate_limited")
	case goerrors.ErrCodeBulkheadSaturated:
		c.recordRejection(ctx, "bulkhead_saturated")
	}
}

func (c *Client) recordRejection(ctx context.Context, reason string) {
	if c.metrics != nil {
		c.metrics.RecordRejection(ctx, reason)
	}
}
