package transport

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	goerrors "github.com/linebridge/workerlink/errors"
	"github.com/linebridge/workerlink/logger"
	"github.com/linebridge/workerlink/protocol"
)

// maxLineSize bounds a single response line. Large ticket search results fit
// comfortably; anything bigger indicates a runaway worker.
const maxLineSize = 10 << 20

type line struct {
	data []byte
	err  error
}

// Conn exchanges newline-delimited JSON-RPC messages over a worker's stdio
// pipes. Not safe for concurrent Call use beyond its own serialization: a
// call in flight completes or fails before the next is written.
type Conn struct {
	log *logger.Logger

	mu sync.Mutex // serializes writes and the paired response wait
	w  io.Writer

	lines chan line

	staleMu sync.Mutex
	stale   map[string]struct{} // ids abandoned by timeout/cancellation

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Conn over the worker's stdin writer and stdout reader and
// starts the background line reader.
func New(w io.Writer, r io.Reader, log *logger.Logger) *Conn {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	c := &Conn{
		log:    log.WithComponent("transport"),
		w:      w,
		lines:  make(chan line, 1),
		stale:  make(map[string]struct{}),
		closed: make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

// readLoop feeds response lines to the waiting caller. It exits when the
// worker's stdout closes, which also unblocks any pending Call.
func (c *Conn) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		data := make([]byte, len(scanner.Bytes()))
		copy(data, scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		select {
		case c.lines <- line{data: data}:
		case <-c.closed:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.lines <- line{err: err}:
	case <-c.closed:
	}
	close(c.lines)
}

// Call writes one request line and waits for its response, bounded by
// timeout. Timeouts, broken pipes, and malformed payloads surface as
// distinct error kinds; a protocol-level error field becomes a worker error
// (or an authentication error for auth codes).
func (c *Conn) Call(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return nil, goerrors.ConnectionFailed("transport is closed")
	default:
	}

	data, err := req.Marshal()
	if err != nil {
		return nil, goerrors.Internal("failed to encode request").WithCause(err)
	}
	data = append(data, '\n')

	start := time.Now()
	if _, err := c.w.Write(data); err != nil {
		return nil, goerrors.ConnectionFailed("write to worker failed").WithCause(err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ln, ok := <-c.lines:
			if !ok || ln.err != nil {
				return nil, goerrors.ConnectionFailed("worker closed the stream").
					WithDetail("method", req.Method)
			}

			resp, perr := protocol.ParseResponse(ln.data)
			if perr != nil {
				return nil, goerrors.MalformedResponse(perr.Error()).
					WithDetail("method", req.Method)
			}

			if c.isStale(resp.ID) {
				// Response to a call the caller already gave up on.
				c.log.Debug("discarding stale response",
					logger.Fields(logger.FieldCorrelationID, resp.ID))
				continue
			}

			if resp.ID != req.ID {
				return nil, goerrors.MalformedResponse("correlation id mismatch").
					WithDetail("expected", req.ID).
					WithDetail("received", resp.ID)
			}

			if verr := resp.Validate(); verr != nil {
				return nil, goerrors.MalformedResponse(verr.Error()).
					WithDetail("method", req.Method)
			}

			if resp.Error != nil {
				if resp.Error.IsAuthError() {
					return nil, goerrors.Unauthorized(resp.Error.Message).WithCause(resp.Error)
				}
				return nil, goerrors.WorkerError(resp.Error.Code, resp.Error.Message)
			}

			c.log.Debug("call completed",
				logger.DurationFields(req.Method, time.Since(start)))
			return resp, nil

		case <-timer.C:
			c.markStale(req.ID)
			return nil, goerrors.Timeout(req.Method).
				WithDetail("timeout_ms", timeout.Milliseconds())

		case <-ctx.Done():
			c.markStale(req.ID)
			return nil, ctx.Err()
		}
	}
}

// Notify writes a notification line. Best-effort: the worker sends no
// response and write errors are returned as connection failures.
func (c *Conn) Notify(req *protocol.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := req.Marshal()
	if err != nil {
		return goerrors.Internal("failed to encode notification").WithCause(err)
	}
	data = append(data, '\n')

	if _, err := c.w.Write(data); err != nil {
		return goerrors.ConnectionFailed("write to worker failed").WithCause(err)
	}
	return nil
}

// Close marks the transport closed. Pending and future calls fail fast; the
// read loop exits when the worker's stdout closes.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Conn) markStale(id string) {
	c.staleMu.Lock()
	c.stale[id] = struct{}{}
	c.staleMu.Unlock()
}

func (c *Conn) isStale(id string) bool {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	if _, ok := c.stale[id]; ok {
		delete(c.stale, id)
		return true
	}
	return false
}
