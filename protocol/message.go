package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Version is the JSON-RPC protocol version spoken on the wire.
const Version = "2.0"

// Well-known worker methods.
const (
	MethodInitialize = "initialize"
	MethodShutdown   = "shutdown"
	MethodPing       = "ping"
)

// Request represents a JSON-RPC 2.0 request line.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	ID      string         `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response line.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("worker error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Worker-defined error codes. The worker reports authentication problems in
// the implementation-defined server range.
const (
	CodeUnauthorized = -32001
	CodeTokenExpired = -32002
)

// IsAuthError reports whether a worker error code signals an authentication
// failure.
func (e *RPCError) IsAuthError() bool {
	return e.Code == CodeUnauthorized || e.Code == CodeTokenExpired
}

// NewRequest builds a request with a fresh correlation id. Ids are mandatory
// even though calls are single-pipelined: the transport matches each response
// against the id it sent.
func NewRequest(method string, params map[string]any) *Request {
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	}
}

// NewNotification builds a request without an id. The worker sends no
// response for it.
func NewNotification(method string, params map[string]any) *Request {
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}

// Marshal encodes the request as a single JSON line without the trailing
// newline.
func (r *Request) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseResponse decodes one response line.
func ParseResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("protocol: invalid JSON: %w", err)
	}
	return &resp, nil
}

// Validate enforces the response invariant: exactly one of result and error
// is present. A response with neither or both is protocol-invalid. A literal
// null result counts as present: workers may legitimately succeed with no
// payload.
func (r *Response) Validate() error {
	hasResult := len(r.Result) > 0
	hasError := r.Error != nil

	if hasResult && hasError {
		return fmt.Errorf("protocol: response carries both result and error")
	}
	if !hasResult && !hasError {
		return fmt.Errorf("protocol: response carries neither result nor error")
	}
	return nil
}
