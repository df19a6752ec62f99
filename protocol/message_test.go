package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRequest_GeneratesDistinctIDs(t *testing.T) {
	a := NewRequest(MethodPing, nil)
	b := NewRequest(MethodPing, nil)

	if a.ID == "" || b.ID == "" {
		t.Fatal("requests must carry correlation ids")
	}
	if a.ID == b.ID {
		t.Error("correlation ids must be distinguishable per call")
	}
	if a.JSONRPC != Version {
		t.Errorf("expected jsonrpc %s, got %s", Version, a.JSONRPC)
	}
}

func TestNewNotification_HasNoID(t *testing.T) {
	n := NewNotification(MethodShutdown, nil)
	if n.ID != "" {
		t.Errorf("notifications must not carry an id, got %q", n.ID)
	}

	data, err := n.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), `"id"`) {
		t.Errorf("id field should be omitted on the wire: %s", data)
	}
}

func TestRequest_MarshalRoundTrip(t *testing.T) {
	req := NewRequest("ticket.search", map[string]any{"project": "OPS", "limit": float64(50)})

	data, err := req.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Method != "ticket.search" {
		t.Errorf("expected ticket.search, got %s", decoded.Method)
	}
	if decoded.Params["project"] != "OPS" {
		t.Errorf("params not preserved: %v", decoded.Params)
	}
	if decoded.ID != req.ID {
		t.Errorf("id not preserved: %s != %s", decoded.ID, req.ID)
	}
}

func TestParseResponse_Result(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","result":{"total":3},"id":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != "abc" {
		t.Errorf("expected id abc, got %s", resp.ID)
	}
	if string(resp.Result) != `{"total":3}` {
		t.Errorf("result not preserved byte-for-byte: %s", resp.Result)
	}
}

func TestParseResponse_NullResult(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","result":null,"id":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Errorf("null result is a valid success, got %v", err)
	}
}

func TestParseResponse_Error(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","error":{"code":-32601,"message":"no such method"},"id":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("expected %d, got %d", CodeMethodNotFound, resp.Error.Code)
	}
}

func TestParseResponse_NotJSON(t *testing.T) {
	if _, err := ParseResponse([]byte("worker crashed: stack trace follows")); err == nil {
		t.Error("expected error for non-JSON line")
	}
}

func TestResponse_ValidateRejectsBothAndNeither(t *testing.T) {
	both := &Response{
		JSONRPC: Version,
		Result:  json.RawMessage(`{}`),
		Error:   &RPCError{Code: CodeInternalError, Message: "boom"},
		ID:      "x",
	}
	if err := both.Validate(); err == nil {
		t.Error("response with both result and error must be invalid")
	}

	neither := &Response{JSONRPC: Version, ID: "x"}
	if err := neither.Validate(); err == nil {
		t.Error("response with neither result nor error must be invalid")
	}
}

func TestRPCError_IsAuthError(t *testing.T) {
	if !(&RPCError{Code: CodeUnauthorized}).IsAuthError() {
		t.Error("unauthorized code should classify as auth error")
	}
	if !(&RPCError{Code: CodeTokenExpired}).IsAuthError() {
		t.Error("token-expired code should classify as auth error")
	}
	if (&RPCError{Code: CodeInternalError}).IsAuthError() {
		t.Error("internal error should not classify as auth error")
	}
}
