package rpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int64
		wantID   string
	}{
		{name: "malformed json", body: `{"jsonrpc":`, wantCode: CodeParseError, wantID: "null"},
		{name: "trailing garbage", body: `{"jsonrpc":"2.0"} x`, wantCode: CodeParseError, wantID: "null"},
		{name: "array body", body: `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, wantCode: CodeInvalidRequest, wantID: "null"},
		{name: "string body", body: `"ping"`, wantCode: CodeInvalidRequest, wantID: "null"},
		{name: "null body", body: `null`, wantCode: CodeInvalidRequest, wantID: "null"},
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":7,"method":"ping"}`, wantCode: CodeInvalidRequest, wantID: "7"},
		{name: "missing version", body: `{"id":"a","method":"ping"}`, wantCode: CodeInvalidRequest, wantID: `"a"`},
		{name: "numeric version", body: `{"jsonrpc":2.0,"id":1,"method":"ping"}`, wantCode: CodeInvalidRequest, wantID: "1"},
		{name: "method not string", body: `{"jsonrpc":"2.0","id":"x","method":42}`, wantCode: CodeInvalidRequest, wantID: `"x"`},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":3}`, wantCode: CodeInvalidRequest, wantID: "3"},
		{name: "object id", body: `{"jsonrpc":"2.0","id":{"a":1},"method":"ping"}`, wantCode: CodeInvalidRequest, wantID: "null"},
		{name: "bool id", body: `{"jsonrpc":"2.0","id":true,"method":"ping"}`, wantCode: CodeInvalidRequest, wantID: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, resp := ParseRequest([]byte(tt.body))
			if req != nil {
				t.Fatalf("ParseRequest() returned request %+v, want error", req)
			}
			if resp.Error == nil {
				t.Fatal("response has no error")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
			if string(resp.ID) != tt.wantID {
				t.Errorf("id = %s, want %s", resp.ID, tt.wantID)
			}
		})
	}
}

func TestParseRequest_IDEcho(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{name: "string id", body: `{"jsonrpc":"2.0","id":"req-1","method":"ping"}`, wantID: `"req-1"`},
		{name: "integer id", body: `{"jsonrpc":"2.0","id":12,"method":"ping"}`, wantID: "12"},
		{name: "fractional id kept verbatim", body: `{"jsonrpc":"2.0","id":1.50,"method":"ping"}`, wantID: "1.50"},
		{name: "negative id", body: `{"jsonrpc":"2.0","id":-4,"method":"ping"}`, wantID: "-4"},
		{name: "explicit null id", body: `{"jsonrpc":"2.0","id":null,"method":"ping"}`, wantID: "null"},
		{name: "missing id", body: `{"jsonrpc":"2.0","method":"ping"}`, wantID: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, resp := ParseRequest([]byte(tt.body))
			if resp != nil {
				t.Fatalf("ParseRequest() error = %+v", resp.Error)
			}
			if string(req.ID) != tt.wantID {
				t.Errorf("ID = %s, want %s", req.ID, tt.wantID)
			}
			if req.Method != "ping" {
				t.Errorf("Method = %q, want ping", req.Method)
			}
		})
	}
}

func TestParseRequest_Params(t *testing.T) {
	req, resp := ParseRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"x"}}`))
	if resp != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(req.Params) != `{"name":"x"}` {
		t.Errorf("Params = %s", req.Params)
	}

	req, _ = ParseRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping","params":null}`))
	if req.Params != nil {
		t.Errorf("null params should be dropped, got %s", req.Params)
	}
}

func TestRequest_IsNotification(t *testing.T) {
	for method, want := range map[string]bool{
		"notifications/initialized": true,
		"notifications/cancelled":   true,
		"tools/call":                false,
		"notification":              false,
	} {
		r := &Request{Method: method}
		if got := r.IsNotification(); got != want {
			t.Errorf("IsNotification(%q) = %v, want %v", method, got, want)
		}
	}
}

func TestResponse_Marshal(t *testing.T) {
	out, err := json.Marshal(Failure(nil, NewError(CodeUnauthorized, "Unauthorized", map[string]string{"reason": "expired"})))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(out)
	for _, want := range []string{`"jsonrpc":"2.0"`, `"id":null`, `"code":-32001`, `"data":{"reason":"expired"}`} {
		if !strings.Contains(got, want) {
			t.Errorf("response %s missing %s", got, want)
		}
	}
	if strings.Contains(got, `"result"`) {
		t.Errorf("error response must not carry result: %s", got)
	}

	out, _ = json.Marshal(Success(json.RawMessage(`"a"`), map[string]bool{"ok": true}))
	if string(out) != `{"jsonrpc":"2.0","id":"a","result":{"ok":true}}` {
		t.Errorf("success response = %s", out)
	}
}
