package rpc

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Version is the only accepted value of the jsonrpc member.
const Version = "2.0"

// NotificationPrefix marks methods that never receive a response body.
const NotificationPrefix = "notifications/"

// nullID is the wire form of a null request id.
var nullID = json.RawMessage("null")

// Request is a parsed JSON-RPC request envelope.
type Request struct {
	// ID is the request id exactly as it appeared on the wire. A missing id
	// is stored as null.
	ID json.RawMessage
	// Method is the requested method name.
	Method string
	// Params is the raw params member, nil when absent.
	Params json.RawMessage
}

// IsNotification reports whether the method belongs to the notifications/ family.
func (r *Request) IsNotification() bool {
	return strings.HasPrefix(r.Method, NotificationPrefix)
}

// Response is a JSON-RPC response envelope. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Success builds a result envelope for id.
func Success(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: result}
}

// Failure builds an error envelope for id.
func Failure(id json.RawMessage, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Error: err}
}

// ParseRequest decodes and validates a request body. On failure it returns the
// error envelope to send back instead of a request.
func ParseRequest(body []byte) (*Request, *Response) {
	if !json.Valid(body) {
		return nil, Failure(nil, NewError(CodeParseError, "Parse error", nil))
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil || members == nil {
		return nil, Failure(nil, NewError(CodeInvalidRequest, "Invalid Request: request must be a JSON object", nil))
	}

	id, idOK := classifyID(members["id"])

	var version string
	if raw, ok := members["jsonrpc"]; !ok || json.Unmarshal(raw, &version) != nil || version != Version {
		return nil, Failure(id, NewError(CodeInvalidRequest, `Invalid Request: jsonrpc must be "2.0"`, nil))
	}
	if !idOK {
		return nil, Failure(nil, NewError(CodeInvalidRequest, "Invalid Request: id must be a string, number or null", nil))
	}

	var method string
	raw, ok := members["method"]
	if !ok || !isJSONString(raw) || json.Unmarshal(raw, &method) != nil {
		return nil, Failure(id, NewError(CodeInvalidRequest, "Invalid Request: method must be a string", nil))
	}

	req := &Request{ID: id, Method: method}
	if params, ok := members["params"]; ok && !isNull(params) {
		req.Params = params
	}
	return req, nil
}

// classifyID returns the id to echo and whether it had an allowed type.
// Disallowed ids are echoed as null.
func classifyID(raw json.RawMessage) (json.RawMessage, bool) {
	if raw == nil || isNull(raw) {
		return nullID, true
	}
	switch c := raw[0]; {
	case c == '"':
		return raw, true
	case c == '-' || (c >= '0' && c <= '9'):
		return raw, true
	default:
		return nullID, false
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), nullID)
}

func isJSONString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}
