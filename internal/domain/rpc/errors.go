// Package rpc holds the JSON-RPC 2.0 envelope types spoken by the gateway endpoint.
package rpc

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// JSON-RPC error codes used by the gateway.
const (
	// CodeParseError indicates the body was not valid JSON.
	CodeParseError = -32700

	// CodeInvalidRequest indicates valid JSON that is not a request object.
	CodeInvalidRequest = -32600

	// CodeMethodNotFound indicates an unsupported method.
	CodeMethodNotFound = -32601

	// CodeInvalidParams indicates bad params, an unknown tool or bad tool arguments.
	CodeInvalidParams = -32602

	// CodeToolFailed indicates a tool handler ran and failed.
	CodeToolFailed = -32000

	// CodeUnauthorized indicates the bearer credential was missing or rejected.
	CodeUnauthorized = -32001
)

// Error is the wire form of a JSON-RPC error object.
type Error = jsonrpc.Error

// NewError builds an error object. data is marshalled into the optional data
// member; a nil data leaves it out.
func NewError(code int, message string, data any) *Error {
	e := &Error{Code: int64(code), Message: message}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	return e
}
