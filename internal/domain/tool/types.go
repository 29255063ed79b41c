// Package tool contains the tool catalogue: definitions, input schemas and the
// registry that maps tool names to handlers.
package tool

import (
	"context"
	"encoding/json"

	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
)

// Definition is one entry of the tools/list catalogue.
type Definition struct {
	// Name is the unique identifier of the tool.
	Name string `json:"name"`

	// Title is an optional display name.
	Title string `json:"title,omitempty"`

	// Description tells the calling agent what the tool does.
	Description string `json:"description"`

	// InputSchema describes the accepted arguments.
	InputSchema Schema `json:"inputSchema"`

	// Annotations carries behavioural hints for the caller.
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Annotations are optional hints about tool behaviour.
type Annotations struct {
	ReadOnlyHint   bool `json:"readOnlyHint"`
	IdempotentHint bool `json:"idempotentHint"`
	OpenWorldHint  bool `json:"openWorldHint"`
}

// Handler runs a tool. args have already been validated against the tool's
// schema with defaults applied. The returned value becomes the structured
// content of the tool result and must marshal to a JSON object.
type Handler func(ctx context.Context, call rpc.CallContext, args Args) (any, error)

// Entry pairs a definition with the handler that serves it.
type Entry struct {
	Definition Definition
	Handler    Handler
}

// Args holds validated tool arguments.
type Args map[string]any

// String returns the string argument name, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns the boolean argument name, or false when absent.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Int returns the integer argument name, or 0 when absent.
func (a Args) Int(name string) int {
	switch v := a[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	}
	return 0
}

// Object returns the object argument name, or nil when absent.
func (a Args) Object(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}
