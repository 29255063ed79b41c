package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

// ProtocolVersion is the protocol revision reported by initialize.
const ProtocolVersion = "2025-06-18"

// Meta-methods answered by the dispatcher.
const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// OutcomeOK labels a request that produced a result.
const OutcomeOK = "ok"

const defaultToolTimeout = 60 * time.Second

// Outcome is the result of dispatching one request body.
type Outcome struct {
	// Response is the envelope to send, nil for notifications.
	Response *rpc.Response
	// Method is the parsed method, empty when the envelope was rejected.
	Method string
	// Tool is the resolved tool name for tools/call.
	Tool string
	// ToolDuration is how long the tool handler ran.
	ToolDuration time.Duration
}

// Label returns "ok" or the JSON-RPC error code.
func (o Outcome) Label() string {
	if o.Response == nil || o.Response.Error == nil {
		return OutcomeOK
	}
	return strconv.FormatInt(o.Response.Error.Code, 10)
}

// ServerInfo identifies the gateway to callers.
type ServerInfo struct {
	Name    string
	Version string
}

// Dispatcher routes JSON-RPC requests to the meta-methods and the tool registry.
// It holds no per-request state.
type Dispatcher struct {
	registry    *tool.Registry
	gate        *auth.Gate
	info        ServerInfo
	toolTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithToolTimeout bounds every tools/call.
func WithToolTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.toolTimeout = d
		}
	}
}

// WithClock overrides the clock used for ping timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.now = now
	}
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.logger = logger
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *tool.Registry, gate *auth.Gate, info ServerInfo, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		gate:        gate,
		info:        info,
		toolTimeout: defaultToolTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one request body and always produces an outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, call rpc.CallContext, body []byte) Outcome {
	req, failure := rpc.ParseRequest(body)
	if failure != nil {
		return Outcome{Response: failure}
	}

	out := Outcome{Method: req.Method}
	switch {
	case req.IsNotification():
		return out
	case req.Method == MethodInitialize:
		out.Response = rpc.Success(req.ID, d.initializeResult())
	case req.Method == MethodPing:
		out.Response = rpc.Success(req.ID, map[string]any{
			"ok":        true,
			"timestamp": d.now().UTC().Format(timestampLayoutUTC),
		})
	case req.Method == MethodToolsList:
		out.Response = rpc.Success(req.ID, map[string]any{"tools": d.registry.Definitions()})
	case req.Method == MethodToolsCall:
		d.callTool(ctx, call, req, &out)
	default:
		out.Response = rpc.Failure(req.ID, rpc.NewError(rpc.CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil))
	}
	return out
}

func (d *Dispatcher) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": &mcp.Implementation{Name: d.info.Name, Version: d.info.Version},
	}
}

// Describe returns the static document served on GET.
func (d *Dispatcher) Describe() map[string]any {
	return map[string]any{
		"name":            d.info.Name,
		"version":         d.info.Version,
		"protocolVersion": ProtocolVersion,
		"transport":       "http",
		"tools":           d.registry.Names(),
		"usage":           "POST JSON-RPC 2.0 requests to this endpoint. tools/call requires an Authorization: Bearer header.",
	}
}

type callParams struct {
	Name      json.RawMessage `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) callTool(ctx context.Context, call rpc.CallContext, req *rpc.Request, out *Outcome) {
	fail := func(code int, message string, data any) {
		out.Response = rpc.Failure(req.ID, rpc.NewError(code, message, data))
	}

	if v := d.gate.Verify(ctx, call.AuthHeader); !v.Valid {
		d.logger.Info("tool call rejected", "reason", v.Reason)
		fail(rpc.CodeUnauthorized, "Unauthorized", map[string]string{"reason": v.Reason})
		return
	}

	var params callParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
		fail(rpc.CodeInvalidParams, "Invalid params: expected an object with a tool name", nil)
		return
	}
	var name string
	if json.Unmarshal(params.Name, &name) != nil || name == "" {
		fail(rpc.CodeInvalidParams, "Invalid params: name must be a non-empty string", nil)
		return
	}

	entry, err := d.registry.Resolve(name)
	if err != nil {
		fail(rpc.CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", name), nil)
		return
	}
	out.Tool = name

	raw, err := decodeArguments(params.Arguments)
	if err != nil {
		fail(rpc.CodeInvalidParams, "Invalid params: arguments must be an object", nil)
		return
	}
	args, err := entry.Definition.InputSchema.Validate(raw)
	if err != nil {
		fail(rpc.CodeInvalidParams, "Invalid params: "+err.Error(), argumentData(err))
		return
	}

	toolCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
	defer cancel()

	start := time.Now()
	result, err := d.runHandler(toolCtx, entry.Handler, call, args)
	out.ToolDuration = time.Since(start)
	if err != nil {
		d.logger.Warn("tool call failed", "tool", name, "error", err, "duration", out.ToolDuration)
		out.Response = rpc.Failure(req.ID, toolError(err))
		return
	}

	content, err := toolResult(result)
	if err != nil {
		fail(rpc.CodeToolFailed, "Tool execution failed", map[string]string{"reason": err.Error()})
		return
	}
	out.Response = rpc.Success(req.ID, content)
}

// runHandler invokes h, turning a panic into an error.
func (d *Dispatcher) runHandler(ctx context.Context, h tool.Handler, call rpc.CallContext, args tool.Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", "panic", r)
			err = fmt.Errorf("tool handler panicked: %v", r)
		}
	}()
	return h(ctx, call, args)
}

// decodeArguments returns the arguments object, empty when absent or null.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func argumentData(err error) any {
	var ae *tool.ArgumentError
	if errors.As(err, &ae) && ae.Field != "" {
		return map[string]string{"field": ae.Field}
	}
	return nil
}

// toolError maps a handler error to its JSON-RPC error object.
func toolError(err error) *rpc.Error {
	var ae *tool.ArgumentError
	if errors.As(err, &ae) {
		return rpc.NewError(rpc.CodeInvalidParams, "Invalid params: "+ae.Error(), argumentData(ae))
	}
	var ue *dataset.UpstreamError
	if errors.As(err, &ue) {
		data := map[string]any{"endpoint": ue.Endpoint}
		if ue.Status != 0 {
			data["status"] = ue.Status
		}
		return rpc.NewError(rpc.CodeToolFailed, ue.Error(), data)
	}
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "tool call timed out"
	}
	return rpc.NewError(rpc.CodeToolFailed, "Tool execution failed", map[string]string{"reason": reason})
}

// toolResult wraps a handler result as text plus structured content.
func toolResult(result any) (*mcp.CallToolResult, error) {
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
		StructuredContent: result,
	}, nil
}
