package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/service"
)

// defaultMaxBodyBytes is the default request body limit (1 MB).
const defaultMaxBodyBytes = 1 << 20

// allowedMethods is the Allow header value of the gateway endpoint.
const allowedMethods = "GET, POST, OPTIONS"

// gatewayHandler serves the JSON-RPC endpoint.
type gatewayHandler struct {
	dispatcher   *service.Dispatcher
	upstreamBase string
	// trustForwarded lets X-Forwarded-* pick the origin when upstreamBase is empty.
	trustForwarded bool
	maxBodyBytes   int64
	metrics        *Metrics
}

func (h *gatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w)
	case http.MethodOptions:
		handleOptions(w)
	default:
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost decodes one JSON-RPC envelope and writes the dispatcher's answer.
func (h *gatewayHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFromContext(r.Context())

	// Content-Type is not checked: the body alone decides between a parsed
	// request and -32700.
	// Apply payload size limit before reading body
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeEarlyError(w, "Parse error: request body too large")
			return
		}
		h.writeEarlyError(w, "Parse error: failed to read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		h.writeEarlyError(w, "Parse error: empty request body")
		return
	}

	call := rpc.CallContext{
		AuthHeader: r.Header.Get("Authorization"),
		BaseOrigin: h.upstreamBase,
	}
	if call.BaseOrigin == "" {
		call.BaseOrigin = requestOrigin(r, h.trustForwarded)
	}

	out := h.dispatcher.Dispatch(r.Context(), call, body)
	h.metrics.ObserveDispatch(out)

	if out.Response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if out.Tool != "" {
		logger.Debug("tool call handled",
			"tool", out.Tool,
			"outcome", out.Label(),
			"duration", out.ToolDuration,
			"client_ip", ClientIPFromContext(r.Context()),
		)
	}
	writeJSON(w, http.StatusOK, out.Response)
}

// handleGet returns the static server description.
func (h *gatewayHandler) handleGet(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.dispatcher.Describe())
}

// handleOptions answers non-CORS OPTIONS requests. Real preflights are
// answered by CORSMiddleware before reaching here.
func handleOptions(w http.ResponseWriter) {
	w.Header().Set("Allow", allowedMethods)
	w.WriteHeader(http.StatusNoContent)
}

// writeEarlyError writes a -32700 envelope for failures before dispatch.
func (h *gatewayHandler) writeEarlyError(w http.ResponseWriter, message string) {
	resp := rpc.Failure(nil, rpc.NewError(rpc.CodeParseError, message, nil))
	h.metrics.ObserveDispatch(service.Outcome{Response: resp})
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":"Internal error"}}`, rpc.CodeToolFailed))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
