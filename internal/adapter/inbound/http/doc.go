// Package http provides the HTTP transport of the cashcat gateway.
//
// The transport serves a single JSON-RPC 2.0 endpoint. Every POST carries
// exactly one envelope and receives exactly one answer; there are no
// sessions and no server-initiated messages.
//
// # Usage
//
//	transport := http.NewHTTPTransport(dispatcher,
//	    http.WithAddr(":8080"),
//	    http.WithEndpointPath("/mcp"),
//	    http.WithUpstreamBase("https://cashcat.example"),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
//	POST /mcp     - JSON-RPC request, JSON-RPC response (202 for notifications)
//	GET /mcp      - Static server description
//	OPTIONS /mcp  - CORS preflight, or 204 with Allow
//	GET /health   - Health report
//	GET /metrics  - Prometheus metrics
//
// Other methods on the endpoint receive 405 with an Allow header.
//
// # Request Headers
//
//	Authorization: Bearer <token>   - Verified, then forwarded verbatim to cashcat
//	Content-Type: application/json  - Expected; the body is parsed whatever it says
//	X-Request-ID: <id>              - Echoed back, generated when absent
//	X-Forwarded-Proto, X-Forwarded-Host - Used to derive the cashcat origin
//	                                  when no upstream base is configured and
//	                                  server.trust_forwarded_headers is set
//
// Protocol and tool failures are reported inside the JSON-RPC envelope with
// HTTP 200. Parse failures detected before dispatch (empty or oversized
// body) are reported the same way with code -32700.
//
// # Middleware Chain
//
//  1. MetricsMiddleware - Request counters, durations, in-flight gauge
//  2. RequestIDMiddleware - Request id and enriched logger
//  3. RealIPMiddleware - Client address from proxy headers
//  4. CORSMiddleware - Preflights and CORS response headers
//  5. Handler - JSON-RPC handling via service.Dispatcher
package http
