package http

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cashcat/cashcat-gateway/internal/service"
)

const metricsNamespace = "cashcat_gateway"

// Metrics holds all Prometheus metrics for the gateway.
// A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInFlight   prometheus.Gauge
	RPCRequestsTotal   *prometheus.CounterVec
	ToolCallsTotal     *prometheus.CounterVec
	ToolCallDuration   *prometheus.HistogramVec
	UpstreamPagesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RequestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served",
			},
		),
		RPCRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rpc_requests_total",
				Help:      "Total JSON-RPC requests by method and outcome",
			},
			[]string{"rpc_method", "outcome"}, // outcome=ok or the error code
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tool_calls_total",
				Help:      "Total tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolCallDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool handler duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		UpstreamPagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "upstream_pages_total",
				Help:      "Total cashcat API page requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
	}
}

// ObserveDispatch records the JSON-RPC and tool metrics of one outcome.
func (m *Metrics) ObserveDispatch(o service.Outcome) {
	if m == nil {
		return
	}
	label := o.Label()
	m.RPCRequestsTotal.WithLabelValues(rpcMethodLabel(o.Method), label).Inc()
	if o.Tool != "" {
		m.ToolCallsTotal.WithLabelValues(o.Tool, label).Inc()
		if o.ToolDuration > 0 {
			m.ToolCallDuration.WithLabelValues(o.Tool).Observe(o.ToolDuration.Seconds())
		}
	}
}

// rpcMethodLabel maps a caller-supplied method onto a fixed label set.
func rpcMethodLabel(method string) string {
	switch {
	case method == "":
		return "invalid"
	case method == service.MethodInitialize, method == service.MethodPing,
		method == service.MethodToolsList, method == service.MethodToolsCall:
		return method
	case strings.HasPrefix(method, "notifications/"):
		return "notifications"
	default:
		return "unknown"
	}
}

// ObservePage records one upstream page request. It matches the cashcat
// client observer signature.
func (m *Metrics) ObservePage(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamPagesTotal.WithLabelValues(endpoint, outcome).Inc()
}
