package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nciso_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)
	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nciso_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	toolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nciso_tool_calls_total",
			Help: "Tool executions by tool and status.",
		},
		[]string{"tool", "status"},
	)
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nciso_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"store"},
	)
)

// ObserveHTTP records one HTTP request.
func ObserveHTTP(route, method string, status int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// CountToolCall increments the tool execution counter.
func CountToolCall(tool, status string) {
	toolCalls.WithLabelValues(tool, status).Inc()
}

// CountRateLimitHit increments the rejection counter for a limiter backend.
func CountRateLimitHit(store string) {
	rateLimitHits.WithLabelValues(store).Inc()
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
