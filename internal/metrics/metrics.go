package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	refreshTotal        *prometheus.CounterVec
	refreshDuration     prometheus.Histogram
	pingsTotal          *prometheus.CounterVec
	mutationsTotal      *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP, refresh and mutation
// metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topomap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by engine-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "topomap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by engine-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topomap",
		Name:      "refresh_runs_total",
		Help:      "Canonical refresh attempts against the upstream store",
	}, []string{"outcome"})

	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topomap",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of canonical refreshes, trigger through replace",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	pingsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topomap",
		Name:      "single_pings_total",
		Help:      "Out-of-band single-device pings by result",
	}, []string{"result"})

	mutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topomap",
		Name:      "mutations_total",
		Help:      "Graph mutations by operation and outcome",
	}, []string{"op", "outcome"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		refreshTotal,
		refreshDuration,
		pingsTotal,
		mutationsTotal,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		refreshTotal:        refreshTotal,
		refreshDuration:     refreshDuration,
		pingsTotal:          pingsTotal,
		mutationsTotal:      mutationsTotal,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveRefresh records one canonical refresh attempt.
func (m *Metrics) ObserveRefresh(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.refreshTotal.With(prometheus.Labels{"outcome": outcome}).Inc()
	if err == nil {
		m.refreshDuration.Observe(duration.Seconds())
	}
}

// IncPing records a single-device ping result: "reachable", "unreachable"
// or "error".
func (m *Metrics) IncPing(result string) {
	if m == nil {
		return
	}
	m.pingsTotal.With(prometheus.Labels{"result": result}).Inc()
}

// IncMutation records a mutation attempt. Outcome is one of "confirmed",
// "rolled_back" or "rejected".
func (m *Metrics) IncMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutationsTotal.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
