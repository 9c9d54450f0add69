package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by all handlers.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready to serve traffic.",
	})
)

// Domain metrics for the posture pipeline and login flow.
var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Federated login attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	samplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posture_samples_total",
		Help: "Posture samples evaluated against a baseline.",
	})

	violationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posture_violations_total",
		Help: "Posture samples classified as violations.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
		loginsTotal, samplesTotal, violationsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// CountLogin records a login attempt outcome ("success", "rejected", "unavailable", "error").
func CountLogin(provider, outcome string) {
	loginsTotal.WithLabelValues(provider, outcome).Inc()
}

// CountSample records an evaluated sample and, when flagged, a violation.
func CountSample(violation bool) {
	samplesTotal.Inc()
	if violation {
		violationsTotal.Inc()
	}
}

// CanonicalPath normalizes a request path for use as a metric label:
// query strings are dropped and trailing slashes trimmed so that label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
