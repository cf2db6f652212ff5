package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magdash_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "magdash_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	nightCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magdash_night_cache_lookups_total",
			Help: "Night window cache lookups by result.",
		},
		[]string{"result"},
	)

	ingestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magdash_ingestions_total",
			Help: "Ingestion attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	rejectedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magdash_ingestion_rejected_rows_total",
			Help: "Rows dropped during ingestion because they could not be parsed.",
		},
		[]string{"source"},
	)

	refreshDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "magdash_refresh_duration_seconds",
			Help:    "Duration of current-position refreshes.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	refreshErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "magdash_refresh_errors_total",
			Help: "Current-position refreshes that kept the previous values.",
		},
	)

	tableRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "magdash_table_rows",
			Help: "Number of targets in the current table.",
		},
	)

	visibleRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "magdash_visible_rows",
			Help: "Number of targets passing the visibility mask.",
		},
	)

	streamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "magdash_stream_connections",
			Help: "Open SSE connections.",
		},
	)

	streamRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "magdash_stream_rejected_total",
			Help: "SSE connections refused by the per-client limit.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		nightCacheLookups,
		ingestionsTotal,
		rejectedRowsTotal,
		refreshDurationSeconds,
		refreshErrorsTotal,
		tableRows,
		visibleRows,
		streamConnections,
		streamRejectedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncNightCacheHits()   { nightCacheLookups.WithLabelValues("hit").Inc() }
func IncNightCacheMisses() { nightCacheLookups.WithLabelValues("miss").Inc() }

// ObserveIngestion records one ingestion attempt. outcome is "ok" or "failed".
func ObserveIngestion(source, outcome string, rejected int) {
	ingestionsTotal.WithLabelValues(source, outcome).Inc()
	if rejected > 0 {
		rejectedRowsTotal.WithLabelValues(source).Add(float64(rejected))
	}
}

func ObserveRefresh(d time.Duration) { refreshDurationSeconds.Observe(d.Seconds()) }
func IncRefreshErrors()              { refreshErrorsTotal.Inc() }

// SetTableSize publishes the table and mask cardinalities.
func SetTableSize(rows, visible int) {
	tableRows.Set(float64(rows))
	visibleRows.Set(float64(visible))
}

func IncStreamConnections() { streamConnections.Inc() }
func DecStreamConnections() { streamConnections.Dec() }
func IncStreamRejected()    { streamRejectedTotal.Inc() }

// knownRoutes are recorded under their own path label.
var knownRoutes = map[string]bool{
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/view":           true,
	"/api/v1/skymap":         true,
	"/api/v1/ingest/catalog": true,
	"/api/v1/ingest/remote":  true,
	"/api/v1/selection":      true,
	"/api/v1/reset":          true,
	"/api/v1/date":           true,
	"/api/v1/stream":         true,
}

// paramPrefixes collapse parameterized routes to one label each.
var paramPrefixes = []struct {
	prefix string
	label  string
}{
	{"/api/v1/ingest/queue/", "/api/v1/ingest/queue/{queue}"},
	{"/api/v1/filters/", "/api/v1/filters/{name}"},
	{"/api/v1/telescope/", "/api/v1/telescope/{tel}"},
}

// normalizeRoute maps a request path to a bounded set of metric labels so
// that client-supplied path segments cannot explode label cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	for _, p := range paramPrefixes {
		rest, ok := strings.CutPrefix(path, p.prefix)
		if ok && rest != "" && !strings.Contains(rest, "/") {
			return p.label
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush forwards to the underlying writer so SSE responses stream through
// the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
