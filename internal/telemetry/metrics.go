// Package telemetry provides application-level observability for the Lexxi backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<LXI_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Trial registry search counters
//   - Trial subscription counters
//   - Inline-edit flush counters and pending-write queue depth gauge
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/trials/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as trial IDs.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening, or use an exported var directly:
//
//	telemetry.TrialSearchesTotal.WithLabelValues("matched").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics: labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/trials/:id/publications),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Trial registry metrics: recorded by the search and subscription handlers.
//
// TrialSearchesTotal is a CounterVec with label {outcome}.  Outcome is "matched"
// when the facet gate was satisfied and a registry query ran, or "gated" when the
// request lacked a courthouse facet or a non-empty query and returned the empty
// result without touching the database.
//
// Example PromQL queries:
//   - Search rate:            rate(trial_searches_total[5m])
//   - Gated fraction (%):     sum(rate(trial_searches_total{outcome="gated"}[1h])) / sum(rate(trial_searches_total[1h])) * 100
//
// TrialSubscriptionsTotal is a CounterVec with label {result} ("created" or
// "duplicate").  Duplicates are requests for trials the team already follows;
// they succeed without inserting a second row.
var (
	TrialSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trial_searches_total",
			Help: "Total number of trial registry search requests, by outcome (matched or gated).",
		},
		[]string{"outcome"},
	)

	TrialSubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trial_subscriptions_total",
			Help: "Total number of trial subscription requests, by result (created or duplicate).",
		},
		[]string{"result"},
	)
)

// Inline-edit flusher metrics: recorded by the edit flusher service.
//
// EditFlushesTotal is a CounterVec with labels {field, status}.  Status is "ok"
// when the coalesced UPDATE succeeded or "error" when it failed and the pending
// value was retained for the caller to observe.
//
// Example PromQL queries:
//   - Flush error rate:       rate(edit_flushes_total{status="error"}[5m])
//   - Hot fields:             topk(5, sum by (field) (rate(edit_flushes_total[1h])))
//
// EditQueueDepth is a Gauge holding the number of field writes currently waiting
// out their debounce window.  A persistently high value means edits arrive faster
// than the debounce interval can drain them.
var (
	EditFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edit_flushes_total",
			Help: "Total number of coalesced inline-edit writes flushed to the database, by field and status.",
		},
		[]string{"field", "status"},
	)

	EditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edit_queue_depth",
			Help: "Number of inline-edit field writes currently pending in their debounce window.",
		},
	)
)

// PublicationDocumentDownloadsTotal is a plain Counter (no labels) incremented
// once per publication document successfully streamed from storage.
var PublicationDocumentDownloadsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "publication_document_downloads_total",
		Help: "Total number of publication documents successfully served from storage.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <LXI_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
