// Package metrics provides Prometheus metrics for the Lockspace
// daemon. Labels carry route names, operation names, and outcomes;
// never identifiers, names, or sizes of individual entities.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockspace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lockspace_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Unlock metrics
	unlockAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockspace_unlock_attempts_total",
			Help: "Total workspace and folder unlock attempts",
		},
		[]string{"level", "outcome"},
	)

	// Content transfer metrics
	contentBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockspace_content_bytes_uploaded_total",
			Help: "Total plaintext bytes accepted for upload",
		},
	)

	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockspace_content_bytes_downloaded_total",
			Help: "Total plaintext bytes served by download",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockspace_uploads_total",
			Help: "Total file uploads",
		},
		[]string{"status"},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockspace_downloads_total",
			Help: "Total file downloads",
		},
		[]string{"status"},
	)

	// Store metrics
	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lockspace_store_query_duration_seconds",
			Help:    "Store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// Quota metrics
	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockspace_rate_limit_hits_total",
			Help: "Total rate limit rejections (429s)",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUnlockAttempt records a workspace or folder unlock attempt.
func RecordUnlockAttempt(level string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	unlockAttemptsTotal.WithLabelValues(level, outcome).Inc()
}

// RecordUpload records a file upload.
func RecordUpload(bytes int64, success bool) {
	contentBytesUploaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
}

// RecordDownload records a file download.
func RecordDownload(bytes int64, success bool) {
	contentBytesDownloaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	downloadsTotal.WithLabelValues(status).Inc()
}

// RecordStoreQuery records a store query duration.
func RecordStoreQuery(query string, duration time.Duration) {
	storeQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}
