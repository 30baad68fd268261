// Package metrics exposes Prometheus collectors for the sync pipeline and the
// serving process.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	objectsDownloadedTotal     *prometheus.CounterVec
	downloadAttemptsTotal      prometheus.Counter
	iconsProcessedTotal        *prometheus.CounterVec
	collectionsTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	initTotal                  *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		objectsDownloadedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iconsync_objects_downloaded_total",
				Help: "Objects downloaded, labeled by collection and final status.",
			},
			[]string{"collection", "status"},
		)

		downloadAttemptsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "iconsync_download_attempts_total",
				Help: "Individual download attempts, including retries.",
			},
		)

		iconsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iconsync_icons_processed_total",
				Help: "Icons run through normalization, labeled by collection and status.",
			},
			[]string{"collection", "status"},
		)

		collectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iconsync_collections_total",
				Help: "Collections processed, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iconsync_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iconsync_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		initTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iconsync_init_total",
				Help: "Serving-process initializations, labeled by mode.",
			},
			[]string{"mode"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDownload records the final outcome of one object.
func ObserveDownload(collection string, ok bool) {
	Init()
	objectsDownloadedTotal.WithLabelValues(collection, status(ok)).Inc()
}

// ObserveDownloadAttempt counts one attempt.
func ObserveDownloadAttempt() {
	Init()
	downloadAttemptsTotal.Inc()
}

// ObserveIcon records the outcome of normalizing one icon.
func ObserveIcon(collection string, ok bool) {
	Init()
	iconsProcessedTotal.WithLabelValues(collection, status(ok)).Inc()
}

// ObserveCollection records a collection-level outcome.
func ObserveCollection(ok bool) {
	Init()
	collectionsTotal.WithLabelValues(status(ok)).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveInit counts one initializer run in the given mode.
func ObserveInit(mode string) {
	Init()
	initTotal.WithLabelValues(mode).Inc()
}

func status(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}
