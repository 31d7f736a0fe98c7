package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagescan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	pageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescan_page_requests_total",
			Help: "Total number of page operations by outcome",
		},
		[]string{"operation", "status"}, // operation: detect, rectify, rotate, edges, ocr, websocket
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagescan_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	quadsDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagescan_quads_detected",
			Help:    "Number of candidate quadrilaterals per detection",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	rectifyModeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescan_rectify_mode_total",
			Help: "Rectified pages by sizing mode",
		},
		[]string{"mode"},
	)

	ocrInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescan_ocr_requests_in_flight",
			Help: "Number of OCR requests currently holding a recognizer",
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagescan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// chainObserver records stage durations and then forwards to next.
func chainObserver(next pipeline.StageObserver) pipeline.StageObserver {
	return func(stage string, d time.Duration) {
		stageDuration.WithLabelValues(stage).Observe(d.Seconds())
		if next != nil {
			next(stage, d)
		}
	}
}

func recordPage(res *pipeline.PageResult) {
	if res == nil {
		return
	}
	quadsDetected.Observe(float64(len(res.Quads)))
	if res.Rectified != nil {
		rectifyModeTotal.WithLabelValues(string(res.Rectified.Mode)).Inc()
	}
}
