package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medscan_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	uploadSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service"},
	)

	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medscan_predictions_total",
			Help: "Total number of predictions by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	predictionConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medscan_prediction_confidence",
			Help:    "Confidence reported for successful predictions",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"service"},
	)

	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medscan_inference_duration_seconds",
			Help:    "Model forward pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	modelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medscan_model_loads_total",
			Help: "Model load attempts by model and result",
		},
		[]string{"model", "result"},
	)
)

// Prediction outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeBadInput    = "bad_input"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordUpload records the size of an uploaded image.
func RecordUpload(service string, size int) {
	uploadSize.WithLabelValues(service).Observe(float64(size))
}

// RecordPrediction records the outcome of a prediction request.
func RecordPrediction(service, outcome string) {
	predictionsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordConfidence records the confidence of a successful prediction.
func RecordConfidence(service string, confidence float64) {
	predictionConfidence.WithLabelValues(service).Observe(confidence)
}

// RecordInference records how long a forward pass took.
func RecordInference(service string, d time.Duration) {
	inferenceDuration.WithLabelValues(service).Observe(d.Seconds())
}

// RecordModelLoad records one model load attempt.
func RecordModelLoad(model string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	modelLoads.WithLabelValues(model, result).Inc()
}
