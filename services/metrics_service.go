package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envis_http_request_total",
			Help: "Total RPC facade requests",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envis_http_request_duration_seconds",
			Help:    "Duration of RPC facade requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envis_http_request_errors_total",
			Help: "RPC facade requests answered with status >= 400",
		},
		[]string{"route"},
	)

	downloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envis_downloads_total",
			Help: "Download tasks by terminal status",
		},
		[]string{"status"},
	)

	downloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "envis_download_bytes_total",
			Help: "Bytes streamed by the download manager",
		},
	)

	activationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envis_activations_total",
			Help: "Environment activations by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(downloadTotal)
	prometheus.MustRegister(downloadBytes)
	prometheus.MustRegister(activationTotal)
}

// IncrementRequestCount 增加请求计数
func IncrementRequestCount(route string) {
	requestCount.WithLabelValues(route).Inc()
}

// RecordRequestDuration 记录请求处理时间
func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

// IncrementErrorCount 增加错误请求计数
func IncrementErrorCount(route string) {
	requestErrors.WithLabelValues(route).Inc()
}

func recordDownloadOutcome(status string) {
	downloadTotal.WithLabelValues(status).Inc()
}

func recordDownloadBytes(n int64) {
	downloadBytes.Add(float64(n))
}

func recordActivation(result string) {
	activationTotal.WithLabelValues(result).Inc()
}
