package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation and retrieval Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nidhi",
			Name:      "generation_requests_total",
			Help:      "Total number of generation backend requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nidhi",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation backend request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	FallbackResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nidhi",
			Name:      "fallback_responses_total",
			Help:      "Degraded responses served without the generation backend",
		},
		[]string{"reason"},
	)

	RetrievalChunksReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nidhi",
			Name:      "retrieval_chunks_returned",
			Help:      "Number of chunks assembled into context per query",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(FallbackResponsesTotal)
	prometheus.MustRegister(RetrievalChunksReturned)
	genMetricsRegistered = true
}
