// Package observability holds the Prometheus collectors shared by the
// indexing, storage and HTTP layers.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	documentsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoshape_documents_indexed_total",
			Help: "Documents indexed per field by outcome.",
		},
		[]string{"field", "outcome"},
	)

	indexEntries = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoshape_index_entries",
			Help:    "Index entries produced per document value.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"field", "kind"},
	)

	indexDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoshape_index_duration_seconds",
			Help:    "Time spent turning one document value into entries.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"field"},
	)

	searchCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoshape_search_candidates",
			Help:    "Cell candidates read before exact re-verification.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"field"},
	)

	searchHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoshape_search_hits_total",
			Help: "Candidates that passed exact re-verification.",
		},
		[]string{"field"},
	)

	storeOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "outcome"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	collectors = []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		documentsIndexed,
		indexEntries,
		indexDurationSeconds,
		searchCandidates,
		searchHits,
		storeOpDurationSeconds,
		kafkaConsumerErrors,
	}
)

// Init registers the collectors on reg. Registering twice on the same
// registry is a no-op.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveIndex records one indexed document value. err == nil counts as
// "ok"; cells and geoms are only observed on success.
func ObserveIndex(field string, cells, geoms int, err error, durationSeconds float64) {
	if err != nil {
		documentsIndexed.WithLabelValues(field, "error").Inc()
		return
	}
	documentsIndexed.WithLabelValues(field, "ok").Inc()
	indexEntries.WithLabelValues(field, "cell").Observe(float64(cells))
	indexEntries.WithLabelValues(field, "geometry").Observe(float64(geoms))
	indexDurationSeconds.WithLabelValues(field).Observe(durationSeconds)
}

func ObserveSearch(field string, candidates, hits int) {
	searchCandidates.WithLabelValues(field).Observe(float64(candidates))
	searchHits.WithLabelValues(field).Add(float64(hits))
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOpDurationSeconds.WithLabelValues(op, outcome).Observe(durationSeconds)
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}
