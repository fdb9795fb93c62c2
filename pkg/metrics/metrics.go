package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	DocumentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "documents_ingested_total", Help: "Ingestion runs by outcome (succeeded|failed)."},
		[]string{"outcome"},
	)
	PagesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "pages_ingested_total", Help: "Pages committed by the ingestion pipeline."},
	)
	OCRFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "ocr_failures_total", Help: "Pages stored without text because recognition failed."},
	)
	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocrsearch",
			Name:      "ingest_duration_seconds",
			Help:      "Wall-clock duration of the page processing phase.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"outcome"},
	)

	SearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "search_requests_total", Help: "Search requests by the strategy that served them."},
		[]string{"strategy"},
	)
	SearchFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "search_fallbacks_total", Help: "Failed strategy attempts that fell through to the next strategy."},
		[]string{"strategy"},
	)
	SearchCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "ocrsearch", Name: "search_cache_hits_total", Help: "Search responses served from the cache."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentsIngested)
	reg.MustRegister(PagesIngested)
	reg.MustRegister(OCRFailures)
	reg.MustRegister(IngestDuration)
	reg.MustRegister(SearchRequests)
	reg.MustRegister(SearchFallbacks)
	reg.MustRegister(SearchCacheHits)
}
