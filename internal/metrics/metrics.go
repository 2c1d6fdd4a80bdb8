package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ts_feed_collections_total",
			Help: "Feed collection cycles by outcome",
		},
		[]string{"feed", "status"},
	)

	ThreatsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ts_threats_collected_total",
			Help: "Threats upserted per feed",
		},
		[]string{"feed"},
	)

	ExtractionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ts_extraction_fallbacks_total",
			Help: "Degradations to the rule-based extractor by failure kind",
		},
		[]string{"kind"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ts_extraction_duration_seconds",
			Help:    "Extraction call latency by strategy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RiskCalculations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ts_risk_calculations_total",
			Help: "Risk assessment computations",
		},
	)
)
