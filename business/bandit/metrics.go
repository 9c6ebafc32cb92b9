package bandit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BanditFeedbackEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_feedback_events_total",
			Help: "Count of bandit updates by source, action, and result.",
		},
		[]string{"source", "action", "result"},
	)

	BanditRankedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bandit_ranked_candidates",
			Help:    "Number of candidates surviving filters per recommendation.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	BanditStoreBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bandit_store_breaker_state",
			Help: "Circuit breaker state of the arm store (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(BanditFeedbackEventsTotal, BanditRankedCandidates, BanditStoreBreakerState)
}
