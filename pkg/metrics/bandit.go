package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the bandit Recommend HTTP handler, by candidate source
	BanditRecommendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bandit_recommend_latency_seconds",
		Help:    "Latency of bandit recommendations handler",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// Total number of bandit recommendations served
	BanditRecommendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandit_recommend_requests_total",
		Help: "Total number of bandit recommend requests",
	}, []string{"source", "status"})
)

func Init() {
	prometheus.MustRegister(
		BanditRecommendLatency,
		BanditRecommendRequests,
	)
}
