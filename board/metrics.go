package board

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rui",
			Subsystem: "board",
			Name:      "requests_total",
			Help:      "Total number of board requests by operation and result",
		},
		[]string{"operation", "result"},
	)

	proofDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rui",
		Subsystem: "board",
		Name:      "proof_duration_seconds",
		Help:      "Duration of the membership proof generation in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s ~ 25.6s
	})

	gasUsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rui",
		Subsystem: "board",
		Name:      "gas_used_total",
		Help:      "Net gas charged to the executed transactions",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, proofDuration, gasUsedTotal)
}

func observeRequest(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(operation, result).Inc()
}
