package app

import "github.com/prometheus/client_golang/prometheus"

const (
	batchStatusCommitted = "committed"
	batchStatusRejected  = "rejected"
)

var (
	batchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axiom_relay",
			Subsystem: "relay",
			Name:      "batch_counter",
			Help:      "The number of submitted batches",
		},
		[]string{"status"},
	)
	opCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "axiom_relay",
			Subsystem: "relay",
			Name:      "op_counter",
			Help:      "The number of committed operations",
		},
	)
	opFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axiom_relay",
			Subsystem: "relay",
			Name:      "op_failure_counter",
			Help:      "The number of rejected batches by failure code",
		},
		[]string{"code"},
	)
	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "axiom_relay",
			Subsystem: "relay",
			Name:      "batch_duration_seconds",
			Help:      "The latency of committed batches",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	collectedCostCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "axiom_relay",
			Subsystem: "relay",
			Name:      "collected_cost_wei",
			Help:      "The total cost paid to redeemers",
		},
	)
)

func init() {
	prometheus.MustRegister(batchCounter)
	prometheus.MustRegister(opCounter)
	prometheus.MustRegister(opFailureCounter)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(collectedCostCounter)
}
