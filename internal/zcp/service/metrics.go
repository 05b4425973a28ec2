package service

import "github.com/prometheus/client_golang/prometheus"

var (
	gateOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zcp",
			Subsystem: "gate",
			Name:      "operations_total",
			Help:      "Total number of operations dispatched through the auth gate by result",
		},
		[]string{"resource", "op", "result"},
	)

	gateOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zcp",
			Subsystem: "gate",
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations including lock wait and authentication",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"resource", "op"},
	)

	transferSessionsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zcp",
			Subsystem: "transfer",
			Name:      "sessions_reaped_total",
			Help:      "Total number of stale transfer sessions removed by the sweeper",
		},
	)
)

func init() {
	prometheus.MustRegister(
		gateOperationsTotal,
		gateOperationDuration,
		transferSessionsReaped,
	)
}
