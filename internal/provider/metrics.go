package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/cloudbroker/internal/cloud"
)

const outcomeSuccess = "success"

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudbroker",
			Subsystem: "provider",
			Name:      "operations_total",
			Help:      "Total number of provider operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudbroker",
			Subsystem: "provider",
			Name:      "operation_duration_seconds",
			Help:      "Duration of provider operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"operation"},
	)
)

// RegisterMetrics registers the provider collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{operationsTotal, operationDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observe records an operation outcome: "success" or the domain error kind.
func observe(op string, err error, elapsed time.Duration) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = cloud.KindOf(err).String()
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
	operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
