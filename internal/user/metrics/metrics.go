package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	IntegrityFaults    prometheus.Counter
	CompensationsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_user_operations_total",
			Help: "Total user operations by operation and outcome",
		}, []string{"op", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veil_user_operation_duration_seconds",
			Help:    "Duration of user operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		IntegrityFaults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_user_integrity_faults_total",
			Help: "Detected cross-store integrity faults requiring repair",
		}),
		CompensationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_user_saga_compensations_total",
			Help: "Compensating actions executed after a saga step failure",
		}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
