package outlinemgr

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wkalt/outline/division"
)

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	promotions prometheus.Counter
	cache      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outline_operations_total",
			Help: "Outline mutations by operation and result",
		}, []string{"operation", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outline_operation_duration_seconds",
			Help:    "Outline mutation latency in seconds, including the transaction",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"operation"}),
		promotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "outline_rebuild_promotions_total",
			Help: "Divisions detached into roots by rebuilds",
		}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outline_listing_cache_requests_total",
			Help: "Book listing cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *metrics) observe(op string, start time.Time, err error) {
	m.operations.WithLabelValues(op, result(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, division.NodeNotFoundError{}), errors.Is(err, division.AnchorNotFoundError{}):
		return "not_found"
	case errors.Is(err, division.CycleDetectedError{}), errors.Is(err, division.CrossGroupMoveError{}):
		return "conflict"
	case errors.Is(err, division.InvalidArgumentError{}):
		return "invalid"
	case errors.Is(err, division.InvariantViolationError{}):
		return "invariant_violation"
	default:
		return "error"
	}
}
