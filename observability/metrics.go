package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type custodyMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	throttles  *prometheus.CounterVec
}

var (
	custodyMetricsOnce sync.Once
	custodyRegistry    *custodyMetrics
)

// CustodyMetrics returns the lazily-initialised metrics registry used to
// record custody engine activity.
func CustodyMetrics() *custodyMetrics {
	custodyMetricsOnce.Do(func() {
		custodyRegistry = &custodyMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "grainlify",
				Subsystem: "custody",
				Name:      "operations_total",
				Help:      "Total custody operations segmented by module and operation.",
			}, []string{"module", "op", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "grainlify",
				Subsystem: "custody",
				Name:      "errors_total",
				Help:      "Total custody operation failures segmented by module, operation, and reason.",
			}, []string{"module", "op", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "grainlify",
				Subsystem: "custody",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for custody engine entry points.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "op"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "grainlify",
				Subsystem: "custody",
				Name:      "throttles_total",
				Help:      "Count of custody operations rejected by the rate limiter.",
			}, []string{"module"}),
		}
		prometheus.MustRegister(
			custodyRegistry.operations,
			custodyRegistry.errors,
			custodyRegistry.latency,
			custodyRegistry.throttles,
		)
	})
	return custodyRegistry
}

// Observe records the outcome of one custody operation.
func (m *custodyMetrics) Observe(module, op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, op, err.Error()).Inc()
	}
	m.operations.WithLabelValues(module, op, outcome).Inc()
	m.latency.WithLabelValues(module, op).Observe(duration.Seconds())
}

// ObserveThrottle records one rate-limited rejection for a module.
func (m *custodyMetrics) ObserveThrottle(module string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	m.throttles.WithLabelValues(module).Inc()
}
