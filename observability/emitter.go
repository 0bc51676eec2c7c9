package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"grainlify/core/events"
)

// MetricsEmitter counts emitted engine events by type and forwards them to an
// optional downstream emitter (an indexer feed, typically). It satisfies
// events.Emitter, so the engines need no metrics awareness of their own.
type MetricsEmitter struct {
	counter *prometheus.CounterVec
	next    events.Emitter
}

var (
	eventCounterOnce sync.Once
	eventCounter     *prometheus.CounterVec
)

func emittedEventCounter() *prometheus.CounterVec {
	eventCounterOnce.Do(func() {
		eventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grainlify",
			Subsystem: "custody",
			Name:      "events_total",
			Help:      "Total engine events emitted segmented by event type.",
		}, []string{"type"})
		prometheus.MustRegister(eventCounter)
	})
	return eventCounter
}

// NewMetricsEmitter wraps next with event counting. A nil next drops events
// after counting them.
func NewMetricsEmitter(next events.Emitter) *MetricsEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &MetricsEmitter{counter: emittedEventCounter(), next: next}
}

// Emit implements events.Emitter.
func (m *MetricsEmitter) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	if eventType == "" {
		eventType = "unknown"
	}
	m.counter.WithLabelValues(eventType).Inc()
	m.next.Emit(evt)
}
