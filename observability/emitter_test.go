package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"grainlify/core/events"
	"grainlify/core/types"
)

type stubEvent struct {
	evt *types.Event
}

func (s stubEvent) EventType() string { return s.evt.Type }

type recordingEmitter struct {
	seen []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.seen = append(r.seen, evt)
}

func TestMetricsEmitterCountsAndForwards(t *testing.T) {
	downstream := &recordingEmitter{}
	emitter := NewMetricsEmitter(downstream)

	evt := stubEvent{evt: &types.Event{Type: "escrow.funds_locked"}}
	before := testutil.ToFloat64(emittedEventCounter().WithLabelValues("escrow.funds_locked"))
	emitter.Emit(evt)
	emitter.Emit(evt)
	after := testutil.ToFloat64(emittedEventCounter().WithLabelValues("escrow.funds_locked"))

	if after-before != 2 {
		t.Fatalf("expected 2 counted events, got %v", after-before)
	}
	if len(downstream.seen) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(downstream.seen))
	}
}

func TestMetricsEmitterNilDownstream(t *testing.T) {
	emitter := NewMetricsEmitter(nil)
	emitter.Emit(stubEvent{evt: &types.Event{Type: "program.payout"}})
}
