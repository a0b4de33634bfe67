package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"monteur/internal/domain/shared/events"
)

type sampleEvent struct {
	Unit string
	At   time.Time
}

func (e sampleEvent) EventName() string     { return "ledger.entry_added" }
func (e sampleEvent) AggregateID() string   { return e.Unit }
func (e sampleEvent) OccurredAt() time.Time { return e.At }

type captureOutbox struct {
	records []EventRecord
}

func (c *captureOutbox) Add(_ context.Context, rec EventRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func (c *captureOutbox) Flush(context.Context) error { return nil }

type recorder struct {
	events.EventRecorder
}

func TestDrainMovesEventsAndClearsRecorders(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a, b := &recorder{}, &recorder{}
	a.Record(sampleEvent{Unit: "hackerberg", At: at})
	b.Record(sampleEvent{Unit: "neubau", At: at})

	box := &captureOutbox{}
	n := 0
	enc := JSONEventEncoder{IDGenerator: func() string { n++; return "evt-" + string(rune('0'+n)) }}
	require.NoError(t, Drain(context.Background(), box, enc, a, nil, b))

	require.Len(t, box.records, 2)
	assert.Equal(t, "evt-1", box.records[0].ID)
	assert.Equal(t, "ledger.entry_added", box.records[0].Name)
	assert.Equal(t, "neubau", box.records[1].Aggregate)
	assert.JSONEq(t, `{"Unit":"hackerberg","At":"2026-03-01T08:00:00Z"}`, string(box.records[0].Payload))
	assert.Empty(t, a.PendingEvents())
	assert.Empty(t, b.PendingEvents())
}

func TestRecordDomainEventsPropagatesTraceParent(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	box := &captureOutbox{}
	require.NoError(t, RecordDomainEvents(ctx, box, nil, []events.DomainEvent{sampleEvent{Unit: "kombi"}}))

	require.Len(t, box.records, 1)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", box.records[0].Headers["traceparent"])
	assert.NotEmpty(t, box.records[0].ID)
}
