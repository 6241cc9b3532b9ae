package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// ── Dobles ───────────────────────────────────────────────────────────────────

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafkago.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type recordingHandler struct {
	events []entity.Event
	traces []string
}

func (h *recordingHandler) Handle(ctx context.Context, ev entity.Event) {
	h.events = append(h.events, ev)
	h.traces = append(h.traces, trace.SpanContextFromContext(ctx).TraceID().String())
}

// ── Publisher ────────────────────────────────────────────────────────────────

func TestPublisher_ClavePorAgregadoYCuerpoJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, zerolog.Nop())

	ev := entity.Event{ID: "ev-1", Type: entity.EventReservationCreated, AggregateID: "res-1"}
	p.Publish(context.Background(), ev)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "res-1", string(w.msgs[0].Key))

	var got entity.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Type, got.Type)
	assert.Contains(t, w.msgs[0].Headers, kafkago.Header{Key: headerEventType, Value: []byte(ev.Type)})
}

func TestPublisher_ErrorDelBrokerNoSePropaga(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído")}
	p := NewPublisher(w, zerolog.Nop())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), entity.Event{ID: "ev-1"})
	})
}

// ── Consumer ─────────────────────────────────────────────────────────────────

func TestConsumer_EntregaYConfirma(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload, _ := json.Marshal(entity.Event{ID: "ev-1", Type: entity.EventTransferApproved})
	r := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Offset: 1, Value: payload},
			{Offset: 2, Value: []byte("{no es json")},
		},
	}
	h := &recordingHandler{}

	err := NewConsumer(r, h, zerolog.Nop()).Run(ctx)

	require.NoError(t, err)
	require.Len(t, h.events, 1)
	assert.Equal(t, "ev-1", h.events[0].ID)
	assert.Equal(t, []int64{1, 2}, r.committed, "el mensaje inválido también se confirma")
}

func TestConsumer_PropagaLaTrazaAlManejadorYAlLog(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceparent := []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	payload, _ := json.Marshal(entity.Event{ID: "ev-1", Type: entity.EventTransferApproved})
	r := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Offset: 1, Value: payload, Headers: []kafkago.Header{{Key: "traceparent", Value: traceparent}}},
			{Offset: 2, Value: []byte("{no es json"), Headers: []kafkago.Header{{Key: "traceparent", Value: traceparent}}},
		},
	}
	h := &recordingHandler{}
	var buf bytes.Buffer

	require.NoError(t, NewConsumer(r, h, zerolog.New(&buf)).Run(ctx))

	require.Equal(t, []string{"4bf92f3577b34da6a3ce929d0e0e4736"}, h.traces)
	assert.Contains(t, buf.String(), `"message":"evento inválido descartado"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)),
		"recepción y descarte llevan la traza")
}
