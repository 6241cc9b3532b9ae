package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

func TestBus_EntregaTodosLosEventos(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	bus := New(HandlerFunc(func(_ context.Context, ev entity.Event) {
		mu.Lock()
		seen[ev.ID] = true
		mu.Unlock()
	}), 4, 64, zerolog.Nop())
	defer bus.Close()

	for i := 0; i < 20; i++ {
		bus.Publish(context.Background(), entity.Event{ID: string(rune('a' + i)), Type: entity.EventReservationCreated})
	}
	bus.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 20)
}

func TestBus_ColaLlenaDescartaSinBloquear(t *testing.T) {
	block := make(chan struct{})
	var handled atomic.Int32
	bus := New(HandlerFunc(func(_ context.Context, _ entity.Event) {
		<-block
		handled.Add(1)
	}), 1, 1, zerolog.Nop())

	// uno en el worker, uno en la cola; el resto se descarta
	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), entity.Event{ID: "x"})
	}
	close(block)
	bus.Close()

	assert.LessOrEqual(t, handled.Load(), int32(2))
	assert.GreaterOrEqual(t, handled.Load(), int32(1))
}

func TestBus_PanicoEnManejadorNoDetieneWorkers(t *testing.T) {
	var handled atomic.Int32
	bus := New(HandlerFunc(func(_ context.Context, ev entity.Event) {
		if ev.ID == "boom" {
			panic("fallo")
		}
		handled.Add(1)
	}), 1, 8, zerolog.Nop())
	defer bus.Close()

	bus.Publish(context.Background(), entity.Event{ID: "boom"}, entity.Event{ID: "ok"})
	bus.Drain()

	assert.Equal(t, int32(1), handled.Load())
}

func TestBus_PublicarDespuesDeCerrarSeIgnora(t *testing.T) {
	var handled atomic.Int32
	bus := New(HandlerFunc(func(_ context.Context, _ entity.Event) { handled.Add(1) }), 1, 8, zerolog.Nop())
	bus.Close()

	bus.Publish(context.Background(), entity.Event{ID: "tarde"})
	bus.Drain()

	assert.Equal(t, int32(0), handled.Load())
}

func TestBus_ContextoCanceladoNoLlegaAlManejador(t *testing.T) {
	errs := make(chan error, 1)
	bus := New(HandlerFunc(func(ctx context.Context, _ entity.Event) { errs <- ctx.Err() }), 1, 8, zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, entity.Event{ID: "e"})
	bus.Drain()

	assert.NoError(t, <-errs)
}
