// Package eventbus entrega eventos de dominio en el mismo proceso a un pool de workers.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

var _ inventory.EventPublisher = (*Bus)(nil)

// Handler consume un evento. No devuelve error: el consumidor registra sus propios fallos.
type Handler interface {
	Handle(ctx context.Context, ev entity.Event)
}

// HandlerFunc adapta una función a Handler.
type HandlerFunc func(ctx context.Context, ev entity.Event)

// Handle llama f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev entity.Event) { f(ctx, ev) }

type envelope struct {
	ctx context.Context
	ev  entity.Event
}

// Bus cola acotada con N workers. Si la cola está llena el evento se descarta con advertencia.
type Bus struct {
	queue   chan envelope
	handler Handler
	log     zerolog.Logger

	pending sync.WaitGroup
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New arranca workers goroutines que consumen de una cola de tamaño buffer.
func New(handler Handler, workers, buffer int, log zerolog.Logger) *Bus {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	b := &Bus{
		queue:   make(chan envelope, buffer),
		handler: handler,
		log:     log.With().Str("component", "eventbus").Logger(),
	}
	for i := 0; i < workers; i++ {
		b.workers.Add(1)
		go b.work()
	}
	return b
}

// Publish encola los eventos sin bloquear. El contexto de traza se conserva, la cancelación no.
func (b *Bus) Publish(ctx context.Context, events ...entity.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.log.Warn().Int("events", len(events)).Msg("bus cerrado, eventos descartados")
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, ev := range events {
		b.pending.Add(1)
		select {
		case b.queue <- envelope{ctx: detached, ev: ev}:
		default:
			b.pending.Done()
			b.log.Warn().
				Str("event_id", ev.ID).
				Str("event", string(ev.Type)).
				Msg("cola de eventos llena, evento descartado")
		}
	}
}

// Drain espera a que se procesen los eventos ya encolados.
func (b *Bus) Drain() {
	b.pending.Wait()
}

// Close deja de aceptar eventos, procesa lo encolado y detiene los workers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	b.workers.Wait()
}

func (b *Bus) work() {
	defer b.workers.Done()
	for env := range b.queue {
		b.dispatch(env)
	}
}

func (b *Bus) dispatch(env envelope) {
	defer b.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_id", env.ev.ID).
				Msg("manejador de eventos en pánico")
		}
	}()
	b.handler.Handle(env.ctx, env.ev)
}
