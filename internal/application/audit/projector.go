package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/application/sequence"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/pkg/logger"
)

const tracerName = "github.com/jhoicas/inventory-engine/internal/application/audit"

type handlerFunc func(ev entity.Event) ([]*entity.InventoryTransaction, error)

// Projector escribe la pista de auditoría del libro a partir de los eventos de ciclo de vida.
// Corre después del commit; un fallo se registra y nunca llega a la operación que originó el evento.
type Projector struct {
	txRunner inventory.TxRunner
	seq      inventory.Sequencer
	log      zerolog.Logger
	tracer   trace.Tracer
	handlers map[entity.EventType]handlerFunc
}

// NewProjector registra un manejador por tipo de evento auditado.
func NewProjector(txRunner inventory.TxRunner, seq inventory.Sequencer, log zerolog.Logger) *Projector {
	p := &Projector{
		txRunner: txRunner,
		seq:      seq,
		log:      log.With().Str("component", "audit").Logger(),
		tracer:   otel.Tracer(tracerName),
	}
	p.handlers = map[entity.EventType]handlerFunc{
		entity.EventReservationCreated:   reservationEntry(entity.ReasonReservationCreated, 1),
		entity.EventReservationAllocated: reservationEntry(entity.ReasonReservationAllocated, 0),
		entity.EventReservationReleased:  reservationEntry(entity.ReasonReservationReleased, -1),
		entity.EventReservationCancelled: reservationEntry(entity.ReasonReservationCancelled, -1),
		entity.EventReservationExpired:   reservationEntry(entity.ReasonReservationExpired, -1),
		entity.EventTransferApproved:     transferEntries(entity.ReasonTransferApproved),
		entity.EventTransferInTransit:    transferEntries(entity.ReasonTransferInTransit),
		entity.EventTransferCancelled:    transferEntries(entity.ReasonTransferCancelled),
	}
	return p
}

// Handles indica si el tipo de evento produce entradas de auditoría.
func (p *Projector) Handles(t entity.EventType) bool {
	_, ok := p.handlers[t]
	return ok
}

// Handle proyecta un evento. Repetir el mismo evento no duplica entradas.
func (p *Projector) Handle(ctx context.Context, ev entity.Event) {
	h, ok := p.handlers[ev.Type]
	if !ok {
		log := logger.FromContext(ctx, p.log)
		log.Debug().Str("event", string(ev.Type)).Msg("evento sin auditoría")
		return
	}
	ctx, span := p.tracer.Start(ctx, "audit."+string(ev.Type), trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", string(ev.Type)),
		attribute.String("aggregate.id", ev.AggregateID),
	))
	defer span.End()
	log := logger.FromContext(ctx, p.log)

	written, err := p.project(ctx, ev, h)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("event", string(ev.Type)).
			Str("aggregate_id", ev.AggregateID).
			Msg("no se pudo escribir la auditoría")
		return
	}
	span.SetAttributes(attribute.Int("audit.entries", written))
	log.Debug().
		Str("event_id", ev.ID).
		Str("event", string(ev.Type)).
		Int("entries", written).
		Msg("auditoría escrita")
}

func (p *Projector) project(ctx context.Context, ev entity.Event, h handlerFunc) (written int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic en manejador de auditoría: %v", r)
		}
	}()
	entries, err := h(ev)
	if err != nil {
		return 0, err
	}
	for i, entry := range entries {
		entry.ID = uuid.New().String()
		entry.IdempotencyKey = fmt.Sprintf("%s:%d", ev.ID, i)
		entry.TransactionDate = ev.OccurredAt
		entry.CreatedAt = ev.OccurredAt
		entry.PerformedBy = ev.PerformedBy
		entry.Notes = ev.Reason
		entry.IsApproved = true
		if err := entry.Validate(); err != nil {
			return written, err
		}
		num, err := p.seq.Next(ctx, sequence.PrefixTransaction, ev.OccurredAt)
		if err != nil {
			return written, err
		}
		entry.TransactionNumber = num
		err = p.txRunner.Run(ctx, func(s inventory.Stores) error {
			_, err := s.Ledger.Append(ctx, entry)
			return err
		})
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// reservationEntry una entrada sin cantidad física; sign indica el efecto sobre lo reservado.
func reservationEntry(reason string, sign int64) handlerFunc {
	return func(ev entity.Event) ([]*entity.InventoryTransaction, error) {
		r := ev.Reservation
		if r == nil {
			return nil, fmt.Errorf("evento %s sin reserva", ev.Type)
		}
		return []*entity.InventoryTransaction{{
			ItemID:        r.ItemID,
			WarehouseID:   r.WarehouseID,
			LocationID:    r.LocationID,
			Type:          entity.TransactionTypeReservation,
			Reason:        reason,
			ReservedDelta: sign * r.Quantity,
			Reference:     r.ReservationNumber,
		}}, nil
	}
}

// transferEntries una entrada por línea en la clave de origen, sin cantidad física.
func transferEntries(reason string) handlerFunc {
	return func(ev entity.Event) ([]*entity.InventoryTransaction, error) {
		t := ev.Transfer
		if t == nil {
			return nil, fmt.Errorf("evento %s sin traslado", ev.Type)
		}
		out := make([]*entity.InventoryTransaction, 0, len(t.Items))
		for _, it := range t.Items {
			out = append(out, &entity.InventoryTransaction{
				ItemID:      it.ItemID,
				WarehouseID: t.FromWarehouseID,
				LocationID:  t.FromLocationID,
				Type:        entity.TransactionTypeTransfer,
				Reason:      reason,
				Reference:   t.TransferNumber,
				UnitCost:    it.UnitPrice,
			})
		}
		return out, nil
	}
}
