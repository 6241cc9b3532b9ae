package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventType tipo de evento de dominio emitido por las transiciones de ciclo de vida.
type EventType string

// Eventos de reservas, traslados y conteos.
const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationAllocated EventType = "reservation.allocated"
	EventReservationReleased  EventType = "reservation.released"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationExpired   EventType = "reservation.expired"

	EventTransferCreated   EventType = "transfer.created"
	EventTransferUpdated   EventType = "transfer.updated"
	EventTransferApproved  EventType = "transfer.approved"
	EventTransferInTransit EventType = "transfer.in_transit"
	EventTransferCompleted EventType = "transfer.completed"
	EventTransferCancelled EventType = "transfer.cancelled"

	EventCycleCountScheduled  EventType = "cycle_count.scheduled"
	EventCycleCountStarted    EventType = "cycle_count.started"
	EventCycleCountCompleted  EventType = "cycle_count.completed"
	EventCycleCountReconciled EventType = "cycle_count.reconciled"
	EventCycleCountCancelled  EventType = "cycle_count.cancelled"
)

// Event evento de dominio con una instantánea del agregado en el momento de la transición.
type Event struct {
	ID          string       `json:"id"`
	Type        EventType    `json:"type"`
	AggregateID string       `json:"aggregate_id"`
	OccurredAt  time.Time    `json:"occurred_at"`
	PerformedBy string       `json:"performed_by,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Transfer    *Transfer    `json:"transfer,omitempty"`
	CycleCount  *CycleCount  `json:"cycle_count,omitempty"`
}

func newEvent(t EventType, aggregateID, performedBy, reason string, at time.Time) Event {
	return Event{
		ID:          uuid.New().String(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  at,
		PerformedBy: performedBy,
		Reason:      reason,
	}
}

// recorder acumula eventos pendientes hasta que la unidad de trabajo confirma.
type recorder struct {
	pending []Event
}

func (r *recorder) record(ev Event) {
	r.pending = append(r.pending, ev)
}

// PullEvents devuelve y limpia los eventos pendientes.
func (r *recorder) PullEvents() []Event {
	out := r.pending
	r.pending = nil
	return out
}
