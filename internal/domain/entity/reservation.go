package entity

import (
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain"
)

// ReservationStatus estado cerrado de una reserva.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationAllocated ReservationStatus = "ALLOCATED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// ReservationAction acción que dispara una transición.
type ReservationAction string

const (
	ReservationAllocate ReservationAction = "allocate"
	ReservationRelease  ReservationAction = "release"
	ReservationCancel   ReservationAction = "cancel"
	ReservationExpire   ReservationAction = "expire"
)

// ReservationType origen de la reserva.
type ReservationType string

const (
	ReservationTypeOrder      ReservationType = "ORDER"
	ReservationTypeTransfer   ReservationType = "TRANSFER"
	ReservationTypeProduction ReservationType = "PRODUCTION"
	ReservationTypeAssembly   ReservationType = "ASSEMBLY"
	ReservationTypeOther      ReservationType = "OTHER"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t ReservationType) Valid() bool {
	switch t {
	case ReservationTypeOrder, ReservationTypeTransfer, ReservationTypeProduction,
		ReservationTypeAssembly, ReservationTypeOther:
		return true
	}
	return false
}

// IsTerminal indica si el estado es final (sin reactivación).
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationAllocated, ReservationReleased, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

// Next función de transición. Desde un estado terminal cualquier acción conocida
// devuelve el mismo estado (no-op), para tolerar entregas repetidas.
func (s ReservationStatus) Next(a ReservationAction) (ReservationStatus, error) {
	var target ReservationStatus
	switch a {
	case ReservationAllocate:
		target = ReservationAllocated
	case ReservationRelease:
		target = ReservationReleased
	case ReservationCancel:
		target = ReservationCancelled
	case ReservationExpire:
		target = ReservationExpired
	default:
		return s, domain.NewValidationError("reservation.unknown_action", domain.ErrInvalidTransition, "acción %q desconocida", a)
	}
	switch {
	case s == ReservationActive:
		return target, nil
	case s.IsTerminal():
		return s, nil
	}
	return s, domain.NewValidationError("reservation.unknown_status", domain.ErrInvalidTransition, "estado %q desconocido", s)
}

// Reservation retención blanda de stock disponible; no mueve existencia física.
type Reservation struct {
	recorder

	ID                string
	ReservationNumber string
	ItemID            string
	WarehouseID       string
	LocationID        string
	Quantity          int64
	Type              ReservationType
	ReferenceNumber   string
	ReservedBy        string
	ReservationDate   time.Time
	ExpirationDate    *time.Time
	CompletionDate    *time.Time
	FulfilledAt       *time.Time // salida física contra una reserva asignada
	ReleaseReason     string
	Status            ReservationStatus
	Notes             string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewReservationParams datos de creación.
type NewReservationParams struct {
	ID              string
	Number          string
	ItemID          string
	WarehouseID     string
	LocationID      string
	Quantity        int64
	Type            ReservationType
	ReferenceNumber string
	ReservedBy      string
	ExpirationDate  *time.Time
	Notes           string
}

// NewReservation valida y crea una reserva Active. La disponibilidad la valida el caso de uso
// contra la proyección bloqueada.
func NewReservation(p NewReservationParams, now time.Time) (*Reservation, error) {
	if p.ItemID == "" || p.WarehouseID == "" {
		return nil, domain.NewValidationError("reservation.key_required", domain.ErrInvalidInput, "item y bodega son obligatorios")
	}
	if p.Quantity <= 0 {
		return nil, domain.NewValidationError("reservation.quantity_positive", domain.ErrInvalidInput, "cantidad debe ser mayor a cero")
	}
	if p.Type == "" {
		p.Type = ReservationTypeOrder
	}
	if !p.Type.Valid() {
		return nil, domain.NewValidationError("reservation.type_invalid", domain.ErrInvalidInput, "tipo %q no soportado", p.Type)
	}
	if p.ExpirationDate != nil && !p.ExpirationDate.After(now) {
		return nil, domain.NewValidationError("reservation.expiration_in_future", domain.ErrInvalidInput, "la expiración debe ser futura")
	}
	r := &Reservation{
		ID:                p.ID,
		ReservationNumber: p.Number,
		ItemID:            p.ItemID,
		WarehouseID:       p.WarehouseID,
		LocationID:        p.LocationID,
		Quantity:          p.Quantity,
		Type:              p.Type,
		ReferenceNumber:   p.ReferenceNumber,
		ReservedBy:        p.ReservedBy,
		ReservationDate:   now,
		ExpirationDate:    p.ExpirationDate,
		Status:            ReservationActive,
		Notes:             p.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.emit(EventReservationCreated, p.ReservedBy, "", now)
	return r, nil
}

// Key clave de la proyección afectada.
func (r *Reservation) Key() StockKey {
	return StockKey{ItemID: r.ItemID, WarehouseID: r.WarehouseID, LocationID: r.LocationID}
}

// Holds indica si la reserva sigue descontando disponible.
func (r *Reservation) Holds() bool {
	return r.Status == ReservationActive || (r.Status == ReservationAllocated && r.FulfilledAt == nil)
}

// IsDue indica si una reserva activa venció.
func (r *Reservation) IsDue(now time.Time) bool {
	return r.Status == ReservationActive && r.ExpirationDate != nil && now.After(*r.ExpirationDate)
}

// Allocate convierte la retención en compromiso de picking. No cambia la proyección.
func (r *Reservation) Allocate(by string, now time.Time) (bool, error) {
	return r.transition(ReservationAllocate, by, "", now)
}

// Release devuelve la cantidad al disponible (liberación de negocio).
func (r *Reservation) Release(reason, by string, now time.Time) (bool, error) {
	return r.transition(ReservationRelease, by, reason, now)
}

// Cancel devuelve la cantidad al disponible (anulación por error).
func (r *Reservation) Cancel(reason, by string, now time.Time) (bool, error) {
	return r.transition(ReservationCancel, by, reason, now)
}

// Expire vence la reserva; solo procede si now > ExpirationDate. Atribuida a System.
func (r *Reservation) Expire(now time.Time) (bool, error) {
	if r.Status == ReservationActive && !r.IsDue(now) {
		return false, domain.NewValidationError("reservation.not_expired", domain.ErrInvalidTransition, "la reserva %s no ha vencido", r.ReservationNumber)
	}
	return r.transition(ReservationExpire, SystemUser, "expired", now)
}

// Fulfill marca la salida física de una reserva asignada; deja de retener disponible.
func (r *Reservation) Fulfill(now time.Time) error {
	if r.Status != ReservationAllocated || r.FulfilledAt != nil {
		return domain.NewValidationError("reservation.fulfill_requires_allocated", domain.ErrInvalidTransition, "la reserva %s no está asignada pendiente de salida", r.ReservationNumber)
	}
	r.FulfilledAt = &now
	r.UpdatedAt = now
	return nil
}

// transition aplica Next; changed=false cuando la reserva ya era terminal.
func (r *Reservation) transition(a ReservationAction, by, reason string, now time.Time) (bool, error) {
	next, err := r.Status.Next(a)
	if err != nil {
		return false, err
	}
	if next == r.Status {
		return false, nil
	}
	r.Status = next
	r.CompletionDate = &now
	r.UpdatedAt = now
	if a != ReservationAllocate {
		r.ReleaseReason = reason
	}
	r.emit(reservationEvent(next), by, reason, now)
	return true, nil
}

func reservationEvent(s ReservationStatus) EventType {
	switch s {
	case ReservationAllocated:
		return EventReservationAllocated
	case ReservationReleased:
		return EventReservationReleased
	case ReservationCancelled:
		return EventReservationCancelled
	case ReservationExpired:
		return EventReservationExpired
	}
	return EventReservationCreated
}

func (r *Reservation) emit(t EventType, by, reason string, now time.Time) {
	ev := newEvent(t, r.ID, by, reason, now)
	snap := *r
	snap.recorder = recorder{}
	ev.Reservation = &snap
	r.record(ev)
}
