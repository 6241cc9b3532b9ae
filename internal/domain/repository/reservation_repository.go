package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// ReservationFilter criterios de listado.
type ReservationFilter struct {
	ItemID      string
	WarehouseID string
	Status      entity.ReservationStatus
	Limit       int
	Offset      int
}

// ReservationRepository puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	// Update control optimista: exige r.Version vigente, la incrementa o devuelve domain.ErrConcurrencyConflict.
	Update(ctx context.Context, r *entity.Reservation) error
	List(ctx context.Context, filter ReservationFilter) ([]*entity.Reservation, error)
	// ListDue reservas activas con expiración anterior a now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)
	// SumHeld cantidad retenida (activas y asignadas sin despachar) para una clave.
	SumHeld(ctx context.Context, key entity.StockKey) (int64, error)
}
