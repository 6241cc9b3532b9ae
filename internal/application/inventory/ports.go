package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

// Stores repositorios atados a una misma unidad de trabajo.
type Stores struct {
	Ledger       repository.LedgerRepository
	StockLevels  repository.StockLevelRepository
	Reservations repository.ReservationRepository
	Transfers    repository.TransferRepository
	CycleCounts  repository.CycleCountRepository
	Warehouses   repository.WarehouseRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: Commit si fn retorna nil, Rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(s Stores) error) error
}

// Sequencer numeración de documentos y transacciones.
type Sequencer interface {
	Next(ctx context.Context, prefix string, date time.Time) (string, error)
}

// EventPublisher entrega eventos de dominio después del commit (dispara y olvida).
// Publish nunca bloquea ni falla hacia el llamador.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.Event)
}
