package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// LedgerFilter criterios de consulta del libro. Rango de fechas inclusivo en From, exclusivo en To.
type LedgerFilter struct {
	ItemID      string
	WarehouseID string
	Reference   string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// LedgerRepository puerto del libro de inventario. Solo inserta: no existe camino de actualización ni borrado.
type LedgerRepository interface {
	// Append inserta la entrada y devuelve su ID. Una IdempotencyKey repetida devuelve domain.ErrDuplicate.
	Append(ctx context.Context, entry *entity.InventoryTransaction) (string, error)
	// ListByKey devuelve todas las entradas de una clave en orden (fecha, secuencia).
	ListByKey(ctx context.Context, key entity.StockKey) ([]*entity.InventoryTransaction, error)
	List(ctx context.Context, filter LedgerFilter) ([]*entity.InventoryTransaction, error)
}
