package repository

import (
	"context"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// StockLevelRepository puerto de la proyección de existencias.
// Get y GetForUpdate devuelven un nivel en cero si la clave no tiene fila.
type StockLevelRepository interface {
	Get(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error)
	// GetForUpdate bloquea la fila hasta el fin de la unidad de trabajo (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error)
	Upsert(ctx context.Context, level *entity.StockLevel) error
	// ListByItemWarehouse todas las ubicaciones de un item en una bodega.
	ListByItemWarehouse(ctx context.Context, itemID, warehouseID string) ([]*entity.StockLevel, error)
	// ListByWarehouse niveles de una bodega/ubicación (conteos completos).
	ListByWarehouse(ctx context.Context, warehouseID, locationID string) ([]*entity.StockLevel, error)
}
