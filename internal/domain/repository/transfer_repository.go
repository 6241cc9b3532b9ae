package repository

import (
	"context"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// TransferFilter criterios de listado.
type TransferFilter struct {
	WarehouseID string // origen o destino
	Status      entity.TransferStatus
	Limit       int
	Offset      int
}

// TransferRepository puerto de persistencia de traslados (cabecera + líneas).
type TransferRepository interface {
	Create(ctx context.Context, t *entity.Transfer) error
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// Update reemplaza cabecera y líneas con control optimista por versión.
	Update(ctx context.Context, t *entity.Transfer) error
	List(ctx context.Context, filter TransferFilter) ([]*entity.Transfer, error)
}
