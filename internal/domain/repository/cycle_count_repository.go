package repository

import (
	"context"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// CycleCountFilter criterios de listado.
type CycleCountFilter struct {
	WarehouseID string
	Status      entity.CycleCountStatus
	Limit       int
	Offset      int
}

// CycleCountRepository puerto de persistencia de conteos cíclicos.
type CycleCountRepository interface {
	Create(ctx context.Context, c *entity.CycleCount) error
	GetByID(ctx context.Context, id string) (*entity.CycleCount, error)
	Update(ctx context.Context, c *entity.CycleCount) error
	List(ctx context.Context, filter CycleCountFilter) ([]*entity.CycleCount, error)
}
