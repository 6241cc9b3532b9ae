package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// WarehouseUseCase catálogo de bodegas. Una bodega inactiva no acepta movimientos nuevos.
type WarehouseUseCase struct {
	txRunner inventory.TxRunner
	clock    clock.Clock
	log      zerolog.Logger
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(txRunner inventory.TxRunner, clk clock.Clock, log zerolog.Logger) *WarehouseUseCase {
	return &WarehouseUseCase{
		txRunner: txRunner,
		clock:    clk,
		log:      log.With().Str("component", "warehouses").Logger(),
	}
}

// Create crea una bodega activa. El código es único.
func (uc *WarehouseUseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, domain.NewValidationError("warehouse.code_and_name_required", domain.ErrInvalidInput, "code y name son obligatorios")
	}
	now := uc.clock.Now()
	warehouse := &entity.Warehouse{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      name,
		Address:   in.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		return s.Warehouses.Create(ctx, warehouse)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("warehouse_id", warehouse.ID).Str("code", code).Msg("bodega creada")
	return toWarehouseResponse(warehouse), nil
}

// GetByID obtiene una bodega por ID.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	var warehouse *entity.Warehouse
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		warehouse, err = s.Warehouses.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}
	return toWarehouseResponse(warehouse), nil
}

// Update actualiza nombre, dirección o estado.
func (uc *WarehouseUseCase) Update(ctx context.Context, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	var warehouse *entity.Warehouse
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		warehouse, err = s.Warehouses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if warehouse == nil {
			return domain.ErrNotFound
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return domain.NewValidationError("warehouse.code_and_name_required", domain.ErrInvalidInput, "name no puede quedar vacío")
			}
			warehouse.Name = name
		}
		if in.Address != nil {
			warehouse.Address = *in.Address
		}
		if in.IsActive != nil {
			warehouse.IsActive = *in.IsActive
		}
		warehouse.UpdatedAt = uc.clock.Now()
		return s.Warehouses.Update(ctx, warehouse)
	})
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// List lista bodegas ordenadas por código.
func (uc *WarehouseUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.WarehouseListResponse, error) {
	page.DefaultPage()
	var list []*entity.Warehouse
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		list, err = s.Warehouses.List(ctx, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Code:      w.Code,
		Name:      w.Name,
		Address:   w.Address,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
