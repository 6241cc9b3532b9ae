package inventory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	stockcalc "github.com/jhoicas/inventory-engine/internal/domain/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// StockUseCase consultas de existencias y del libro, y reconstrucción de la proyección.
type StockUseCase struct {
	txRunner TxRunner
	clock    clock.Clock
	log      zerolog.Logger
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(txRunner TxRunner, clk clock.Clock, log zerolog.Logger) *StockUseCase {
	return &StockUseCase{txRunner: txRunner, clock: clk, log: log.With().Str("component", "stock").Logger()}
}

// GetStockLevel existencias de una clave exacta. Sin ubicación devuelve el nivel sin ubicar
// de la bodega: el mismo que usan reservas, traslados y salidas sin location_id.
func (uc *StockUseCase) GetStockLevel(ctx context.Context, itemID, warehouseID, locationID string) (*dto.StockLevelResponse, error) {
	if itemID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	key := entity.StockKey{ItemID: itemID, WarehouseID: warehouseID, LocationID: locationID}
	var out *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(s Stores) error {
		var err error
		out, err = s.StockLevels.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToStockLevelResponse(out), nil
}

// SummarizeStock total de un item en una bodega sumando todas las ubicaciones, con el detalle por ubicación.
// El total es informativo: las operaciones validan siempre contra la clave exacta.
func (uc *StockUseCase) SummarizeStock(ctx context.Context, itemID, warehouseID string) (*dto.StockSummaryResponse, error) {
	if itemID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	var levels []*entity.StockLevel
	err := uc.txRunner.Run(ctx, func(s Stores) error {
		var err error
		levels, err = s.StockLevels.ListByItemWarehouse(ctx, itemID, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	total := stockcalc.Sum(itemID, warehouseID, levels)
	out := &dto.StockSummaryResponse{
		Total:     *ToStockLevelResponse(&total),
		Locations: make([]dto.StockLevelResponse, 0, len(levels)),
	}
	for _, l := range levels {
		out.Locations = append(out.Locations, *ToStockLevelResponse(l))
	}
	return out, nil
}

// ListLedgerEntries entradas del libro por item, bodega y rango de fechas, en orden cronológico.
func (uc *StockUseCase) ListLedgerEntries(ctx context.Context, q dto.LedgerQuery) (*dto.LedgerListResponse, error) {
	q.Page.DefaultPage()
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, domain.NewValidationError("ledger.date_range_ordered", domain.ErrInvalidInput, "to es anterior a from")
	}
	var list []*entity.InventoryTransaction
	err := uc.txRunner.Run(ctx, func(s Stores) error {
		var err error
		list, err = s.Ledger.List(ctx, repository.LedgerFilter{
			ItemID:      q.ItemID,
			WarehouseID: q.WarehouseID,
			Reference:   q.Reference,
			From:        q.From,
			To:          q.To,
			Limit:       q.Page.Limit,
			Offset:      q.Page.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.LedgerEntryResponse, 0, len(list))
	for _, t := range list {
		items = append(items, *ToLedgerEntryResponse(t))
	}
	return &dto.LedgerListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Page.Limit, Offset: q.Page.Offset},
	}, nil
}

// Recompute reconstruye la proyección de una clave desde el libro sin persistirla.
func (uc *StockUseCase) Recompute(ctx context.Context, key entity.StockKey) (*dto.StockLevelResponse, error) {
	var out entity.StockLevel
	err := uc.txRunner.Run(ctx, func(s Stores) error {
		var err error
		out, err = recompute(ctx, s, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToStockLevelResponse(&out), nil
}

// RebuildStockLevel recompone y persiste la proyección de una clave bajo bloqueo de fila.
// Reparación administrativa: el libro manda.
func (uc *StockUseCase) RebuildStockLevel(ctx context.Context, key entity.StockKey) (*dto.StockLevelResponse, error) {
	if key.ItemID == "" || key.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	var before, after entity.StockLevel
	err := uc.txRunner.Run(ctx, func(s Stores) error {
		current, err := s.StockLevels.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		before = *current
		after, err = recompute(ctx, s, key)
		if err != nil {
			return err
		}
		after.UpdatedAt = uc.clock.Now()
		return s.StockLevels.Upsert(ctx, &after)
	})
	if err != nil {
		return nil, err
	}
	if before.QuantityOnHand != after.QuantityOnHand || before.QuantityReserved != after.QuantityReserved {
		uc.log.Warn().
			Str("item_id", key.ItemID).
			Str("warehouse_id", key.WarehouseID).
			Str("location_id", key.LocationID).
			Int64("on_hand_before", before.QuantityOnHand).
			Int64("on_hand_after", after.QuantityOnHand).
			Int64("reserved_before", before.QuantityReserved).
			Int64("reserved_after", after.QuantityReserved).
			Msg("proyección corregida desde el libro")
	}
	return ToStockLevelResponse(&after), nil
}

func recompute(ctx context.Context, s Stores, key entity.StockKey) (entity.StockLevel, error) {
	entries, err := s.Ledger.ListByKey(ctx, key)
	if err != nil {
		return entity.StockLevel{}, err
	}
	held, err := s.Reservations.SumHeld(ctx, key)
	if err != nil {
		return entity.StockLevel{}, err
	}
	return stockcalc.Fold(key, entries, held), nil
}
