package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-engine/internal/application/sequence"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	stockcalc "github.com/jhoicas/inventory-engine/internal/domain/inventory"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// Ledger camino de escritura de movimientos físicos: bloquea la fila de proyección,
// valida con ApplyDelta, inserta en el libro y actualiza la proyección en la misma unidad de trabajo.
type Ledger struct {
	seq   Sequencer
	clock clock.Clock
}

// NewLedger construye el servicio de libro.
func NewLedger(seq Sequencer, clk clock.Clock) *Ledger {
	return &Ledger{seq: seq, clock: clk}
}

// Lock bloquea las filas de proyección en orden total de clave para evitar interbloqueos
// entre operaciones que tocan varias claves (traslados, conteos).
func (l *Ledger) Lock(ctx context.Context, s Stores, keys ...entity.StockKey) error {
	uniq := make([]entity.StockKey, 0, len(keys))
	seen := make(map[entity.StockKey]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Less(uniq[j]) })
	for _, k := range uniq {
		if _, err := s.StockLevels.GetForUpdate(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Post registra un movimiento físico. Completa número, ID, existencias antes/después y costo total.
func (l *Ledger) Post(ctx context.Context, s Stores, entry *entity.InventoryTransaction) error {
	now := l.clock.Now()
	if entry.TransactionDate.IsZero() {
		entry.TransactionDate = now
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	key := entity.StockKey{ItemID: entry.ItemID, WarehouseID: entry.WarehouseID, LocationID: entry.LocationID}
	level, err := s.StockLevels.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	if entry.UnitCost.IsZero() && !entry.IsCosted() {
		entry.UnitCost = level.AverageCost
	}
	next, err := stockcalc.ApplyDelta(*level, *entry)
	if err != nil {
		return err
	}
	if entry.TransactionNumber == "" {
		num, err := l.seq.Next(ctx, sequence.PrefixTransaction, entry.TransactionDate)
		if err != nil {
			return err
		}
		entry.TransactionNumber = num
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.QuantityBefore = level.QuantityOnHand
	entry.QuantityAfter = next.QuantityOnHand
	entry.TotalCost = entry.UnitCost.Mul(decimal.NewFromInt(entry.Quantity))
	entry.CreatedAt = now
	if _, err := s.Ledger.Append(ctx, entry); err != nil {
		return err
	}
	next.UpdatedAt = now
	return s.StockLevels.Upsert(ctx, &next)
}

// Reserve descuenta qty del disponible de la clave; falla si qty supera el disponible.
func (l *Ledger) Reserve(ctx context.Context, s Stores, key entity.StockKey, qty int64) error {
	level, err := s.StockLevels.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	if qty > level.QuantityAvailable {
		return domain.NewValidationError("reservation.quantity_within_available", domain.ErrInsufficientStock,
			"disponible %d, solicitado %d", level.QuantityAvailable, qty)
	}
	level.QuantityReserved += qty
	level.Recalculate()
	level.UpdatedAt = l.clock.Now()
	return s.StockLevels.Upsert(ctx, level)
}

// Unreserve devuelve qty al disponible de la clave.
func (l *Ledger) Unreserve(ctx context.Context, s Stores, key entity.StockKey, qty int64) error {
	level, err := s.StockLevels.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	level.QuantityReserved -= qty
	if level.QuantityReserved < 0 {
		level.QuantityReserved = 0
	}
	level.Recalculate()
	level.UpdatedAt = l.clock.Now()
	return s.StockLevels.Upsert(ctx, level)
}

// RequireAvailable valida que la clave tenga al menos qty disponible (sin reservarlo).
func (l *Ledger) RequireAvailable(ctx context.Context, s Stores, key entity.StockKey, qty int64) error {
	level, err := s.StockLevels.Get(ctx, key)
	if err != nil {
		return err
	}
	if qty > level.QuantityAvailable {
		return domain.NewValidationError("transfer.quantity_within_available", domain.ErrInsufficientStock,
			"disponible %d en %s para %s, solicitado %d", level.QuantityAvailable, key.WarehouseID, key.ItemID, qty)
	}
	return nil
}

// RequireWarehouse valida que la bodega exista y esté activa.
func RequireWarehouse(ctx context.Context, s Stores, id string) error {
	wh, err := s.Warehouses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wh == nil {
		return domain.NewValidationError("warehouse.exists", domain.ErrNotFound, "bodega %s no encontrada", id)
	}
	if !wh.IsActive {
		return domain.NewValidationError("warehouse.active", domain.ErrInactiveWarehouse, "bodega %s inactiva", id)
	}
	return nil
}
