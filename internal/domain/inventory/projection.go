package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// ApplyDelta aplica una entrada del libro a la proyección (camino caliente, sin reproducir historia).
// Rechaza:
//   - salidas y traslados de salida que superen el disponible
//   - existencia negativa, salvo ajuste aprobado
func ApplyDelta(level entity.StockLevel, entry entity.InventoryTransaction) (entity.StockLevel, error) {
	next := apply(level, entry)
	if next.QuantityReserved < 0 {
		return level, domain.NewValidationError("stock.reserved_non_negative", domain.ErrInvalidInput,
			"reservado quedaría en %d para %s/%s", next.QuantityReserved, level.ItemID, level.WarehouseID)
	}
	if entry.IsOutbound() && next.QuantityAvailable < 0 {
		return level, domain.NewValidationError("stock.available_covers_issue", domain.ErrInsufficientStock,
			"disponible %d, solicitado %d para %s/%s", level.QuantityAvailable, -entry.Quantity, level.ItemID, level.WarehouseID)
	}
	if next.QuantityOnHand < 0 && !(entry.Type == entity.TransactionTypeAdjustment && entry.IsApproved) {
		return level, domain.NewValidationError("stock.on_hand_non_negative", domain.ErrNegativeStock,
			"existencia quedaría en %d para %s/%s", next.QuantityOnHand, level.ItemID, level.WarehouseID)
	}
	return next, nil
}

// Fold reconstruye la proyección de una clave recorriendo el libro en orden (fecha, secuencia).
// reserved es la suma de reservas que retienen disponible para la clave.
func Fold(key entity.StockKey, entries []*entity.InventoryTransaction, reserved int64) entity.StockLevel {
	ordered := make([]*entity.InventoryTransaction, 0, len(entries))
	for _, e := range entries {
		if e.ItemID == key.ItemID && e.WarehouseID == key.WarehouseID && e.LocationID == key.LocationID {
			ordered = append(ordered, e)
		}
	}
	SortChronologically(ordered)

	level := *entity.NewStockLevel(key.ItemID, key.WarehouseID, key.LocationID)
	for _, e := range ordered {
		level = apply(level, *e)
	}
	level.QuantityReserved = reserved
	level.Recalculate()
	return level
}

// SortChronologically ordena por fecha de transacción y, en empate, por orden de inserción.
func SortChronologically(entries []*entity.InventoryTransaction) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		return a.Seq < b.Seq
	})
}

// Sum agrega niveles de varias ubicaciones en un total por (item, bodega).
func Sum(itemID, warehouseID string, levels []*entity.StockLevel) entity.StockLevel {
	total := *entity.NewStockLevel(itemID, warehouseID, "")
	value := decimal.Zero
	for _, l := range levels {
		total.QuantityOnHand += l.QuantityOnHand
		total.QuantityReserved += l.QuantityReserved
		if l.QuantityOnHand > 0 {
			value = value.Add(l.AverageCost.Mul(decimal.NewFromInt(l.QuantityOnHand)))
		}
		total.LastMovementAt = latest(total.LastMovementAt, l.LastMovementAt)
		total.LastCountAt = latest(total.LastCountAt, l.LastCountAt)
		if l.UpdatedAt.After(total.UpdatedAt) {
			total.UpdatedAt = l.UpdatedAt
		}
	}
	total.Recalculate()
	if total.QuantityOnHand > 0 {
		total.AverageCost = value.Div(decimal.NewFromInt(total.QuantityOnHand)).Round(4)
	}
	return total
}

func apply(level entity.StockLevel, entry entity.InventoryTransaction) entity.StockLevel {
	next := level
	if entry.IsCosted() {
		next.AverageCost = CostCalculator(
			decimal.NewFromInt(level.QuantityOnHand), level.AverageCost,
			decimal.NewFromInt(entry.Quantity), entry.UnitCost,
		)
	}
	next.QuantityOnHand += entry.Quantity
	next.QuantityReserved += entry.ReservedDelta
	next.Recalculate()
	if entry.Quantity != 0 {
		at := entry.TransactionDate
		next.LastMovementAt = &at
	}
	if entry.Reason == entity.ReasonCycleCountAdjustment {
		at := entry.TransactionDate
		next.LastCountAt = &at
	}
	next.UpdatedAt = entry.TransactionDate
	return next
}

func latest(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || !b.After(*a) {
		return a
	}
	return b
}
