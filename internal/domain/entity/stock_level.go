package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel proyección de existencias por (item, bodega, ubicación).
// LocationID vacío = nivel de bodega. Solo el actualizador de la proyección la modifica.
type StockLevel struct {
	ItemID            string
	WarehouseID       string
	LocationID        string
	QuantityOnHand    int64
	QuantityReserved  int64
	QuantityAvailable int64 // OnHand - Reserved, puede ser negativo tras un ajuste por conteo
	AverageCost       decimal.Decimal
	LastMovementAt    *time.Time
	LastCountAt       *time.Time
	UpdatedAt         time.Time
}

// StockKey identifica una fila de la proyección.
type StockKey struct {
	ItemID      string
	WarehouseID string
	LocationID  string
}

// NewStockLevel nivel vacío para una clave sin historia.
func NewStockLevel(itemID, warehouseID, locationID string) *StockLevel {
	return &StockLevel{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		LocationID:  locationID,
		AverageCost: decimal.Zero,
	}
}

// Key devuelve la clave de la fila.
func (s *StockLevel) Key() StockKey {
	return StockKey{ItemID: s.ItemID, WarehouseID: s.WarehouseID, LocationID: s.LocationID}
}

// Recalculate restablece Available = OnHand - Reserved.
func (s *StockLevel) Recalculate() {
	s.QuantityAvailable = s.QuantityOnHand - s.QuantityReserved
}

// Less orden total de claves; se usa para bloquear filas siempre en el mismo orden.
func (k StockKey) Less(o StockKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.LocationID < o.LocationID
}
