package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// type: RECEIPT (unit_cost obligatorio), ISSUE (reservation_id opcional, debe estar asignada) o ADJUSTMENT (cantidad firmada).
type RegisterMovementRequest struct {
	ItemID        string           `json:"item_id"`
	WarehouseID   string           `json:"warehouse_id"`
	LocationID    string           `json:"location_id,omitempty"`
	Type          string           `json:"type"`
	Quantity      int64            `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	ReservationID string           `json:"reservation_id,omitempty"`
	Approved      bool             `json:"approved"`
	Notes         string           `json:"notes,omitempty"`
}

// LedgerEntryResponse entrada del libro de inventario.
type LedgerEntryResponse struct {
	ID                string          `json:"id"`
	TransactionNumber string          `json:"transaction_number"`
	ItemID            string          `json:"item_id"`
	WarehouseID       string          `json:"warehouse_id"`
	LocationID        string          `json:"location_id,omitempty"`
	Type              string          `json:"transaction_type"`
	Reason            string          `json:"reason"`
	Quantity          int64           `json:"quantity"`
	QuantityBefore    int64           `json:"quantity_before"`
	QuantityAfter     int64           `json:"quantity_after"`
	ReservedDelta     int64           `json:"reserved_delta"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	TransactionDate   time.Time       `json:"transaction_date"`
	Reference         string          `json:"reference,omitempty"`
	PerformedBy       string          `json:"performed_by,omitempty"`
	IsApproved        bool            `json:"is_approved"`
	Notes             string          `json:"notes,omitempty"`
}

// LedgerListResponse lista paginada del libro.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// LedgerQuery filtros de GET /api/inventory/ledger. Rango [from, to).
type LedgerQuery struct {
	ItemID      string
	WarehouseID string
	Reference   string
	From        *time.Time
	To          *time.Time
	Page        PageRequest
}

// StockLevelResponse proyección de existencias.
type StockLevelResponse struct {
	ItemID            string          `json:"item_id"`
	WarehouseID       string          `json:"warehouse_id"`
	LocationID        string          `json:"location_id,omitempty"`
	QuantityOnHand    int64           `json:"quantity_on_hand"`
	QuantityReserved  int64           `json:"quantity_reserved"`
	QuantityAvailable int64           `json:"quantity_available"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	LastMovementAt    *time.Time      `json:"last_movement_at,omitempty"`
	LastCountAt       *time.Time      `json:"last_count_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// StockSummaryResponse total de la bodega y niveles por ubicación ("" es el nivel sin ubicar).
type StockSummaryResponse struct {
	Total     StockLevelResponse   `json:"total"`
	Locations []StockLevelResponse `json:"locations"`
}
