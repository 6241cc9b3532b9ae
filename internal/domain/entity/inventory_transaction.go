package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-engine/internal/domain"
)

// TransactionType tipo de entrada del libro mayor de inventario.
type TransactionType string

// Tipos de transacción.
const (
	TransactionTypeReceipt     TransactionType = "RECEIPT"     // entrada
	TransactionTypeIssue       TransactionType = "ISSUE"       // salida
	TransactionTypeTransfer    TransactionType = "TRANSFER"    // traslado entre bodegas
	TransactionTypeAdjustment  TransactionType = "ADJUSTMENT"  // ajuste (manual o por conteo)
	TransactionTypeReservation TransactionType = "RESERVATION" // auditoría de reservas, sin cantidad física
)

// Códigos de motivo (Reason) usados en el libro.
const (
	ReasonGoodsReceipt         = "GOODS_RECEIPT"
	ReasonSaleIssue            = "SALE_ISSUE"
	ReasonManualAdjustment     = "MANUAL_ADJUSTMENT"
	ReasonCycleCountAdjustment = "CYCLE_COUNT_ADJUSTMENT"
	ReasonTransferOut          = "TRANSFER_OUT"
	ReasonTransferIn           = "TRANSFER_IN"
	ReasonReservationCreated   = "RESERVATION_CREATED"
	ReasonReservationAllocated = "RESERVATION_ALLOCATED"
	ReasonReservationReleased  = "RESERVATION_RELEASED"
	ReasonReservationCancelled = "RESERVATION_CANCELLED"
	ReasonReservationExpired   = "RESERVATION_EXPIRED"
	ReasonTransferApproved     = "TRANSFER_APPROVED"
	ReasonTransferInTransit    = "TRANSFER_IN_TRANSIT"
	ReasonTransferCancelled    = "TRANSFER_CANCELLED"
)

// SystemUser autor de las transiciones automáticas (barrido de expiración).
const SystemUser = "System"

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeReceipt, TransactionTypeIssue, TransactionTypeTransfer,
		TransactionTypeAdjustment, TransactionTypeReservation:
		return true
	}
	return false
}

// InventoryTransaction entrada inmutable del libro de inventario.
// Quantity es el delta firmado sobre la existencia física; ReservedDelta es informativo.
type InventoryTransaction struct {
	ID                string
	TransactionNumber string
	ItemID            string
	WarehouseID       string
	LocationID        string
	Type              TransactionType
	Reason            string
	Quantity          int64
	QuantityBefore    int64
	QuantityAfter     int64
	ReservedDelta     int64
	UnitCost          decimal.Decimal
	TotalCost         decimal.Decimal
	TransactionDate   time.Time
	Reference         string
	PerformedBy       string
	IsApproved        bool
	IdempotencyKey    string
	Notes             string
	Seq               int64 // orden de inserción, lo asigna el repositorio
	CreatedAt         time.Time
}

// Validate verifica la forma de la entrada antes de persistirla.
func (t *InventoryTransaction) Validate() error {
	if t.ItemID == "" || t.WarehouseID == "" {
		return domain.NewValidationError("ledger.key_required", domain.ErrInvalidInput, "item y bodega son obligatorios")
	}
	if !t.Type.Valid() {
		return domain.NewValidationError("ledger.type_invalid", domain.ErrInvalidInput, "tipo %q no soportado", t.Type)
	}
	if t.Reason == "" {
		return domain.NewValidationError("ledger.reason_required", domain.ErrInvalidInput, "reason es obligatorio")
	}
	if t.Type == TransactionTypeReservation && t.Quantity != 0 {
		return domain.NewValidationError("ledger.reservation_moves_no_stock", domain.ErrInvalidInput, "las entradas de reserva no mueven existencia")
	}
	if t.UnitCost.IsNegative() {
		return domain.NewValidationError("ledger.unit_cost_non_negative", domain.ErrInvalidInput, "costo unitario negativo")
	}
	return nil
}

// IsOutbound indica si la entrada consume existencia disponible (salida o traslado de salida).
func (t *InventoryTransaction) IsOutbound() bool {
	if t.Quantity >= 0 {
		return false
	}
	return t.Type == TransactionTypeIssue ||
		(t.Type == TransactionTypeTransfer && t.Reason == ReasonTransferOut)
}

// IsCosted indica si la entrada recalcula el costo promedio del destino (entradas y traslados de entrada).
func (t *InventoryTransaction) IsCosted() bool {
	if t.Quantity <= 0 {
		return false
	}
	return t.Type == TransactionTypeReceipt ||
		(t.Type == TransactionTypeTransfer && t.Reason == ReasonTransferIn)
}
