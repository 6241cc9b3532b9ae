package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferItemRequest línea de traslado.
type TransferItemRequest struct {
	ItemID    string          `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateTransferRequest body para POST /api/inventory/transfers.
type CreateTransferRequest struct {
	FromWarehouseID     string                `json:"from_warehouse_id"`
	FromLocationID      string                `json:"from_location_id,omitempty"`
	ToWarehouseID       string                `json:"to_warehouse_id"`
	ToLocationID        string                `json:"to_location_id,omitempty"`
	Reason              string                `json:"reason,omitempty"`
	Priority            string                `json:"priority,omitempty"`
	ExpectedArrivalDate *time.Time            `json:"expected_arrival_date,omitempty"`
	Items               []TransferItemRequest `json:"items"`
}

// UpdateTransferItemRequest ajuste de una línea (solo en CREATED). Sin unit_price conserva el precio.
type UpdateTransferItemRequest struct {
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// UpdateTransferRequest cambios de cabecera (solo en CREATED). Los campos ausentes no cambian.
type UpdateTransferRequest struct {
	FromLocationID      *string    `json:"from_location_id,omitempty"`
	ToLocationID        *string    `json:"to_location_id,omitempty"`
	Reason              *string    `json:"reason,omitempty"`
	Priority            *string    `json:"priority,omitempty"`
	ExpectedArrivalDate *time.Time `json:"expected_arrival_date,omitempty"`
}

// ShipTransferRequest despacho con guía opcional.
type ShipTransferRequest struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// TrackingRequest actualización de guía.
type TrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

// TransferItemResponse línea de traslado.
type TransferItemResponse struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineValue decimal.Decimal `json:"line_value"`
}

// TransferResponse salida de un traslado.
type TransferResponse struct {
	ID                  string                 `json:"id"`
	TransferNumber      string                 `json:"transfer_number"`
	FromWarehouseID     string                 `json:"from_warehouse_id"`
	FromLocationID      string                 `json:"from_location_id,omitempty"`
	ToWarehouseID       string                 `json:"to_warehouse_id"`
	ToLocationID        string                 `json:"to_location_id,omitempty"`
	Status              string                 `json:"status"`
	RequestedBy         string                 `json:"requested_by,omitempty"`
	ApprovedBy          string                 `json:"approved_by,omitempty"`
	ApprovalDate        *time.Time             `json:"approval_date,omitempty"`
	TrackingNumber      string                 `json:"tracking_number,omitempty"`
	Reason              string                 `json:"reason,omitempty"`
	Priority            string                 `json:"priority"`
	TransferDate        time.Time              `json:"transfer_date"`
	ExpectedArrivalDate *time.Time             `json:"expected_arrival_date,omitempty"`
	ShippedAt           *time.Time             `json:"shipped_at,omitempty"`
	ActualArrivalDate   *time.Time             `json:"actual_arrival_date,omitempty"`
	CancellationReason  string                 `json:"cancellation_reason,omitempty"`
	TotalValue          decimal.Decimal        `json:"total_value"`
	Items               []TransferItemResponse `json:"items"`
	Version             int64                  `json:"version"`
}

// TransferListResponse lista paginada de traslados.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// TransferQuery filtros de listado.
type TransferQuery struct {
	WarehouseID string
	Status      string
	Page        PageRequest
}
