package dto

import "time"

// CreateReservationRequest body para POST /api/inventory/reservations.
type CreateReservationRequest struct {
	ItemID          string     `json:"item_id"`
	WarehouseID     string     `json:"warehouse_id"`
	LocationID      string     `json:"location_id,omitempty"`
	Quantity        int64      `json:"quantity"`
	ReservationType string     `json:"reservation_type,omitempty"`
	ReferenceNumber string     `json:"reference_number,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// ReservationResponse salida de una reserva.
type ReservationResponse struct {
	ID                string     `json:"id"`
	ReservationNumber string     `json:"reservation_number"`
	ItemID            string     `json:"item_id"`
	WarehouseID       string     `json:"warehouse_id"`
	LocationID        string     `json:"location_id,omitempty"`
	Quantity          int64      `json:"quantity_reserved"`
	ReservationType   string     `json:"reservation_type"`
	ReferenceNumber   string     `json:"reference_number,omitempty"`
	ReservedBy        string     `json:"reserved_by,omitempty"`
	ReservationDate   time.Time  `json:"reservation_date"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
	CompletionDate    *time.Time `json:"completion_date,omitempty"`
	FulfilledAt       *time.Time `json:"fulfilled_at,omitempty"`
	ReleaseReason     string     `json:"release_reason,omitempty"`
	Status            string     `json:"status"`
	Version           int64      `json:"version"`
}

// ReservationListResponse lista paginada de reservas.
type ReservationListResponse struct {
	Items []ReservationResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// ReservationQuery filtros de listado.
type ReservationQuery struct {
	ItemID      string
	WarehouseID string
	Status      string
	Page        PageRequest
}
