package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleCycleCountRequest body para POST /api/inventory/cycle-counts.
type ScheduleCycleCountRequest struct {
	WarehouseID    string    `json:"warehouse_id"`
	LocationID     string    `json:"location_id,omitempty"`
	CountType      string    `json:"count_type,omitempty"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	CounterName    string    `json:"counter_name,omitempty"`
	SupervisorName string    `json:"supervisor_name,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ItemIDs        []string  `json:"item_ids"`
}

// RecordCountRequest conteo de una línea.
type RecordCountRequest struct {
	ItemID          string `json:"item_id"`
	CountedQuantity int64  `json:"counted_quantity"`
}

// CountLineRequest referencia a una línea (reconteo, omisión o alta).
type CountLineRequest struct {
	ItemID string `json:"item_id"`
}

// CompleteCycleCountRequest cierre del conteo.
type CompleteCycleCountRequest struct {
	PostAdjustments bool `json:"post_adjustments"`
}

// CycleCountItemResponse línea de conteo.
type CycleCountItemResponse struct {
	ID               string     `json:"id"`
	ItemID           string     `json:"item_id"`
	ExpectedQuantity int64      `json:"expected_quantity"`
	CountedQuantity  *int64     `json:"counted_quantity,omitempty"`
	Variance         *int64     `json:"variance,omitempty"`
	Status           string     `json:"status"`
	CountedBy        string     `json:"counted_by,omitempty"`
	CountedAt        *time.Time `json:"counted_at,omitempty"`
}

// CycleCountResponse salida de un conteo.
type CycleCountResponse struct {
	ID                     string                   `json:"id"`
	CountNumber            string                   `json:"count_number"`
	WarehouseID            string                   `json:"warehouse_id"`
	LocationID             string                   `json:"location_id,omitempty"`
	Status                 string                   `json:"status"`
	CountType              string                   `json:"count_type"`
	ScheduledDate          time.Time                `json:"scheduled_date"`
	ActualStartDate        *time.Time               `json:"actual_start_date,omitempty"`
	CompletionDate         *time.Time               `json:"completion_date,omitempty"`
	CounterName            string                   `json:"counter_name,omitempty"`
	SupervisorName         string                   `json:"supervisor_name,omitempty"`
	AdjustmentsPosted      bool                     `json:"adjustments_posted"`
	ItemsCountedCorrect    int                      `json:"items_counted_correct"`
	ItemsWithDiscrepancies int                      `json:"items_with_discrepancies"`
	AccuracyPercentage     decimal.Decimal          `json:"accuracy_percentage"`
	HighAccuracy           bool                     `json:"high_accuracy"`
	IsOverdue              bool                     `json:"is_overdue"`
	Items                  []CycleCountItemResponse `json:"items"`
	Version                int64                    `json:"version"`
}

// CycleCountListResponse lista paginada de conteos.
type CycleCountListResponse struct {
	Items []CycleCountResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// CycleCountQuery filtros de listado.
type CycleCountQuery struct {
	WarehouseID string
	Status      string
	Page        PageRequest
}
