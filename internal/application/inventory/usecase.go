package inventory

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// Tipos de movimiento aceptados por RegisterMovement.
const (
	MovementTypeReceipt    = "RECEIPT"
	MovementTypeIssue      = "ISSUE"
	MovementTypeAdjustment = "ADJUSTMENT"
)

// RegisterMovementUseCase registra entradas, salidas y ajustes manuales de forma transaccional,
// con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
// Los traslados entre bodegas siguen su propio ciclo de vida (paquete transfer).
type RegisterMovementUseCase struct {
	txRunner TxRunner
	ledger   *Ledger
	clock    clock.Clock
	log      zerolog.Logger
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(txRunner TxRunner, ledger *Ledger, clk clock.Clock, log zerolog.Logger) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{
		txRunner: txRunner,
		ledger:   ledger,
		clock:    clk,
		log:      log.With().Str("component", "movements").Logger(),
	}
}

// RegisterMovement valida el request, inicia la transacción y publica la entrada en el libro.
// RECEIPT: cantidad positiva y unit_cost obligatorio; recalcula costo promedio.
// ISSUE: cantidad positiva, no puede superar el disponible; con reservation_id consume una reserva asignada.
// ADJUSTMENT: cantidad firmada; la existencia solo queda negativa si approved.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*dto.LedgerEntryResponse, error) {
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	if in.ItemID == "" || in.WarehouseID == "" {
		return nil, domain.NewValidationError("movement.key_required", domain.ErrInvalidInput, "item_id y warehouse_id son obligatorios")
	}
	entry := &entity.InventoryTransaction{
		ItemID:      in.ItemID,
		WarehouseID: in.WarehouseID,
		LocationID:  in.LocationID,
		Reference:   in.Reference,
		PerformedBy: userID,
		Notes:       in.Notes,
	}
	switch in.Type {
	case MovementTypeReceipt:
		if in.Quantity <= 0 {
			return nil, domain.NewValidationError("movement.quantity_positive", domain.ErrInvalidInput, "cantidad debe ser mayor a cero")
		}
		if in.UnitCost == nil || in.UnitCost.IsNegative() {
			return nil, domain.NewValidationError("movement.unit_cost_required", domain.ErrInvalidInput, "unit_cost es obligatorio en entradas")
		}
		entry.Type = entity.TransactionTypeReceipt
		entry.Reason = reasonOr(in.Reason, entity.ReasonGoodsReceipt)
		entry.Quantity = in.Quantity
		entry.UnitCost = *in.UnitCost
		entry.IsApproved = true
	case MovementTypeIssue:
		if in.Quantity <= 0 {
			return nil, domain.NewValidationError("movement.quantity_positive", domain.ErrInvalidInput, "cantidad debe ser mayor a cero")
		}
		entry.Type = entity.TransactionTypeIssue
		entry.Reason = reasonOr(in.Reason, entity.ReasonSaleIssue)
		entry.Quantity = -in.Quantity
		entry.IsApproved = true
	case MovementTypeAdjustment:
		if in.Quantity == 0 {
			return nil, domain.NewValidationError("movement.quantity_non_zero", domain.ErrInvalidInput, "el ajuste no puede ser cero")
		}
		entry.Type = entity.TransactionTypeAdjustment
		entry.Reason = reasonOr(in.Reason, entity.ReasonManualAdjustment)
		entry.Quantity = in.Quantity
		entry.IsApproved = in.Approved
		if in.UnitCost != nil {
			entry.UnitCost = *in.UnitCost
		}
	default:
		return nil, domain.NewValidationError("movement.type_invalid", domain.ErrInvalidInput, "tipo %q no soportado", in.Type)
	}
	if in.ReservationID != "" && entry.Type != entity.TransactionTypeIssue {
		return nil, domain.NewValidationError("movement.reservation_only_on_issue", domain.ErrInvalidInput, "reservation_id solo aplica a salidas")
	}

	// Inicia transacción; Commit si todo ok, Rollback si algo falla (TxRunner.Run lo hace)
	err := RetryOnConflict(ctx, DefaultAttempts, func() error {
		attempt := *entry
		err := uc.txRunner.Run(ctx, func(s Stores) error {
			if err := RequireWarehouse(ctx, s, in.WarehouseID); err != nil {
				return err
			}
			if in.ReservationID != "" {
				if err := uc.consumeReservation(ctx, s, &attempt, in.ReservationID); err != nil {
					return err
				}
			}
			return uc.ledger.Post(ctx, s, &attempt)
		})
		if err == nil {
			*entry = attempt
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("transaction_number", entry.TransactionNumber).
		Str("type", string(entry.Type)).
		Str("item_id", entry.ItemID).
		Str("warehouse_id", entry.WarehouseID).
		Int64("quantity", entry.Quantity).
		Msg("movimiento registrado")
	return ToLedgerEntryResponse(entry), nil
}

// consumeReservation libera la retención de una reserva asignada al despachar su mercancía.
func (uc *RegisterMovementUseCase) consumeReservation(ctx context.Context, s Stores, entry *entity.InventoryTransaction, reservationID string) error {
	res, err := s.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if res == nil {
		return domain.NewValidationError("reservation.exists", domain.ErrNotFound, "reserva %s no encontrada", reservationID)
	}
	if res.ItemID != entry.ItemID || res.WarehouseID != entry.WarehouseID || res.LocationID != entry.LocationID {
		return domain.NewValidationError("movement.reservation_matches_key", domain.ErrInvalidInput, "la reserva %s es de otro item o bodega", res.ReservationNumber)
	}
	if -entry.Quantity > res.Quantity {
		return domain.NewValidationError("movement.issue_within_reservation", domain.ErrInvalidInput, "la salida supera la reserva %s", res.ReservationNumber)
	}
	if err := res.Fulfill(uc.clock.Now()); err != nil {
		return err
	}
	if err := s.Reservations.Update(ctx, res); err != nil {
		return err
	}
	entry.ReservedDelta = -res.Quantity
	if entry.Reference == "" {
		entry.Reference = res.ReservationNumber
	}
	return nil
}

func reasonOr(reason, def string) string {
	reason = strings.ToUpper(strings.TrimSpace(reason))
	if reason == "" {
		return def
	}
	return reason
}

// ToLedgerEntryResponse mapea una entrada del libro a su DTO.
func ToLedgerEntryResponse(t *entity.InventoryTransaction) *dto.LedgerEntryResponse {
	if t == nil {
		return nil
	}
	return &dto.LedgerEntryResponse{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		ItemID:            t.ItemID,
		WarehouseID:       t.WarehouseID,
		LocationID:        t.LocationID,
		Type:              string(t.Type),
		Reason:            t.Reason,
		Quantity:          t.Quantity,
		QuantityBefore:    t.QuantityBefore,
		QuantityAfter:     t.QuantityAfter,
		ReservedDelta:     t.ReservedDelta,
		UnitCost:          t.UnitCost,
		TotalCost:         t.TotalCost,
		TransactionDate:   t.TransactionDate,
		Reference:         t.Reference,
		PerformedBy:       t.PerformedBy,
		IsApproved:        t.IsApproved,
		Notes:             t.Notes,
	}
}

// ToStockLevelResponse mapea la proyección a su DTO.
func ToStockLevelResponse(l *entity.StockLevel) *dto.StockLevelResponse {
	if l == nil {
		return nil
	}
	return &dto.StockLevelResponse{
		ItemID:            l.ItemID,
		WarehouseID:       l.WarehouseID,
		LocationID:        l.LocationID,
		QuantityOnHand:    l.QuantityOnHand,
		QuantityReserved:  l.QuantityReserved,
		QuantityAvailable: l.QuantityAvailable,
		AverageCost:       l.AverageCost,
		LastMovementAt:    l.LastMovementAt,
		LastCountAt:       l.LastCountAt,
		UpdatedAt:         l.UpdatedAt,
	}
}
