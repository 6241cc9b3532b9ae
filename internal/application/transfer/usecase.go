package transfer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/application/sequence"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// UseCase ciclo de vida de traslados entre bodegas.
// El stock solo se mueve al completar: salida en origen y entrada en destino en la misma transacción.
type UseCase struct {
	txRunner  inventory.TxRunner
	ledger    *inventory.Ledger
	seq       inventory.Sequencer
	publisher inventory.EventPublisher
	clock     clock.Clock
	log       zerolog.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner inventory.TxRunner,
	ledger *inventory.Ledger,
	seq inventory.Sequencer,
	publisher inventory.EventPublisher,
	clk clock.Clock,
	log zerolog.Logger,
) *UseCase {
	return &UseCase{
		txRunner:  txRunner,
		ledger:    ledger,
		seq:       seq,
		publisher: publisher,
		clock:     clk,
		log:       log.With().Str("component", "transfers").Logger(),
	}
}

// Create crea un traslado en CREATED. Valida bodegas activas y disponibilidad en origen por línea.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateTransferRequest) (*dto.TransferResponse, error) {
	now := uc.clock.Now()
	number, err := uc.seq.Next(ctx, sequence.PrefixTransfer, now)
	if err != nil {
		return nil, err
	}
	items := make([]entity.TransferItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.TransferItem{
			ID:        uuid.New().String(),
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	t, err := entity.NewTransfer(entity.NewTransferParams{
		ID:                  uuid.New().String(),
		Number:              number,
		FromWarehouseID:     in.FromWarehouseID,
		FromLocationID:      in.FromLocationID,
		ToWarehouseID:       in.ToWarehouseID,
		ToLocationID:        in.ToLocationID,
		RequestedBy:         userID,
		Reason:              in.Reason,
		Priority:            strings.ToUpper(in.Priority),
		ExpectedArrivalDate: in.ExpectedArrivalDate,
		Items:               items,
	}, now)
	if err != nil {
		return nil, err
	}
	err = uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		if err := inventory.RequireWarehouse(ctx, s, t.FromWarehouseID); err != nil {
			return err
		}
		if err := inventory.RequireWarehouse(ctx, s, t.ToWarehouseID); err != nil {
			return err
		}
		for _, it := range t.Items {
			if err := uc.ledger.RequireAvailable(ctx, s, t.SourceKey(it.ItemID), it.Quantity); err != nil {
				return err
			}
		}
		return s.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	uc.publisher.Publish(ctx, t.PullEvents()...)
	uc.log.Info().
		Str("transfer_number", t.TransferNumber).
		Str("from_warehouse_id", t.FromWarehouseID).
		Str("to_warehouse_id", t.ToWarehouseID).
		Int("items", len(t.Items)).
		Msg("traslado creado")
	return toTransferResponse(t), nil
}

// AddItem agrega una línea a un traslado en CREATED.
func (uc *UseCase) AddItem(ctx context.Context, id string, in dto.TransferItemRequest) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, t *entity.Transfer) error {
		if err := t.AddItem(entity.TransferItem{
			ID:        uuid.New().String(),
			ItemID:    in.ItemID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		}, uc.clock.Now()); err != nil {
			return err
		}
		return uc.ledger.RequireAvailable(ctx, s, t.SourceKey(in.ItemID), in.Quantity)
	})
}

// Update cambia la cabecera de un traslado en CREATED. Si cambia la ubicación de origen
// revalida el disponible de todas las líneas.
func (uc *UseCase) Update(ctx context.Context, userID, id string, in dto.UpdateTransferRequest) (*dto.TransferResponse, error) {
	changes := entity.TransferHeaderChanges{
		FromLocationID:      in.FromLocationID,
		ToLocationID:        in.ToLocationID,
		Reason:              in.Reason,
		ExpectedArrivalDate: in.ExpectedArrivalDate,
	}
	if in.Priority != nil {
		p := strings.ToUpper(*in.Priority)
		changes.Priority = &p
	}
	return uc.mutate(ctx, id, func(s inventory.Stores, t *entity.Transfer) error {
		sourceChanged, err := t.UpdateHeader(changes, userID, uc.clock.Now())
		if err != nil || !sourceChanged {
			return err
		}
		for _, it := range t.Items {
			if err := uc.ledger.RequireAvailable(ctx, s, t.SourceKey(it.ItemID), it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateItem cambia cantidad y precio de una línea y revalida el disponible en origen.
func (uc *UseCase) UpdateItem(ctx context.Context, id, itemID string, in dto.UpdateTransferItemRequest) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, t *entity.Transfer) error {
		if err := t.UpdateItem(itemID, in.Quantity, in.UnitPrice, uc.clock.Now()); err != nil {
			return err
		}
		return uc.ledger.RequireAvailable(ctx, s, t.SourceKey(itemID), in.Quantity)
	})
}

// RemoveItem quita una línea de un traslado en CREATED.
func (uc *UseCase) RemoveItem(ctx context.Context, id, itemID string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, t *entity.Transfer) error {
		return t.RemoveItem(itemID, uc.clock.Now())
	})
}

// Approve CREATED -> APPROVED. No reserva stock.
func (uc *UseCase) Approve(ctx context.Context, userID, id string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, t *entity.Transfer) error {
		return t.Approve(userID, uc.clock.Now())
	})
}

// Ship APPROVED -> IN_TRANSIT, con guía opcional.
func (uc *UseCase) Ship(ctx context.Context, userID, id, trackingNumber string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, t *entity.Transfer) error {
		return t.Ship(trackingNumber, userID, uc.clock.Now())
	})
}

// SetTrackingNumber actualiza la guía de un traslado aprobado o en tránsito.
func (uc *UseCase) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, t *entity.Transfer) error {
		return t.SetTrackingNumber(trackingNumber, uc.clock.Now())
	})
}

// Cancel CREATED|APPROVED -> CANCELLED. Nunca mueve stock.
func (uc *UseCase) Cancel(ctx context.Context, userID, id, reason string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, t *entity.Transfer) error {
		return t.Cancel(reason, userID, uc.clock.Now())
	})
}

// Complete IN_TRANSIT -> COMPLETED. Por línea publica TRANSFER_OUT en origen y TRANSFER_IN en destino.
// Si alguna línea ya no tiene disponible en origen, nada se aplica.
func (uc *UseCase) Complete(ctx context.Context, userID, id string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, t *entity.Transfer) error {
		now := uc.clock.Now()
		if err := t.Complete(userID, now); err != nil {
			return err
		}
		keys := make([]entity.StockKey, 0, 2*len(t.Items))
		for _, it := range t.Items {
			keys = append(keys, t.SourceKey(it.ItemID), t.DestinationKey(it.ItemID))
		}
		if err := uc.ledger.Lock(ctx, s, keys...); err != nil {
			return err
		}
		for _, it := range t.Items {
			out := &entity.InventoryTransaction{
				ItemID:          it.ItemID,
				WarehouseID:     t.FromWarehouseID,
				LocationID:      t.FromLocationID,
				Type:            entity.TransactionTypeTransfer,
				Reason:          entity.ReasonTransferOut,
				Quantity:        -it.Quantity,
				TransactionDate: now,
				Reference:       t.TransferNumber,
				PerformedBy:     userID,
				IsApproved:      true,
				IdempotencyKey:  t.ID + ":" + it.ItemID + ":out",
			}
			if err := uc.ledger.Post(ctx, s, out); err != nil {
				return err
			}
			// La entrada viaja al costo promedio del origen.
			in := &entity.InventoryTransaction{
				ItemID:          it.ItemID,
				WarehouseID:     t.ToWarehouseID,
				LocationID:      t.ToLocationID,
				Type:            entity.TransactionTypeTransfer,
				Reason:          entity.ReasonTransferIn,
				Quantity:        it.Quantity,
				UnitCost:        out.UnitCost,
				TransactionDate: now,
				Reference:       t.TransferNumber,
				PerformedBy:     userID,
				IsApproved:      true,
				IdempotencyKey:  t.ID + ":" + it.ItemID + ":in",
			}
			if err := uc.ledger.Post(ctx, s, in); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID obtiene un traslado por ID.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.TransferResponse, error) {
	var t *entity.Transfer
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		t, err = s.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return toTransferResponse(t), nil
}

// List lista traslados por bodega (origen o destino) y estado.
func (uc *UseCase) List(ctx context.Context, q dto.TransferQuery) (*dto.TransferListResponse, error) {
	q.Page.DefaultPage()
	var list []*entity.Transfer
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		list, err = s.Transfers.List(ctx, repository.TransferFilter{
			WarehouseID: q.WarehouseID,
			Status:      entity.TransferStatus(strings.ToUpper(q.Status)),
			Limit:       q.Page.Limit,
			Offset:      q.Page.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		items = append(items, *toTransferResponse(t))
	}
	return &dto.TransferListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Page.Limit, Offset: q.Page.Offset},
	}, nil
}

// mutate relee el traslado en cada intento, aplica fn y lo persiste con control de versión.
// Los eventos se publican solo tras el commit.
func (uc *UseCase) mutate(ctx context.Context, id string, fn func(s inventory.Stores, t *entity.Transfer) error) (*dto.TransferResponse, error) {
	var out *entity.Transfer
	err := inventory.RetryOnConflict(ctx, inventory.DefaultAttempts, func() error {
		return uc.txRunner.Run(ctx, func(s inventory.Stores) error {
			t, err := s.Transfers.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if t == nil {
				return domain.NewValidationError("transfer.exists", domain.ErrNotFound, "traslado %s no encontrado", id)
			}
			if err := fn(s, t); err != nil {
				return err
			}
			if err := s.Transfers.Update(ctx, t); err != nil {
				return err
			}
			out = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	events := out.PullEvents()
	uc.publisher.Publish(ctx, events...)
	for _, ev := range events {
		uc.log.Info().
			Str("transfer_number", out.TransferNumber).
			Str("event", string(ev.Type)).
			Str("status", string(out.Status)).
			Msg("traslado actualizado")
	}
	return toTransferResponse(out), nil
}

func toTransferResponse(t *entity.Transfer) *dto.TransferResponse {
	if t == nil {
		return nil
	}
	items := make([]dto.TransferItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, dto.TransferItemResponse{
			ID:        it.ID,
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineValue: it.LineValue(),
		})
	}
	return &dto.TransferResponse{
		ID:                  t.ID,
		TransferNumber:      t.TransferNumber,
		FromWarehouseID:     t.FromWarehouseID,
		FromLocationID:      t.FromLocationID,
		ToWarehouseID:       t.ToWarehouseID,
		ToLocationID:        t.ToLocationID,
		Status:              string(t.Status),
		RequestedBy:         t.RequestedBy,
		ApprovedBy:          t.ApprovedBy,
		ApprovalDate:        t.ApprovalDate,
		TrackingNumber:      t.TrackingNumber,
		Reason:              t.Reason,
		Priority:            t.Priority,
		TransferDate:        t.TransferDate,
		ExpectedArrivalDate: t.ExpectedArrivalDate,
		ShippedAt:           t.ShippedAt,
		ActualArrivalDate:   t.ActualArrivalDate,
		CancellationReason:  t.CancellationReason,
		TotalValue:          t.TotalValue,
		Items:               items,
		Version:             t.Version,
	}
}
