package reservation

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

// UseCase ciclo de vida de reservas: retenciones blandas sobre el disponible.
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
		log:       log.With().Str("component", "reservations").Logger(),
	}
}

// Create reserva qty del disponible de la clave. Rechaza qty > disponible sin tocar cantidades.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	now := uc.clock.Now()
	number, err := uc.seq.Next(ctx, sequence.PrefixReservation, now)
	if err != nil {
		return nil, err
	}
	res, err := entity.NewReservation(entity.NewReservationParams{
		ID:              uuid.New().String(),
		Number:          number,
		ItemID:          in.ItemID,
		WarehouseID:     in.WarehouseID,
		LocationID:      in.LocationID,
		Quantity:        in.Quantity,
		Type:            entity.ReservationType(strings.ToUpper(in.ReservationType)),
		ReferenceNumber: in.ReferenceNumber,
		ReservedBy:      userID,
		ExpirationDate:  in.ExpiresAt,
		Notes:           in.Notes,
	}, now)
	if err != nil {
		return nil, err
	}
	err = uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		if err := inventory.RequireWarehouse(ctx, s, res.WarehouseID); err != nil {
			return err
		}
		if err := uc.ledger.Reserve(ctx, s, res.Key(), res.Quantity); err != nil {
			return err
		}
		return s.Reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	uc.publisher.Publish(ctx, res.PullEvents()...)
	uc.log.Info().
		Str("reservation_number", res.ReservationNumber).
		Str("item_id", res.ItemID).
		Str("warehouse_id", res.WarehouseID).
		Int64("quantity", res.Quantity).
		Msg("reserva creada")
	return toReservationResponse(res), nil
}

// Allocate Active -> Allocated. La proyección no cambia: la cantidad sigue retenida hasta su salida.
func (uc *UseCase) Allocate(ctx context.Context, userID, id string) (*dto.ReservationResponse, error) {
	return uc.transition(ctx, id, userID, entity.ReservationAllocate, "")
}

// Release Active -> Released; devuelve la cantidad al disponible.
func (uc *UseCase) Release(ctx context.Context, userID, id, reason string) (*dto.ReservationResponse, error) {
	return uc.transition(ctx, id, userID, entity.ReservationRelease, reason)
}

// Cancel Active -> Cancelled; devuelve la cantidad al disponible.
func (uc *UseCase) Cancel(ctx context.Context, userID, id, reason string) (*dto.ReservationResponse, error) {
	return uc.transition(ctx, id, userID, entity.ReservationCancel, reason)
}

// Expire vence una reserva activa cuya fecha de expiración ya pasó. Atribuida a System.
func (uc *UseCase) Expire(ctx context.Context, id string) (*dto.ReservationResponse, error) {
	return uc.transition(ctx, id, entity.SystemUser, entity.ReservationExpire, "")
}

// ExpireDue vence todas las reservas activas vencidas. Un fallo individual se registra y no detiene el barrido.
func (uc *UseCase) ExpireDue(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	var due []*entity.Reservation
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		due, err = s.Reservations.ListDue(ctx, uc.clock.Now(), batchSize)
		return err
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, r := range due {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		out, err := uc.Expire(ctx, r.ID)
		if err != nil {
			uc.log.Error().Err(err).Str("reservation_number", r.ReservationNumber).Msg("no se pudo vencer la reserva")
			continue
		}
		if out.Status == string(entity.ReservationExpired) {
			expired++
		}
	}
	return expired, nil
}

// GetByID obtiene una reserva por ID.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.ReservationResponse, error) {
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		res, err = s.Reservations.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return toReservationResponse(res), nil
}

// List lista reservas con filtros y paginación.
func (uc *UseCase) List(ctx context.Context, q dto.ReservationQuery) (*dto.ReservationListResponse, error) {
	q.Page.DefaultPage()
	var list []*entity.Reservation
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		list, err = s.Reservations.List(ctx, repository.ReservationFilter{
			ItemID:      q.ItemID,
			WarehouseID: q.WarehouseID,
			Status:      entity.ReservationStatus(strings.ToUpper(q.Status)),
			Limit:       q.Page.Limit,
			Offset:      q.Page.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ReservationResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *toReservationResponse(r))
	}
	return &dto.ReservationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Page.Limit, Offset: q.Page.Offset},
	}, nil
}

// transition relee la reserva en cada intento, aplica la acción y, si deja de retener, devuelve
// la cantidad al disponible. Sobre una reserva terminal no cambia nada ni emite eventos.
func (uc *UseCase) transition(ctx context.Context, id, userID string, action entity.ReservationAction, reason string) (*dto.ReservationResponse, error) {
	var res *entity.Reservation
	var changed bool
	err := inventory.RetryOnConflict(ctx, inventory.DefaultAttempts, func() error {
		changed = false
		return uc.txRunner.Run(ctx, func(s inventory.Stores) error {
			r, err := s.Reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if r == nil {
				return domain.NewValidationError("reservation.exists", domain.ErrNotFound, "reserva %s no encontrada", id)
			}
			now := uc.clock.Now()
			held := r.Holds()
			switch action {
			case entity.ReservationAllocate:
				changed, err = r.Allocate(userID, now)
			case entity.ReservationRelease:
				changed, err = r.Release(reason, userID, now)
			case entity.ReservationCancel:
				changed, err = r.Cancel(reason, userID, now)
			case entity.ReservationExpire:
				changed, err = r.Expire(now)
			default:
				err = domain.ErrInvalidTransition
			}
			if err != nil {
				return err
			}
			res = r
			if !changed {
				return nil
			}
			// Orden de bloqueo: reserva y luego proyección, igual que la salida contra reserva.
			if err := s.Reservations.Update(ctx, r); err != nil {
				return err
			}
			if held && !r.Holds() {
				return uc.ledger.Unreserve(ctx, s, r.Key(), r.Quantity)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		uc.log.Debug().
			Str("reservation_number", res.ReservationNumber).
			Str("status", string(res.Status)).
			Str("action", string(action)).
			Msg("reserva ya terminal, sin cambios")
		return toReservationResponse(res), nil
	}
	uc.publisher.Publish(ctx, res.PullEvents()...)
	uc.log.Info().
		Str("reservation_number", res.ReservationNumber).
		Str("status", string(res.Status)).
		Str("performed_by", userID).
		Msg("reserva actualizada")
	return toReservationResponse(res), nil
}

func toReservationResponse(r *entity.Reservation) *dto.ReservationResponse {
	if r == nil {
		return nil
	}
	return &dto.ReservationResponse{
		ID:                r.ID,
		ReservationNumber: r.ReservationNumber,
		ItemID:            r.ItemID,
		WarehouseID:       r.WarehouseID,
		LocationID:        r.LocationID,
		Quantity:          r.Quantity,
		ReservationType:   string(r.Type),
		ReferenceNumber:   r.ReferenceNumber,
		ReservedBy:        r.ReservedBy,
		ReservationDate:   r.ReservationDate,
		ExpirationDate:    r.ExpirationDate,
		CompletionDate:    r.CompletionDate,
		FulfilledAt:       r.FulfilledAt,
		ReleaseReason:     r.ReleaseReason,
		Status:            string(r.Status),
		Version:           r.Version,
	}
}
