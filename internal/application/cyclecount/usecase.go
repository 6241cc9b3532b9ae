package cyclecount

import (
	"context"
	"strings"
	"time"

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

// UseCase conteos cíclicos: programación, captura de conteos y ajuste del libro por diferencias.
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
		log:       log.With().Str("component", "cycle_counts").Logger(),
	}
}

// Schedule programa un conteo en SCHEDULED.
func (uc *UseCase) Schedule(ctx context.Context, userID string, in dto.ScheduleCycleCountRequest) (*dto.CycleCountResponse, error) {
	now := uc.clock.Now()
	number, err := uc.seq.Next(ctx, sequence.PrefixCycleCount, now)
	if err != nil {
		return nil, err
	}
	items := make([]entity.CycleCountItem, 0, len(in.ItemIDs))
	for _, itemID := range in.ItemIDs {
		items = append(items, entity.CycleCountItem{ID: uuid.New().String(), ItemID: itemID})
	}
	c, err := entity.NewCycleCount(entity.NewCycleCountParams{
		ID:             uuid.New().String(),
		Number:         number,
		WarehouseID:    in.WarehouseID,
		LocationID:     in.LocationID,
		CountType:      entity.CountType(strings.ToUpper(in.CountType)),
		ScheduledDate:  in.ScheduledDate,
		CounterName:    in.CounterName,
		SupervisorName: in.SupervisorName,
		Notes:          in.Notes,
		Items:          items,
	}, userID, now)
	if err != nil {
		return nil, err
	}
	err = uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		if err := inventory.RequireWarehouse(ctx, s, c.WarehouseID); err != nil {
			return err
		}
		return s.CycleCounts.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	uc.publisher.Publish(ctx, c.PullEvents()...)
	uc.log.Info().
		Str("count_number", c.CountNumber).
		Str("warehouse_id", c.WarehouseID).
		Str("count_type", string(c.CountType)).
		Msg("conteo programado")
	return toCycleCountResponse(c, now), nil
}

// Start SCHEDULED -> IN_PROGRESS. Fija la cantidad esperada de cada línea con la existencia actual.
// Un conteo FULL incorpora todos los items con fila en la bodega/ubicación.
func (uc *UseCase) Start(ctx context.Context, userID, id string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, c *entity.CycleCount) error {
		var extra []entity.CycleCountItem
		if c.CountType == entity.CountTypeFull {
			levels, err := s.StockLevels.ListByWarehouse(ctx, c.WarehouseID, c.LocationID)
			if err != nil {
				return err
			}
			for _, l := range levels {
				extra = append(extra, entity.CycleCountItem{ID: uuid.New().String(), ItemID: l.ItemID})
			}
		}
		itemIDs := make([]string, 0, len(c.Items)+len(extra))
		for _, it := range c.Items {
			itemIDs = append(itemIDs, it.ItemID)
		}
		for _, it := range extra {
			itemIDs = append(itemIDs, it.ItemID)
		}
		expected := make(map[string]int64, len(itemIDs))
		for _, itemID := range itemIDs {
			level, err := s.StockLevels.Get(ctx, c.Key(itemID))
			if err != nil {
				return err
			}
			expected[itemID] = level.QuantityOnHand
		}
		return c.Start(expected, extra, userID, uc.clock.Now())
	})
}

// AddItem agrega una línea a un conteo programado o en curso. En curso fija la cantidad
// esperada con la existencia actual.
func (uc *UseCase) AddItem(ctx context.Context, id, itemID string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, c *entity.CycleCount) error {
		var expected int64
		if c.Status == entity.CycleCountInProgress {
			level, err := s.StockLevels.Get(ctx, c.Key(itemID))
			if err != nil {
				return err
			}
			expected = level.QuantityOnHand
		}
		return c.AddItem(entity.CycleCountItem{ID: uuid.New().String(), ItemID: itemID}, expected, uc.clock.Now())
	})
}

// RecordCount registra la cantidad contada de una línea; el último conteo gana.
func (uc *UseCase) RecordCount(ctx context.Context, userID, id string, in dto.RecordCountRequest) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, c *entity.CycleCount) error {
		return c.RecordCount(in.ItemID, in.CountedQuantity, userID, uc.clock.Now())
	})
}

// RequestRecount devuelve una línea a reconteo.
func (uc *UseCase) RequestRecount(ctx context.Context, id, itemID string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, c *entity.CycleCount) error {
		return c.RequestRecount(itemID, uc.clock.Now())
	})
}

// SkipItem excluye una línea del cierre.
func (uc *UseCase) SkipItem(ctx context.Context, id, itemID string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, c *entity.CycleCount) error {
		return c.SkipItem(itemID, uc.clock.Now())
	})
}

// Complete IN_PROGRESS -> COMPLETED. Con postAdjustments publica un ajuste por cada diferencia
// distinta de cero en la misma transacción.
func (uc *UseCase) Complete(ctx context.Context, userID, id string, postAdjustments bool) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, c *entity.CycleCount) error {
		variances, err := c.Complete(postAdjustments, userID, uc.clock.Now())
		if err != nil {
			return err
		}
		return uc.postAdjustments(ctx, s, c, variances, userID)
	})
}

// Reconcile publica los ajustes de un conteo completado sin ajustes. Repetirlo no aplica nada.
func (uc *UseCase) Reconcile(ctx context.Context, userID, id string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(s inventory.Stores, c *entity.CycleCount) error {
		variances, changed, err := c.Reconcile(userID, uc.clock.Now())
		if err != nil || !changed {
			return err
		}
		return uc.postAdjustments(ctx, s, c, variances, userID)
	})
}

// Cancel SCHEDULED|IN_PROGRESS -> CANCELLED.
func (uc *UseCase) Cancel(ctx context.Context, userID, id, reason string) (*dto.CycleCountResponse, error) {
	return uc.mutate(ctx, id, func(_ inventory.Stores, c *entity.CycleCount) error {
		return c.Cancel(reason, userID, uc.clock.Now())
	})
}

// GetByID obtiene un conteo por ID.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.CycleCountResponse, error) {
	var c *entity.CycleCount
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		c, err = s.CycleCounts.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toCycleCountResponse(c, uc.clock.Now()), nil
}

// List lista conteos por bodega y estado.
func (uc *UseCase) List(ctx context.Context, q dto.CycleCountQuery) (*dto.CycleCountListResponse, error) {
	q.Page.DefaultPage()
	var list []*entity.CycleCount
	err := uc.txRunner.Run(ctx, func(s inventory.Stores) error {
		var err error
		list, err = s.CycleCounts.List(ctx, repository.CycleCountFilter{
			WarehouseID: q.WarehouseID,
			Status:      entity.CycleCountStatus(strings.ToUpper(q.Status)),
			Limit:       q.Page.Limit,
			Offset:      q.Page.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	items := make([]dto.CycleCountResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *toCycleCountResponse(c, now))
	}
	return &dto.CycleCountListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Page.Limit, Offset: q.Page.Offset},
	}, nil
}

// postAdjustments un ajuste aprobado por diferencia. Puede dejar existencia negativa si el conteo lo indica.
func (uc *UseCase) postAdjustments(ctx context.Context, s inventory.Stores, c *entity.CycleCount, variances []entity.CountVariance, userID string) error {
	if len(variances) == 0 {
		return nil
	}
	keys := make([]entity.StockKey, 0, len(variances))
	for _, v := range variances {
		keys = append(keys, c.Key(v.ItemID))
	}
	if err := uc.ledger.Lock(ctx, s, keys...); err != nil {
		return err
	}
	now := uc.clock.Now()
	for _, v := range variances {
		entry := &entity.InventoryTransaction{
			ItemID:          v.ItemID,
			WarehouseID:     c.WarehouseID,
			LocationID:      c.LocationID,
			Type:            entity.TransactionTypeAdjustment,
			Reason:          entity.ReasonCycleCountAdjustment,
			Quantity:        v.Variance,
			TransactionDate: now,
			Reference:       c.CountNumber,
			PerformedBy:     userID,
			IsApproved:      true,
			IdempotencyKey:  c.ID + ":" + v.ItemID + ":adj",
		}
		if err := uc.ledger.Post(ctx, s, entry); err != nil {
			return err
		}
		uc.log.Info().
			Str("count_number", c.CountNumber).
			Str("item_id", v.ItemID).
			Int64("expected", v.Expected).
			Int64("counted", v.Counted).
			Int64("variance", v.Variance).
			Msg("ajuste por conteo publicado")
	}
	return nil
}

// mutate relee el conteo en cada intento, aplica fn y lo persiste con control de versión.
func (uc *UseCase) mutate(ctx context.Context, id string, fn func(s inventory.Stores, c *entity.CycleCount) error) (*dto.CycleCountResponse, error) {
	var out *entity.CycleCount
	err := inventory.RetryOnConflict(ctx, inventory.DefaultAttempts, func() error {
		return uc.txRunner.Run(ctx, func(s inventory.Stores) error {
			c, err := s.CycleCounts.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return domain.NewValidationError("cycle_count.exists", domain.ErrNotFound, "conteo %s no encontrado", id)
			}
			if err := fn(s, c); err != nil {
				return err
			}
			if err := s.CycleCounts.Update(ctx, c); err != nil {
				return err
			}
			out = c
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
			Str("count_number", out.CountNumber).
			Str("event", string(ev.Type)).
			Str("status", string(out.Status)).
			Msg("conteo actualizado")
	}
	return toCycleCountResponse(out, uc.clock.Now()), nil
}

func toCycleCountResponse(c *entity.CycleCount, now time.Time) *dto.CycleCountResponse {
	if c == nil {
		return nil
	}
	items := make([]dto.CycleCountItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		line := dto.CycleCountItemResponse{
			ID:               it.ID,
			ItemID:           it.ItemID,
			ExpectedQuantity: it.ExpectedQuantity,
			CountedQuantity:  it.CountedQuantity,
			Status:           string(it.Status),
			CountedBy:        it.CountedBy,
			CountedAt:        it.CountedAt,
		}
		if v, ok := it.Variance(); ok {
			line.Variance = &v
		}
		items = append(items, line)
	}
	return &dto.CycleCountResponse{
		ID:                     c.ID,
		CountNumber:            c.CountNumber,
		WarehouseID:            c.WarehouseID,
		LocationID:             c.LocationID,
		Status:                 string(c.Status),
		CountType:              string(c.CountType),
		ScheduledDate:          c.ScheduledDate,
		ActualStartDate:        c.ActualStartDate,
		CompletionDate:         c.CompletionDate,
		CounterName:            c.CounterName,
		SupervisorName:         c.SupervisorName,
		AdjustmentsPosted:      c.AdjustmentsPosted,
		ItemsCountedCorrect:    c.ItemsCountedCorrect,
		ItemsWithDiscrepancies: c.ItemsWithDiscrepancies,
		AccuracyPercentage:     c.AccuracyPercentage,
		HighAccuracy:           c.HasHighAccuracy(entity.HighAccuracyThreshold),
		IsOverdue:              c.IsOverdue(now),
		Items:                  items,
		Version:                c.Version,
	}
}
