package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.CycleCountRepository = (*CycleCountRepo)(nil)

const cycleCountColumns = `id, count_number, warehouse_id, location_id, status, count_type, scheduled_date,
	actual_start_date, completion_date, counter_name, supervisor_name, notes, cancellation_reason,
	adjustments_posted, items_counted_correct, items_with_discrepancies, accuracy_percentage,
	version, created_at, updated_at`

// CycleCountRepo conteos cíclicos (cabecera + líneas) sobre PostgreSQL.
type CycleCountRepo struct {
	q Querier
}

// NewCycleCountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCycleCountRepository(q Querier) *CycleCountRepo {
	return &CycleCountRepo{q: q}
}

// Create inserta cabecera y líneas.
func (r *CycleCountRepo) Create(ctx context.Context, c *entity.CycleCount) error {
	query := `INSERT INTO cycle_counts (` + cycleCountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CountNumber, c.WarehouseID, c.LocationID, string(c.Status), string(c.CountType), c.ScheduledDate,
		c.ActualStartDate, c.CompletionDate, nullable(c.CounterName), nullable(c.SupervisorName),
		nullable(c.Notes), nullable(c.CancellationReason), c.AdjustmentsPosted, c.ItemsCountedCorrect,
		c.ItemsWithDiscrepancies, c.AccuracyPercentage, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert cycle count: %w", err)
	}
	if err := r.insertItems(ctx, c); err != nil {
		return err
	}
	c.Version = 1
	return nil
}

// GetByID obtiene un conteo con sus líneas.
func (r *CycleCountRepo) GetByID(ctx context.Context, id string) (*entity.CycleCount, error) {
	query := `SELECT ` + cycleCountColumns + ` FROM cycle_counts WHERE id = $1`
	c, err := scanCycleCount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cycle count: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.CycleCount{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// Update reemplaza cabecera y líneas si la versión no cambió.
func (r *CycleCountRepo) Update(ctx context.Context, c *entity.CycleCount) error {
	query := `
		UPDATE cycle_counts SET
			status = $3, actual_start_date = $4, completion_date = $5, cancellation_reason = $6,
			adjustments_posted = $7, items_counted_correct = $8, items_with_discrepancies = $9,
			accuracy_percentage = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.Version, string(c.Status), c.ActualStartDate, c.CompletionDate, nullable(c.CancellationReason),
		c.AdjustmentsPosted, c.ItemsCountedCorrect, c.ItemsWithDiscrepancies, c.AccuracyPercentage, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update cycle count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM cycle_count_items WHERE cycle_count_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete cycle count items: %w", err)
	}
	if err := r.insertItems(ctx, c); err != nil {
		return err
	}
	c.Version++
	return nil
}

// List conteos por bodega y estado.
func (r *CycleCountRepo) List(ctx context.Context, f repository.CycleCountFilter) ([]*entity.CycleCount, error) {
	query := `SELECT ` + cycleCountColumns + `
		FROM cycle_counts
		WHERE ($1 = '' OR warehouse_id::text = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY count_number
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, f.WarehouseID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list cycle counts: %w", err)
	}
	var out []*entity.CycleCount
	for rows.Next() {
		c, err := scanCycleCount(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cycle count: %w", err)
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CycleCountRepo) insertItems(ctx context.Context, c *entity.CycleCount) error {
	query := `
		INSERT INTO cycle_count_items (id, cycle_count_id, item_id, expected_quantity, counted_quantity,
			status, counted_by, counted_at, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, it := range c.Items {
		if _, err := r.q.Exec(ctx, query,
			it.ID, c.ID, it.ItemID, it.ExpectedQuantity, it.CountedQuantity,
			string(it.Status), nullable(it.CountedBy), it.CountedAt, i,
		); err != nil {
			return fmt.Errorf("insert cycle count item: %w", err)
		}
	}
	return nil
}

func (r *CycleCountRepo) loadItems(ctx context.Context, counts []*entity.CycleCount) error {
	if len(counts) == 0 {
		return nil
	}
	byID := make(map[string]*entity.CycleCount, len(counts))
	ids := make([]string, 0, len(counts))
	for _, c := range counts {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	query := `
		SELECT cycle_count_id, id, item_id, expected_quantity, counted_quantity, status, counted_by, counted_at
		FROM cycle_count_items WHERE cycle_count_id::text = ANY($1)
		ORDER BY cycle_count_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list cycle count items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			countID, status string
			countedBy       *string
			it              entity.CycleCountItem
		)
		if err := rows.Scan(&countID, &it.ID, &it.ItemID, &it.ExpectedQuantity, &it.CountedQuantity,
			&status, &countedBy, &it.CountedAt); err != nil {
			return fmt.Errorf("scan cycle count item: %w", err)
		}
		it.Status = entity.CountLineStatus(status)
		it.CountedBy = deref(countedBy)
		if c := byID[countID]; c != nil {
			c.Items = append(c.Items, it)
		}
	}
	return rows.Err()
}

func scanCycleCount(row pgx.Row) (*entity.CycleCount, error) {
	var (
		c                                        entity.CycleCount
		status, countType                        string
		counter, supervisor, notes, cancellation *string
	)
	err := row.Scan(
		&c.ID, &c.CountNumber, &c.WarehouseID, &c.LocationID, &status, &countType, &c.ScheduledDate,
		&c.ActualStartDate, &c.CompletionDate, &counter, &supervisor, &notes, &cancellation,
		&c.AdjustmentsPosted, &c.ItemsCountedCorrect, &c.ItemsWithDiscrepancies, &c.AccuracyPercentage,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = entity.CycleCountStatus(status)
	c.CountType = entity.CountType(countType)
	c.CounterName = deref(counter)
	c.SupervisorName = deref(supervisor)
	c.Notes = deref(notes)
	c.CancellationReason = deref(cancellation)
	return &c, nil
}
