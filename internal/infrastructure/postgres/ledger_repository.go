package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `seq, id, transaction_number, item_id, warehouse_id, location_id, type, reason,
	quantity, quantity_before, quantity_after, reserved_delta, unit_cost, total_cost,
	transaction_date, reference, performed_by, is_approved, idempotency_key, notes, created_at`

// LedgerRepo libro de inventario sobre PostgreSQL. No expone UPDATE ni DELETE.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta la entrada. Una idempotency_key repetida no aborta la tx: devuelve domain.ErrDuplicate.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.InventoryTransaction) (string, error) {
	query := `
		INSERT INTO inventory_transactions (
			id, transaction_number, item_id, warehouse_id, location_id, type, reason,
			quantity, quantity_before, quantity_after, reserved_delta, unit_cost, total_cost,
			transaction_date, reference, performed_by, is_approved, idempotency_key, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		e.ID, e.TransactionNumber, e.ItemID, e.WarehouseID, e.LocationID, string(e.Type), e.Reason,
		e.Quantity, e.QuantityBefore, e.QuantityAfter, e.ReservedDelta, e.UnitCost, e.TotalCost,
		e.TransactionDate, nullable(e.Reference), nullable(e.PerformedBy), e.IsApproved,
		nullable(e.IdempotencyKey), nullable(e.Notes), e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrDuplicate
		}
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicate
		}
		return "", fmt.Errorf("insert inventory transaction: %w", err)
	}
	return e.ID, nil
}

// ListByKey entradas de una clave en orden (fecha, secuencia).
func (r *LedgerRepo) ListByKey(ctx context.Context, key entity.StockKey) ([]*entity.InventoryTransaction, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_transactions
		WHERE item_id = $1 AND warehouse_id = $2 AND location_id = $3
		ORDER BY transaction_date, seq`
	return r.list(ctx, query, key.ItemID, key.WarehouseID, key.LocationID)
}

// List entradas filtradas, en orden cronológico.
func (r *LedgerRepo) List(ctx context.Context, f repository.LedgerFilter) ([]*entity.InventoryTransaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.Reference != "" {
		add("reference = $%d", f.Reference)
	}
	if f.From != nil {
		add("transaction_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("transaction_date < $%d", *f.To)
	}
	query := `SELECT ` + ledgerColumns + ` FROM inventory_transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY transaction_date, seq LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return r.list(ctx, query, args...)
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()
	var out []*entity.InventoryTransaction
	for rows.Next() {
		var (
			e                                         entity.InventoryTransaction
			typ                                       string
			reference, performedBy, idempotency, note *string
		)
		if err := rows.Scan(
			&e.Seq, &e.ID, &e.TransactionNumber, &e.ItemID, &e.WarehouseID, &e.LocationID, &typ, &e.Reason,
			&e.Quantity, &e.QuantityBefore, &e.QuantityAfter, &e.ReservedDelta, &e.UnitCost, &e.TotalCost,
			&e.TransactionDate, &reference, &performedBy, &e.IsApproved, &idempotency, &note, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		e.Type = entity.TransactionType(typ)
		e.Reference = deref(reference)
		e.PerformedBy = deref(performedBy)
		e.IdempotencyKey = deref(idempotency)
		e.Notes = deref(note)
		out = append(out, &e)
	}
	return out, rows.Err()
}
