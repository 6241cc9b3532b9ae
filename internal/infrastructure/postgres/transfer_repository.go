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

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, transfer_number, from_warehouse_id, from_location_id, to_warehouse_id, to_location_id,
	status, requested_by, approved_by, approval_date, tracking_number, reason, priority, transfer_date,
	expected_arrival_date, shipped_at, actual_arrival_date, cancellation_reason, total_value,
	version, created_at, updated_at`

// TransferRepo traslados (cabecera + líneas) sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create inserta cabecera y líneas.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.TransferNumber, t.FromWarehouseID, t.FromLocationID, t.ToWarehouseID, t.ToLocationID,
		string(t.Status), nullable(t.RequestedBy), nullable(t.ApprovedBy), t.ApprovalDate,
		nullable(t.TrackingNumber), nullable(t.Reason), t.Priority, t.TransferDate,
		t.ExpectedArrivalDate, t.ShippedAt, t.ActualArrivalDate, nullable(t.CancellationReason), t.TotalValue,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	if err := r.insertItems(ctx, t); err != nil {
		return err
	}
	t.Version = 1
	return nil
}

// GetByID obtiene un traslado con sus líneas.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.Transfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// Update reemplaza cabecera y líneas si la versión no cambió. Las bodegas y el número no cambian.
func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	query := `
		UPDATE transfers SET
			status = $3, approved_by = $4, approval_date = $5, tracking_number = $6,
			shipped_at = $7, actual_arrival_date = $8, cancellation_reason = $9,
			total_value = $10, updated_at = $11,
			from_location_id = $12, to_location_id = $13, reason = $14, priority = $15,
			expected_arrival_date = $16, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		t.ID, t.Version, string(t.Status), nullable(t.ApprovedBy), t.ApprovalDate,
		nullable(t.TrackingNumber), t.ShippedAt, t.ActualArrivalDate, nullable(t.CancellationReason),
		t.TotalValue, t.UpdatedAt,
		t.FromLocationID, t.ToLocationID, nullable(t.Reason), t.Priority, t.ExpectedArrivalDate,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM transfer_items WHERE transfer_id = $1`, t.ID); err != nil {
		return fmt.Errorf("delete transfer items: %w", err)
	}
	if err := r.insertItems(ctx, t); err != nil {
		return err
	}
	t.Version++
	return nil
}

// List traslados por bodega (origen o destino) y estado.
func (r *TransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE ($1 = '' OR from_warehouse_id::text = $1 OR to_warehouse_id::text = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY transfer_number
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, f.WarehouseID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	var out []*entity.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
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

func (r *TransferRepo) insertItems(ctx context.Context, t *entity.Transfer) error {
	query := `
		INSERT INTO transfer_items (id, transfer_id, item_id, quantity, unit_price, position)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, it := range t.Items {
		if _, err := r.q.Exec(ctx, query, it.ID, t.ID, it.ItemID, it.Quantity, it.UnitPrice, i); err != nil {
			return fmt.Errorf("insert transfer item: %w", err)
		}
	}
	return nil
}

func (r *TransferRepo) loadItems(ctx context.Context, transfers []*entity.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Transfer, len(transfers))
	ids := make([]string, 0, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	query := `
		SELECT transfer_id, id, item_id, quantity, unit_price
		FROM transfer_items WHERE transfer_id::text = ANY($1)
		ORDER BY transfer_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			transferID string
			it         entity.TransferItem
		)
		if err := rows.Scan(&transferID, &it.ID, &it.ItemID, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scan transfer item: %w", err)
		}
		if t := byID[transferID]; t != nil {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var (
		t                                                       entity.Transfer
		status                                                  string
		requestedBy, approvedBy, tracking, reason, cancellation *string
	)
	err := row.Scan(
		&t.ID, &t.TransferNumber, &t.FromWarehouseID, &t.FromLocationID, &t.ToWarehouseID, &t.ToLocationID,
		&status, &requestedBy, &approvedBy, &t.ApprovalDate, &tracking, &reason, &t.Priority, &t.TransferDate,
		&t.ExpectedArrivalDate, &t.ShippedAt, &t.ActualArrivalDate, &cancellation, &t.TotalValue,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	t.RequestedBy = deref(requestedBy)
	t.ApprovedBy = deref(approvedBy)
	t.TrackingNumber = deref(tracking)
	t.Reason = deref(reason)
	t.CancellationReason = deref(cancellation)
	return &t, nil
}
