package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

const reservationColumns = `id, reservation_number, item_id, warehouse_id, location_id, quantity,
	reservation_type, reference_number, reserved_by, reservation_date, expiration_date, completion_date,
	fulfilled_at, release_reason, status, notes, version, created_at, updated_at`

// ReservationRepo reservas sobre PostgreSQL con control optimista por versión.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

// Create persiste una reserva nueva con versión 1.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.ReservationNumber, res.ItemID, res.WarehouseID, res.LocationID, res.Quantity,
		string(res.Type), nullable(res.ReferenceNumber), nullable(res.ReservedBy), res.ReservationDate,
		res.ExpirationDate, res.CompletionDate, res.FulfilledAt, nullable(res.ReleaseReason),
		string(res.Status), nullable(res.Notes), res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	res.Version = 1
	return nil
}

// GetByID obtiene una reserva por ID.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// Update persiste el estado si la versión no cambió; 0 filas = conflicto.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations SET
			completion_date = $3, fulfilled_at = $4, release_reason = $5, status = $6,
			notes = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		res.ID, res.Version, res.CompletionDate, res.FulfilledAt, nullable(res.ReleaseReason),
		string(res.Status), nullable(res.Notes), res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	res.Version++
	return nil
}

// List reservas filtradas por item, bodega y estado.
func (r *ReservationRepo) List(ctx context.Context, f repository.ReservationFilter) ([]*entity.Reservation, error) {
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
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY reservation_number LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return r.list(ctx, query, args...)
}

// ListDue reservas activas vencidas, las más antiguas primero.
func (r *ReservationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'ACTIVE' AND expiration_date IS NOT NULL AND expiration_date < $1
		ORDER BY expiration_date
		LIMIT $2`
	return r.list(ctx, query, now, limit)
}

// SumHeld suma lo retenido por reservas activas y asignadas sin despachar.
func (r *ReservationRepo) SumHeld(ctx context.Context, key entity.StockKey) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM reservations
		WHERE item_id = $1 AND warehouse_id = $2 AND location_id = $3
		  AND (status = 'ACTIVE' OR (status = 'ALLOCATED' AND fulfilled_at IS NULL))`
	var total int64
	if err := r.q.QueryRow(ctx, query, key.ItemID, key.WarehouseID, key.LocationID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum held reservations: %w", err)
	}
	return total, nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	var out []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var (
		res                                         entity.Reservation
		typ, status                                 string
		reference, reservedBy, releaseReason, notes *string
	)
	err := row.Scan(
		&res.ID, &res.ReservationNumber, &res.ItemID, &res.WarehouseID, &res.LocationID, &res.Quantity,
		&typ, &reference, &reservedBy, &res.ReservationDate, &res.ExpirationDate, &res.CompletionDate,
		&res.FulfilledAt, &releaseReason, &status, &notes, &res.Version, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Type = entity.ReservationType(typ)
	res.Status = entity.ReservationStatus(status)
	res.ReferenceNumber = deref(reference)
	res.ReservedBy = deref(reservedBy)
	res.ReleaseReason = deref(releaseReason)
	res.Notes = deref(notes)
	return &res, nil
}
