package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

const stockLevelColumns = `item_id, warehouse_id, location_id, quantity_on_hand, quantity_reserved,
	quantity_available, average_cost, last_movement_at, last_count_at, updated_at`

// StockLevelRepo proyección de existencias sobre PostgreSQL (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// Get obtiene el nivel de una clave; sin fila devuelve un nivel en cero.
func (r *StockLevelRepo) Get(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE item_id = $1 AND warehouse_id = $2 AND location_id = $3`
	return r.get(ctx, query, key)
}

// GetForUpdate obtiene el nivel y bloquea la fila (SELECT FOR UPDATE). Si la fila no existe la crea
// en cero primero, para que el bloqueo también cubra la primera entrada de la clave.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	insert := `
		INSERT INTO stock_levels (item_id, warehouse_id, location_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (item_id, warehouse_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, key.ItemID, key.WarehouseID, key.LocationID); err != nil {
		return nil, fmt.Errorf("ensure stock level: %w", err)
	}
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE item_id = $1 AND warehouse_id = $2 AND location_id = $3
		FOR UPDATE`
	return r.get(ctx, query, key)
}

// Upsert inserta o reemplaza la fila de la clave.
func (r *StockLevelRepo) Upsert(ctx context.Context, l *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (` + stockLevelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (item_id, warehouse_id, location_id)
		DO UPDATE SET
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			quantity_reserved = EXCLUDED.quantity_reserved,
			quantity_available = EXCLUDED.quantity_available,
			average_cost = EXCLUDED.average_cost,
			last_movement_at = EXCLUDED.last_movement_at,
			last_count_at = EXCLUDED.last_count_at,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		l.ItemID, l.WarehouseID, l.LocationID, l.QuantityOnHand, l.QuantityReserved,
		l.QuantityAvailable, l.AverageCost, l.LastMovementAt, l.LastCountAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}

// ListByItemWarehouse todas las ubicaciones de un item en una bodega.
func (r *StockLevelRepo) ListByItemWarehouse(ctx context.Context, itemID, warehouseID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE item_id = $1 AND warehouse_id = $2
		ORDER BY location_id`
	return r.list(ctx, query, itemID, warehouseID)
}

// ListByWarehouse niveles de una bodega/ubicación.
func (r *StockLevelRepo) ListByWarehouse(ctx context.Context, warehouseID, locationID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockLevelColumns + `
		FROM stock_levels WHERE warehouse_id = $1 AND location_id = $2
		ORDER BY item_id`
	return r.list(ctx, query, warehouseID, locationID)
}

func (r *StockLevelRepo) get(ctx context.Context, query string, key entity.StockKey) (*entity.StockLevel, error) {
	l, err := scanStockLevel(r.q.QueryRow(ctx, query, key.ItemID, key.WarehouseID, key.LocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewStockLevel(key.ItemID, key.WarehouseID, key.LocationID), nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return l, nil
}

func (r *StockLevelRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockLevel
	for rows.Next() {
		l, err := scanStockLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanStockLevel(row pgx.Row) (*entity.StockLevel, error) {
	var l entity.StockLevel
	err := row.Scan(
		&l.ItemID, &l.WarehouseID, &l.LocationID, &l.QuantityOnHand, &l.QuantityReserved,
		&l.QuantityAvailable, &l.AverageCost, &l.LastMovementAt, &l.LastCountAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
