package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventory-engine/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Las filas de proyección se serializan con SELECT ... FOR UPDATE; los agregados con versión.
func (r *TxRunner) Run(ctx context.Context, fn func(s inventory.Stores) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(StoresFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// StoresFor construye los repositorios sobre un Querier (pool o tx).
func StoresFor(q Querier) inventory.Stores {
	return inventory.Stores{
		Ledger:       NewLedgerRepository(q),
		StockLevels:  NewStockLevelRepository(q),
		Reservations: NewReservationRepository(q),
		Transfers:    NewTransferRepository(q),
		CycleCounts:  NewCycleCountRepository(q),
		Warehouses:   NewWarehouseRepository(q),
	}
}
