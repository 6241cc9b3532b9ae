// Package app compone los casos de uso del motor sobre la persistencia y el bus elegidos.
package app

import (
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-engine/internal/application/audit"
	"github.com/jhoicas/inventory-engine/internal/application/cyclecount"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/application/reservation"
	"github.com/jhoicas/inventory-engine/internal/application/sequence"
	"github.com/jhoicas/inventory-engine/internal/application/transfer"
	"github.com/jhoicas/inventory-engine/internal/application/usecase"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// PublisherFactory construye el publicador de eventos una vez existe el proyector de auditoría.
type PublisherFactory func(projector *audit.Projector) inventory.EventPublisher

// Deps infraestructura ya construida.
type Deps struct {
	TxRunner   inventory.TxRunner
	Counter    repository.SequenceCounter
	Publishers PublisherFactory
	Clock      clock.Clock
	Log        zerolog.Logger
}

// Engine casos de uso listos para exponer.
type Engine struct {
	Sequencer    *sequence.Generator
	Ledger       *inventory.Ledger
	Projector    *audit.Projector
	Publisher    inventory.EventPublisher
	Warehouses   *usecase.WarehouseUseCase
	Movements    *inventory.RegisterMovementUseCase
	Stock        *inventory.StockUseCase
	Reservations *reservation.UseCase
	Transfers    *transfer.UseCase
	CycleCounts  *cyclecount.UseCase
}

// NewEngine conecta los casos de uso. Todos comparten el mismo generador de números.
func NewEngine(d Deps) *Engine {
	clk := d.Clock
	if clk == nil {
		clk = clock.System{}
	}
	seq := sequence.NewGenerator(d.Counter)
	ledger := inventory.NewLedger(seq, clk)
	projector := audit.NewProjector(d.TxRunner, seq, d.Log)
	publisher := d.Publishers(projector)

	return &Engine{
		Sequencer:    seq,
		Ledger:       ledger,
		Projector:    projector,
		Publisher:    publisher,
		Warehouses:   usecase.NewWarehouseUseCase(d.TxRunner, clk, d.Log),
		Movements:    inventory.NewRegisterMovementUseCase(d.TxRunner, ledger, clk, d.Log),
		Stock:        inventory.NewStockUseCase(d.TxRunner, clk, d.Log),
		Reservations: reservation.NewUseCase(d.TxRunner, ledger, seq, publisher, clk, d.Log),
		Transfers:    transfer.NewUseCase(d.TxRunner, ledger, seq, publisher, clk, d.Log),
		CycleCounts:  cyclecount.NewUseCase(d.TxRunner, ledger, seq, publisher, clk, d.Log),
	}
}
