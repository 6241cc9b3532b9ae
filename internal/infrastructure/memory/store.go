// Package memory implementa los repositorios en memoria. Sirve como STORAGE_DRIVER=memory
// y como doble de pruebas de los casos de uso.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	ledger       []entity.InventoryTransaction
	idempotency  map[string]bool
	nextSeq      int64
	levels       map[entity.StockKey]entity.StockLevel
	reservations map[string]entity.Reservation
	transfers    map[string]entity.Transfer
	cycleCounts  map[string]entity.CycleCount
	warehouses   map[string]entity.Warehouse
}

func newState() *state {
	return &state{
		idempotency:  map[string]bool{},
		levels:       map[entity.StockKey]entity.StockLevel{},
		reservations: map[string]entity.Reservation{},
		transfers:    map[string]entity.Transfer{},
		cycleCounts:  map[string]entity.CycleCount{},
		warehouses:   map[string]entity.Warehouse{},
	}
}

// clone copia superficial: las entradas guardadas nunca se modifican en sitio.
func (s *state) clone() *state {
	c := &state{
		ledger:       append([]entity.InventoryTransaction(nil), s.ledger...),
		idempotency:  make(map[string]bool, len(s.idempotency)),
		nextSeq:      s.nextSeq,
		levels:       make(map[entity.StockKey]entity.StockLevel, len(s.levels)),
		reservations: make(map[string]entity.Reservation, len(s.reservations)),
		transfers:    make(map[string]entity.Transfer, len(s.transfers)),
		cycleCounts:  make(map[string]entity.CycleCount, len(s.cycleCounts)),
		warehouses:   make(map[string]entity.Warehouse, len(s.warehouses)),
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	for k, v := range s.levels {
		c.levels[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.cycleCounts {
		c.cycleCounts[k] = v
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	return c
}

// Store unidad de trabajo en memoria. Run serializa las transacciones y trabaja sobre una copia
// del estado que solo reemplaza al original si fn termina sin error.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios atados a la copia de trabajo; Commit si fn retorna nil.
func (s *Store) Run(ctx context.Context, fn func(inventory.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(storesFor(work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func storesFor(st *state) inventory.Stores {
	return inventory.Stores{
		Ledger:       &ledgerRepo{st: st},
		StockLevels:  &stockLevelRepo{st: st},
		Reservations: &reservationRepo{st: st},
		Transfers:    &transferRepo{st: st},
		CycleCounts:  &cycleCountRepo{st: st},
		Warehouses:   &warehouseRepo{st: st},
	}
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
