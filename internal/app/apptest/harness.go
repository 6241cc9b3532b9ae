// Package apptest arma el motor completo en memoria para pruebas de casos de uso, HTTP y aceptación.
package apptest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-engine/internal/app"
	"github.com/jhoicas/inventory-engine/internal/application/audit"
	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/eventbus"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-engine/pkg/clock"
)

// Start fecha fija con la que arranca el reloj de cada arnés.
var Start = time.Date(2024, 4, 15, 8, 0, 0, 0, time.UTC)

// Harness motor en memoria con reloj fijo y bus de eventos hacia el proyector de auditoría.
type Harness struct {
	Engine *app.Engine
	Store  *memory.Store
	Clock  *clock.Fixed
	Bus    *eventbus.Bus

	mu     sync.Mutex
	events []entity.Event
}

// New construye el arnés; el bus se cierra al terminar la prueba.
func New(t testing.TB) *Harness {
	t.Helper()
	h := &Harness{
		Store: memory.NewStore(),
		Clock: clock.NewFixed(Start),
	}
	h.Engine = app.NewEngine(app.Deps{
		TxRunner: h.Store,
		Counter:  memory.NewSequenceCounter(),
		Clock:    h.Clock,
		Log:      zerolog.Nop(),
		Publishers: func(p *audit.Projector) inventory.EventPublisher {
			h.Bus = eventbus.New(eventbus.HandlerFunc(func(ctx context.Context, ev entity.Event) {
				h.mu.Lock()
				h.events = append(h.events, ev)
				h.mu.Unlock()
				p.Handle(ctx, ev)
			}), 2, 256, zerolog.Nop())
			return h.Bus
		},
	})
	t.Cleanup(h.Bus.Close)
	return h
}

// Drain espera a que el bus entregue todo lo publicado.
func (h *Harness) Drain() {
	h.Bus.Drain()
}

// EventTypes tipos de evento entregados hasta ahora, en orden de entrega.
func (h *Harness) EventTypes() []entity.EventType {
	h.Drain()
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entity.EventType, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Type)
	}
	return out
}

// Events eventos entregados de un tipo, en orden de entrega.
func (h *Harness) Events(et entity.EventType) []entity.Event {
	h.Drain()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []entity.Event
	for _, ev := range h.events {
		if ev.Type == et {
			out = append(out, ev)
		}
	}
	return out
}

// Warehouse crea una bodega activa y devuelve su ID.
func (h *Harness) Warehouse(t testing.TB, code string) string {
	t.Helper()
	w, err := h.Engine.Warehouses.Create(context.Background(), dto.CreateWarehouseRequest{Code: code, Name: "Bodega " + code})
	require.NoError(t, err)
	return w.ID
}

// Receive registra una entrada de mercancía.
func (h *Harness) Receive(t testing.TB, itemID, warehouseID string, qty int64, unitCost string) *dto.LedgerEntryResponse {
	t.Helper()
	cost := decimal.RequireFromString(unitCost)
	out, err := h.Engine.Movements.RegisterMovement(context.Background(), "tester", dto.RegisterMovementRequest{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Type:        inventory.MovementTypeReceipt,
		Quantity:    qty,
		UnitCost:    &cost,
	})
	require.NoError(t, err)
	return out
}

// Stock nivel sin ubicar de un item en una bodega.
func (h *Harness) Stock(t testing.TB, itemID, warehouseID string) *dto.StockLevelResponse {
	t.Helper()
	out, err := h.Engine.Stock.GetStockLevel(context.Background(), itemID, warehouseID, "")
	require.NoError(t, err)
	return out
}

// Ledger entradas del libro de un item en una bodega, en orden cronológico.
func (h *Harness) Ledger(t testing.TB, itemID, warehouseID string) []dto.LedgerEntryResponse {
	t.Helper()
	h.Drain()
	out, err := h.Engine.Stock.ListLedgerEntries(context.Background(), dto.LedgerQuery{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Page:        dto.PageRequest{Limit: 100},
	})
	require.NoError(t, err)
	return out.Items
}
