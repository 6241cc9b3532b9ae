package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-engine/internal/app/apptest"
	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

func issue(item, wh string, qty int64) dto.RegisterMovementRequest {
	return dto.RegisterMovementRequest{ItemID: item, WarehouseID: wh, Type: inventory.MovementTypeIssue, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas y salidas
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_EntradaActualizaProyeccionYCosto(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")

	first := h.Receive(t, "item-1", wh, 10, "100")
	assert.Equal(t, "TXN-20240415-000001", first.TransactionNumber)
	assert.Equal(t, int64(0), first.QuantityBefore)
	assert.Equal(t, int64(10), first.QuantityAfter)
	assert.True(t, decimal.NewFromInt(1000).Equal(first.TotalCost))

	h.Receive(t, "item-1", wh, 10, "200")

	stock := h.Stock(t, "item-1", wh)
	assert.Equal(t, int64(20), stock.QuantityOnHand)
	assert.Equal(t, int64(20), stock.QuantityAvailable)
	assert.True(t, decimal.NewFromInt(150).Equal(stock.AverageCost), "got %s", stock.AverageCost)
}

func TestRegisterMovement_SalidaInsuficienteNoEscribeNada(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	h.Receive(t, "item-1", wh, 5, "10")

	_, err := h.Engine.Movements.RegisterMovement(context.Background(), "u", issue("item-1", wh, 6))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "stock.available_covers_issue", domain.RuleOf(err))

	assert.Len(t, h.Ledger(t, "item-1", wh), 1)
	assert.Equal(t, int64(5), h.Stock(t, "item-1", wh).QuantityOnHand)

	out, err := h.Engine.Movements.RegisterMovement(context.Background(), "u", issue("item-1", wh, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), out.Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(out.UnitCost), "la salida se valora al costo promedio")
	assert.Equal(t, int64(0), h.Stock(t, "item-1", wh).QuantityOnHand)
}

func TestRegisterMovement_Validaciones(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	ctx := context.Background()

	cases := []struct {
		name string
		in   dto.RegisterMovementRequest
		rule string
	}{
		{"tipo desconocido", dto.RegisterMovementRequest{ItemID: "i", WarehouseID: wh, Type: "GIFT", Quantity: 1}, "movement.type_invalid"},
		{"entrada sin costo", dto.RegisterMovementRequest{ItemID: "i", WarehouseID: wh, Type: "receipt", Quantity: 1}, "movement.unit_cost_required"},
		{"salida en cero", issue("i", wh, 0), "movement.quantity_positive"},
		{"ajuste en cero", dto.RegisterMovementRequest{ItemID: "i", WarehouseID: wh, Type: "ADJUSTMENT"}, "movement.quantity_non_zero"},
		{"reserva en ajuste", dto.RegisterMovementRequest{ItemID: "i", WarehouseID: wh, Type: "ADJUSTMENT", Quantity: 1, ReservationID: "r"}, "movement.reservation_only_on_issue"},
		{"sin bodega", dto.RegisterMovementRequest{ItemID: "i", Type: "ISSUE", Quantity: 1}, "movement.key_required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Engine.Movements.RegisterMovement(ctx, "u", tc.in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, tc.rule, domain.RuleOf(err))
		})
	}
}

func TestRegisterMovement_BodegaInexistenteOInactiva(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	cost := decimal.NewFromInt(1)

	_, err := h.Engine.Movements.RegisterMovement(ctx, "u", dto.RegisterMovementRequest{
		ItemID: "i", WarehouseID: "no-existe", Type: "RECEIPT", Quantity: 1, UnitCost: &cost,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	wh := h.Warehouse(t, "MDE")
	inactive := false
	_, err = h.Engine.Warehouses.Update(ctx, wh, dto.UpdateWarehouseRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = h.Engine.Movements.RegisterMovement(ctx, "u", dto.RegisterMovementRequest{
		ItemID: "i", WarehouseID: wh, Type: "RECEIPT", Quantity: 1, UnitCost: &cost,
	})
	assert.ErrorIs(t, err, domain.ErrInactiveWarehouse)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_AjusteNegativoSoloAprobado(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	h.Receive(t, "item-1", wh, 2, "10")
	ctx := context.Background()

	in := dto.RegisterMovementRequest{ItemID: "item-1", WarehouseID: wh, Type: "ADJUSTMENT", Quantity: -3, Reason: "merma"}
	_, err := h.Engine.Movements.RegisterMovement(ctx, "u", in)
	assert.ErrorIs(t, err, domain.ErrNegativeStock)

	in.Approved = true
	out, err := h.Engine.Movements.RegisterMovement(ctx, "sup", in)
	require.NoError(t, err)
	assert.Equal(t, "MERMA", out.Reason)
	assert.Equal(t, int64(-1), out.QuantityAfter)
	assert.Equal(t, int64(-1), h.Stock(t, "item-1", wh).QuantityOnHand)
}

// ──────────────────────────────────────────────────────────────────────────────
// Salida contra reserva
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_SalidaContraReservaAsignada(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	h.Receive(t, "item-1", wh, 10, "10")
	ctx := context.Background()

	res, err := h.Engine.Reservations.Create(ctx, "u", dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: wh, Quantity: 4})
	require.NoError(t, err)

	in := issue("item-1", wh, 4)
	in.ReservationID = res.ID
	_, err = h.Engine.Movements.RegisterMovement(ctx, "u", in)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "solo reservas asignadas")

	_, err = h.Engine.Reservations.Allocate(ctx, "u", res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), h.Stock(t, "item-1", wh).QuantityAvailable)

	// sin la reserva, la salida de 10 no cabe en el disponible
	_, err = h.Engine.Movements.RegisterMovement(ctx, "u", issue("item-1", wh, 10))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	out, err := h.Engine.Movements.RegisterMovement(ctx, "u", in)
	require.NoError(t, err)
	assert.Equal(t, res.ReservationNumber, out.Reference)
	assert.Equal(t, int64(-4), out.ReservedDelta)

	stock := h.Stock(t, "item-1", wh)
	assert.Equal(t, int64(6), stock.QuantityOnHand)
	assert.Equal(t, int64(0), stock.QuantityReserved)
	assert.Equal(t, int64(6), stock.QuantityAvailable)

	got, err := h.Engine.Reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.FulfilledAt)

	_, err = h.Engine.Movements.RegisterMovement(ctx, "u", in)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "una reserva se despacha una sola vez")
}

// ──────────────────────────────────────────────────────────────────────────────
// Proyección y libro
// ──────────────────────────────────────────────────────────────────────────────

func TestRebuildStockLevel_CorrigeDesdeElLibro(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	h.Receive(t, "item-1", wh, 8, "10")
	_, err := h.Engine.Movements.RegisterMovement(context.Background(), "u", issue("item-1", wh, 3))
	require.NoError(t, err)
	_, err = h.Engine.Reservations.Create(context.Background(), "u", dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: wh, Quantity: 2})
	require.NoError(t, err)
	h.Drain()

	// corrompe la proyección por fuera del camino de escritura
	key := entity.StockKey{ItemID: "item-1", WarehouseID: wh}
	require.NoError(t, h.Store.Run(context.Background(), func(s inventory.Stores) error {
		lvl, err := s.StockLevels.Get(context.Background(), key)
		if err != nil {
			return err
		}
		lvl.QuantityOnHand = 999
		lvl.QuantityReserved = 0
		lvl.Recalculate()
		return s.StockLevels.Upsert(context.Background(), lvl)
	}))

	recomputed, err := h.Engine.Stock.Recompute(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), recomputed.QuantityOnHand)
	assert.Equal(t, int64(999), h.Stock(t, "item-1", wh).QuantityOnHand, "Recompute no persiste")

	rebuilt, err := h.Engine.Stock.RebuildStockLevel(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rebuilt.QuantityOnHand)
	assert.Equal(t, int64(2), rebuilt.QuantityReserved)
	assert.Equal(t, int64(3), rebuilt.QuantityAvailable)
	assert.Equal(t, int64(5), h.Stock(t, "item-1", wh).QuantityOnHand)
}

func TestListLedgerEntries_OrdenYFiltros(t *testing.T) {
	h := apptest.New(t)
	bog := h.Warehouse(t, "BOG")
	mde := h.Warehouse(t, "MDE")
	h.Receive(t, "item-1", bog, 1, "1")
	h.Receive(t, "item-2", bog, 2, "1")
	h.Clock.Advance(1)
	h.Receive(t, "item-1", bog, 3, "1")
	h.Receive(t, "item-1", mde, 4, "1")

	entries := h.Ledger(t, "item-1", bog)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Quantity)
	assert.Equal(t, int64(3), entries[1].Quantity)
	assert.Equal(t, int64(1), entries[1].QuantityBefore)

	_, err := h.Engine.Stock.GetStockLevel(context.Background(), "", bog, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetStockLevel_SinMovimientosDevuelveCeros(t *testing.T) {
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	stock := h.Stock(t, "nuevo", wh)
	assert.Equal(t, int64(0), stock.QuantityOnHand)
	assert.True(t, stock.AverageCost.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Niveles por ubicación
// ──────────────────────────────────────────────────────────────────────────────

func TestGetStockLevel_SinUbicacionEsElNivelQueValidanReservasYTraslados(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	bog := h.Warehouse(t, "BOG")
	mde := h.Warehouse(t, "MDE")
	cost := decimal.NewFromInt(10)
	_, err := h.Engine.Movements.RegisterMovement(ctx, "u", dto.RegisterMovementRequest{
		ItemID: "item-1", WarehouseID: bog, LocationID: "L1",
		Type:   inventory.MovementTypeReceipt, Quantity: 50, UnitCost: &cost,
	})
	require.NoError(t, err)

	unlocated := h.Stock(t, "item-1", bog)
	assert.Equal(t, int64(0), unlocated.QuantityAvailable, "la bodega sin ubicación no incluye L1")

	_, err = h.Engine.Reservations.Create(ctx, "u", dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: bog, Quantity: 5})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "reservation.quantity_within_available", domain.RuleOf(err))

	located, err := h.Engine.Stock.GetStockLevel(ctx, "item-1", bog, "L1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), located.QuantityAvailable)

	_, err = h.Engine.Reservations.Create(ctx, "u", dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: bog, LocationID: "L1", Quantity: 5})
	require.NoError(t, err)

	_, err = h.Engine.Transfers.Create(ctx, "u", dto.CreateTransferRequest{
		FromWarehouseID: bog, FromLocationID: "L1", ToWarehouseID: mde,
		Items:           []dto.TransferItemRequest{{ItemID: "item-1", Quantity: 45, UnitPrice: cost}},
	})
	require.NoError(t, err)

	summary, err := h.Engine.Stock.SummarizeStock(ctx, "item-1", bog)
	require.NoError(t, err)
	assert.Equal(t, int64(50), summary.Total.QuantityOnHand)
	assert.Equal(t, int64(5), summary.Total.QuantityReserved)
	assert.Equal(t, int64(45), summary.Total.QuantityAvailable)
	assert.Equal(t, "", summary.Total.LocationID)
	require.Len(t, summary.Locations, 1)
	assert.Equal(t, "L1", summary.Locations[0].LocationID)
}

func TestSummarizeStock_SumaUbicacionesConCostoPonderado(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	wh := h.Warehouse(t, "BOG")
	h.Receive(t, "item-1", wh, 10, "100")
	cost := decimal.NewFromInt(200)
	_, err := h.Engine.Movements.RegisterMovement(ctx, "u", dto.RegisterMovementRequest{
		ItemID: "item-1", WarehouseID: wh, LocationID: "A-01",
		Type:   inventory.MovementTypeReceipt, Quantity: 10, UnitCost: &cost,
	})
	require.NoError(t, err)

	summary, err := h.Engine.Stock.SummarizeStock(ctx, "item-1", wh)
	require.NoError(t, err)
	assert.Equal(t, int64(20), summary.Total.QuantityOnHand)
	assert.True(t, decimal.NewFromInt(150).Equal(summary.Total.AverageCost), "got %s", summary.Total.AverageCost)
	assert.Len(t, summary.Locations, 2)
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityOnHand)

	_, err = h.Engine.Stock.SummarizeStock(ctx, "item-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
