package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-engine/internal/app/apptest"
	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/reservation"
	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

func setup(t *testing.T, onHand int64) (*apptest.Harness, string) {
	t.Helper()
	h := apptest.New(t)
	wh := h.Warehouse(t, "BOG")
	if onHand > 0 {
		h.Receive(t, "item-1", wh, onHand, "10")
	}
	return h, wh
}

func reserve(t *testing.T, h *apptest.Harness, wh string, qty int64, expires *time.Time) *dto.ReservationResponse {
	t.Helper()
	out, err := h.Engine.Reservations.Create(context.Background(), "vendedor", dto.CreateReservationRequest{
		ItemID: "item-1", WarehouseID: wh, Quantity: qty, ExpiresAt: expires,
	})
	require.NoError(t, err)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_DescuentaDisponible(t *testing.T) {
	h, wh := setup(t, 10)

	res := reserve(t, h, wh, 4, nil)
	assert.Equal(t, "RES-20240415-000001", res.ReservationNumber)
	assert.Equal(t, string(entity.ReservationActive), res.Status)
	assert.Equal(t, string(entity.ReservationTypeOrder), res.ReservationType)

	stock := h.Stock(t, "item-1", wh)
	assert.Equal(t, int64(10), stock.QuantityOnHand)
	assert.Equal(t, int64(4), stock.QuantityReserved)
	assert.Equal(t, int64(6), stock.QuantityAvailable)
}

func TestCreate_InsuficienteNoCambiaNada(t *testing.T) {
	h, wh := setup(t, 10)
	reserve(t, h, wh, 8, nil)

	_, err := h.Engine.Reservations.Create(context.Background(), "u", dto.CreateReservationRequest{
		ItemID: "item-1", WarehouseID: wh, Quantity: 3,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "reservation.quantity_within_available", domain.RuleOf(err))

	stock := h.Stock(t, "item-1", wh)
	assert.Equal(t, int64(8), stock.QuantityReserved)

	list, err := h.Engine.Reservations.List(context.Background(), dto.ReservationQuery{ItemID: "item-1"})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestCreate_ReservaCompletaDelDisponible(t *testing.T) {
	h, wh := setup(t, 5)
	reserve(t, h, wh, 5, nil)
	assert.Equal(t, int64(0), h.Stock(t, "item-1", wh).QuantityAvailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// Liberación, cancelación y asignación
// ──────────────────────────────────────────────────────────────────────────────

func TestRelease_DevuelveDisponibleUnaSolaVez(t *testing.T) {
	h, wh := setup(t, 10)
	res := reserve(t, h, wh, 4, nil)
	ctx := context.Background()

	out, err := h.Engine.Reservations.Release(ctx, "u", res.ID, "pedido anulado")
	require.NoError(t, err)
	assert.Equal(t, string(entity.ReservationReleased), out.Status)
	assert.Equal(t, "pedido anulado", out.ReleaseReason)
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityAvailable)

	again, err := h.Engine.Reservations.Release(ctx, "u", res.ID, "otra vez")
	require.NoError(t, err)
	assert.Equal(t, out.Version, again.Version, "la segunda liberación no escribe")
	assert.Equal(t, int64(0), h.Stock(t, "item-1", wh).QuantityReserved)

	_, err = h.Engine.Reservations.Cancel(ctx, "u", res.ID, "")
	require.NoError(t, err, "cancelar una liberada es no-op")
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityAvailable)
}

func TestCancel_DevuelveDisponible(t *testing.T) {
	h, wh := setup(t, 10)
	res := reserve(t, h, wh, 10, nil)

	out, err := h.Engine.Reservations.Cancel(context.Background(), "u", res.ID, "error de captura")
	require.NoError(t, err)
	assert.Equal(t, string(entity.ReservationCancelled), out.Status)
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityAvailable)
}

func TestAllocate_MantieneLaRetencion(t *testing.T) {
	h, wh := setup(t, 10)
	res := reserve(t, h, wh, 3, nil)

	out, err := h.Engine.Reservations.Allocate(context.Background(), "picker", res.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.ReservationAllocated), out.Status)
	assert.Equal(t, int64(3), h.Stock(t, "item-1", wh).QuantityReserved)
}

func TestTransition_ReservaInexistente(t *testing.T) {
	h, _ := setup(t, 0)
	_, err := h.Engine.Reservations.Release(context.Background(), "u", "no-existe", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.Engine.Reservations.GetByID(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Vencimiento
// ──────────────────────────────────────────────────────────────────────────────

func TestExpire_SoloDespuesDeLaFecha(t *testing.T) {
	h, wh := setup(t, 10)
	exp := apptest.Start.Add(time.Hour)
	res := reserve(t, h, wh, 4, &exp)
	ctx := context.Background()

	_, err := h.Engine.Reservations.Expire(ctx, res.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	h.Clock.Advance(2 * time.Hour)
	out, err := h.Engine.Reservations.Expire(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.ReservationExpired), out.Status)
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityAvailable)
}

func TestExpireDue_VenceSoloLasVencidas(t *testing.T) {
	h, wh := setup(t, 10)
	soon := apptest.Start.Add(time.Hour)
	late := apptest.Start.Add(48 * time.Hour)
	a := reserve(t, h, wh, 2, &soon)
	b := reserve(t, h, wh, 3, &soon)
	c := reserve(t, h, wh, 1, &late)
	reserve(t, h, wh, 1, nil)
	ctx := context.Background()

	_, err := h.Engine.Reservations.Release(ctx, "u", b.ID, "")
	require.NoError(t, err)

	h.Clock.Advance(2 * time.Hour)
	n, err := h.Engine.Reservations.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := h.Engine.Reservations.GetByID(ctx, a.ID)
	assert.Equal(t, string(entity.ReservationExpired), got.Status)
	got, _ = h.Engine.Reservations.GetByID(ctx, c.ID)
	assert.Equal(t, string(entity.ReservationActive), got.Status)

	stock := h.Stock(t, "item-1", wh)
	assert.Equal(t, int64(2), stock.QuantityReserved)

	n, err = h.Engine.Reservations.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "un segundo barrido no encuentra nada")
}

func TestSweeper_RunOnceVaciaEnLotes(t *testing.T) {
	h, wh := setup(t, 10)
	exp := apptest.Start.Add(time.Minute)
	for i := 0; i < 5; i++ {
		reserve(t, h, wh, 1, &exp)
	}
	h.Clock.Advance(time.Hour)

	sw := reservation.NewSweeper(h.Engine.Reservations, time.Minute, 2, zerolog.Nop())
	assert.Equal(t, 5, sw.RunOnce(context.Background()))
	assert.Equal(t, int64(10), h.Stock(t, "item-1", wh).QuantityAvailable)
}

func TestSweeper_RunTerminaAlCancelar(t *testing.T) {
	h, _ := setup(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	sw := reservation.NewSweeper(h.Engine.Reservations, time.Hour, 10, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("el barrido no se detuvo")
	}

	disabled := reservation.NewSweeper(h.Engine.Reservations, 0, 10, zerolog.Nop())
	assert.NoError(t, disabled.Run(context.Background()))
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos y auditoría
// ──────────────────────────────────────────────────────────────────────────────

func TestEventos_SoloTrasCommit(t *testing.T) {
	h, wh := setup(t, 2)
	res := reserve(t, h, wh, 2, nil)
	_, err := h.Engine.Reservations.Create(context.Background(), "u", dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: wh, Quantity: 1})
	require.Error(t, err)
	_, err = h.Engine.Reservations.Release(context.Background(), "u", res.ID, "")
	require.NoError(t, err)
	_, err = h.Engine.Reservations.Release(context.Background(), "u", res.ID, "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []entity.EventType{
		entity.EventReservationCreated,
		entity.EventReservationReleased,
	}, h.EventTypes())

	var reasons []string
	for _, e := range h.Ledger(t, "item-1", wh) {
		if e.Type == string(entity.TransactionTypeReservation) {
			reasons = append(reasons, e.Reason)
			assert.Equal(t, res.ReservationNumber, e.Reference)
			assert.Equal(t, int64(0), e.Quantity)
		}
	}
	assert.ElementsMatch(t, []string{entity.ReasonReservationCreated, entity.ReasonReservationReleased}, reasons)
}
