package entity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

var t0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newActiveReservation(t *testing.T, expires *time.Time) *entity.Reservation {
	t.Helper()
	r, err := entity.NewReservation(entity.NewReservationParams{
		ID:             "res-1",
		Number:         "RES-20240310-000001",
		ItemID:         "item-1",
		WarehouseID:    "wh-1",
		Quantity:       5,
		ReservedBy:     "user-1",
		ExpirationDate: expires,
	}, t0)
	require.NoError(t, err)
	return r
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestNewReservation_ValoresPorDefecto(t *testing.T) {
	r := newActiveReservation(t, nil)

	assert.Equal(t, entity.ReservationActive, r.Status)
	assert.Equal(t, entity.ReservationTypeOrder, r.Type)
	assert.True(t, r.Holds())

	events := r.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventReservationCreated, events[0].Type)
	require.NotNil(t, events[0].Reservation)
	assert.Equal(t, int64(5), events[0].Reservation.Quantity)
	assert.Empty(t, r.PullEvents(), "PullEvents debe vaciar los pendientes")
}

func TestNewReservation_Validaciones(t *testing.T) {
	past := t0.Add(-time.Minute)
	cases := []struct {
		name string
		p    entity.NewReservationParams
		rule string
	}{
		{"sin item", entity.NewReservationParams{WarehouseID: "wh-1", Quantity: 1}, "reservation.key_required"},
		{"cantidad cero", entity.NewReservationParams{ItemID: "i", WarehouseID: "wh-1"}, "reservation.quantity_positive"},
		{"tipo inválido", entity.NewReservationParams{ItemID: "i", WarehouseID: "wh-1", Quantity: 1, Type: "GIFT"}, "reservation.type_invalid"},
		{"expiración pasada", entity.NewReservationParams{ItemID: "i", WarehouseID: "wh-1", Quantity: 1, ExpirationDate: &past}, "reservation.expiration_in_future"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entity.NewReservation(tc.p, t0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Equal(t, tc.rule, domain.RuleOf(err))
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestReservationStatus_Next(t *testing.T) {
	next, err := entity.ReservationActive.Next(entity.ReservationRelease)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReleased, next)

	// desde un estado terminal cualquier acción es no-op
	for _, s := range []entity.ReservationStatus{
		entity.ReservationAllocated, entity.ReservationReleased,
		entity.ReservationCancelled, entity.ReservationExpired,
	} {
		got, err := s.Next(entity.ReservationCancel)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err = entity.ReservationActive.Next("steal")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReservation_ReleaseEsIdempotente(t *testing.T) {
	r := newActiveReservation(t, nil)
	r.PullEvents()

	changed, err := r.Release("pedido anulado", "user-2", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.ReservationReleased, r.Status)
	assert.Equal(t, "pedido anulado", r.ReleaseReason)
	assert.False(t, r.Holds())
	require.NotNil(t, r.CompletionDate)

	events := r.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventReservationReleased, events[0].Type)
	assert.Equal(t, "user-2", events[0].PerformedBy)

	changed, err = r.Release("otra vez", "user-2", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "pedido anulado", r.ReleaseReason)
	assert.Empty(t, r.PullEvents())
}

func TestReservation_AsignadaRetieneHastaLaSalida(t *testing.T) {
	r := newActiveReservation(t, nil)

	changed, err := r.Allocate("user-1", t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, r.Holds(), "una reserva asignada sigue reteniendo disponible")

	// una asignada es terminal: cancelar no la cambia
	changed, err = r.Cancel("tarde", "user-1", t0)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, r.Fulfill(t0.Add(time.Minute)))
	assert.False(t, r.Holds())
	assert.ErrorIs(t, r.Fulfill(t0.Add(2*time.Minute)), domain.ErrInvalidTransition)
}

func TestReservation_FulfillExigeAsignada(t *testing.T) {
	r := newActiveReservation(t, nil)
	err := r.Fulfill(t0)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "reservation.fulfill_requires_allocated", domain.RuleOf(err))
}

func TestReservation_Expire(t *testing.T) {
	exp := t0.Add(time.Hour)
	r := newActiveReservation(t, &exp)
	r.PullEvents()

	_, err := r.Expire(t0.Add(30 * time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "no vence antes de la fecha")
	assert.False(t, r.IsDue(exp), "exactamente en la fecha aún no vence")

	changed, err := r.Expire(exp.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.ReservationExpired, r.Status)

	events := r.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventReservationExpired, events[0].Type)
	assert.Equal(t, entity.SystemUser, events[0].PerformedBy)

	// vencer de nuevo es no-op
	changed, err = r.Expire(exp.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
}
