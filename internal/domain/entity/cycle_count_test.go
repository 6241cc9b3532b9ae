package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

func newStartedCount(t *testing.T, expected map[string]int64, items ...string) *entity.CycleCount {
	t.Helper()
	lines := make([]entity.CycleCountItem, 0, len(items))
	for _, id := range items {
		lines = append(lines, entity.CycleCountItem{ID: "line-" + id, ItemID: id})
	}
	c, err := entity.NewCycleCount(entity.NewCycleCountParams{
		ID:          "cc-1",
		Number:      "CC-20240310-000001",
		WarehouseID: "wh-1",
		Items:       lines,
	}, "user-1", t0)
	require.NoError(t, err)
	require.NoError(t, c.Start(expected, nil, "user-1", t0))
	return c
}

func TestNewCycleCount_Validaciones(t *testing.T) {
	_, err := entity.NewCycleCount(entity.NewCycleCountParams{WarehouseID: "wh-1"}, "u", t0)
	assert.Equal(t, "cycle_count.items_required", domain.RuleOf(err))

	c, err := entity.NewCycleCount(entity.NewCycleCountParams{WarehouseID: "wh-1", CountType: entity.CountTypeFull}, "u", t0)
	require.NoError(t, err, "un conteo FULL se programa sin líneas")
	assert.Equal(t, entity.CycleCountScheduled, c.Status)

	_, err = entity.NewCycleCount(entity.NewCycleCountParams{
		WarehouseID: "wh-1",
		Items:       []entity.CycleCountItem{{ItemID: "a"}, {ItemID: "a"}},
	}, "u", t0)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = entity.NewCycleCount(entity.NewCycleCountParams{WarehouseID: "wh-1", CountType: "WEEKLY", Items: []entity.CycleCountItem{{ItemID: "a"}}}, "u", t0)
	assert.Equal(t, "cycle_count.type_invalid", domain.RuleOf(err))
}

func TestCycleCount_StartFijaEsperadoYFullAgregaItems(t *testing.T) {
	c, err := entity.NewCycleCount(entity.NewCycleCountParams{
		WarehouseID: "wh-1",
		CountType:   entity.CountTypeFull,
		Items:       []entity.CycleCountItem{{ItemID: "a"}},
	}, "u", t0)
	require.NoError(t, err)

	extra := []entity.CycleCountItem{{ItemID: "a"}, {ItemID: "b"}}
	require.NoError(t, c.Start(map[string]int64{"a": 20, "b": 7}, extra, "u", t0))

	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(20), c.Items[0].ExpectedQuantity)
	assert.Equal(t, int64(7), c.Items[1].ExpectedQuantity)
	assert.Equal(t, entity.CountLinePending, c.Items[1].Status)
	assert.Equal(t, entity.CycleCountInProgress, c.Status)

	assert.ErrorIs(t, c.Start(nil, nil, "u", t0), domain.ErrInvalidTransition)
}

func TestCycleCount_CompleteCalculaDiferencias(t *testing.T) {
	c := newStartedCount(t, map[string]int64{"a": 20, "b": 5}, "a", "b")

	require.NoError(t, c.RecordCount("a", 15, "counter", t0))
	require.NoError(t, c.RecordCount("a", 18, "counter", t0), "el último conteo gana")
	require.NoError(t, c.RecordCount("b", 5, "counter", t0))

	variances, err := c.Complete(true, "sup", t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, variances, 1)
	assert.Equal(t, entity.CountVariance{ItemID: "a", Expected: 20, Counted: 18, Variance: -2}, variances[0])

	assert.Equal(t, entity.CycleCountCompleted, c.Status)
	assert.True(t, c.AdjustmentsPosted)
	assert.Equal(t, 1, c.ItemsCountedCorrect)
	assert.Equal(t, 1, c.ItemsWithDiscrepancies)
	assert.True(t, decimal.NewFromInt(50).Equal(c.AccuracyPercentage))
	assert.False(t, c.HasHighAccuracy(entity.HighAccuracyThreshold))
	assert.True(t, c.HasHighAccuracy(decimal.NewFromInt(50)), "el umbral es inclusivo")

	evs := c.PullEvents()
	last := evs[len(evs)-1]
	require.Equal(t, entity.EventCycleCountCompleted, last.Type)
	assert.True(t, last.CycleCount.AdjustmentsPosted, "el evento refleja los ajustes publicados")
}

func TestCycleCount_HasHighAccuracy(t *testing.T) {
	c := newStartedCount(t, map[string]int64{"a": 1}, "a")
	assert.False(t, c.HasHighAccuracy(entity.HighAccuracyThreshold), "sin cerrar la exactitud es cero")

	require.NoError(t, c.RecordCount("a", 1, "counter", t0))
	_, err := c.Complete(false, "sup", t0)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(c.AccuracyPercentage))
	assert.True(t, c.HasHighAccuracy(entity.HighAccuracyThreshold))
}

func TestCycleCount_AddItem(t *testing.T) {
	c, err := entity.NewCycleCount(entity.NewCycleCountParams{
		WarehouseID: "wh-1",
		Items:       []entity.CycleCountItem{{ItemID: "a"}},
	}, "u", t0)
	require.NoError(t, err)

	require.NoError(t, c.AddItem(entity.CycleCountItem{ID: "line-b", ItemID: "b"}, 99, t0))
	assert.ErrorIs(t, c.AddItem(entity.CycleCountItem{ItemID: "b"}, 0, t0), domain.ErrDuplicate)
	assert.Equal(t, "cycle_count.item_required", domain.RuleOf(c.AddItem(entity.CycleCountItem{}, 0, t0)))
	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(0), c.Items[1].ExpectedQuantity, "programado: la fija Start")

	require.NoError(t, c.Start(map[string]int64{"a": 3, "b": 4}, nil, "u", t0))
	assert.Equal(t, int64(4), c.Items[1].ExpectedQuantity)

	require.NoError(t, c.AddItem(entity.CycleCountItem{ID: "line-c", ItemID: "c"}, 6, t0))
	assert.Equal(t, int64(6), c.Items[2].ExpectedQuantity, "en curso: instantánea al agregar")
	assert.Equal(t, entity.CountLinePending, c.Items[2].Status)

	require.NoError(t, c.Cancel("cierre", "sup", t0))
	err = c.AddItem(entity.CycleCountItem{ItemID: "d"}, 0, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "cycle_count.items_frozen", domain.RuleOf(err))
}

func TestCycleCount_CompleteExigeTodasLasLineas(t *testing.T) {
	c := newStartedCount(t, map[string]int64{"a": 1, "b": 1}, "a", "b")
	require.NoError(t, c.RecordCount("a", 1, "counter", t0))

	_, err := c.Complete(true, "sup", t0)
	assert.ErrorIs(t, err, domain.ErrIncompleteCount)
	assert.Equal(t, entity.CycleCountInProgress, c.Status)

	// un reconteo pendiente también bloquea el cierre
	require.NoError(t, c.RecordCount("b", 1, "counter", t0))
	require.NoError(t, c.RequestRecount("b", t0))
	_, err = c.Complete(true, "sup", t0)
	assert.ErrorIs(t, err, domain.ErrIncompleteCount)

	require.NoError(t, c.SkipItem("b", t0))
	variances, err := c.Complete(true, "sup", t0)
	require.NoError(t, err)
	assert.Empty(t, variances, "la línea omitida no genera ajuste")
}

func TestCycleCount_ReconcileUnaSolaVez(t *testing.T) {
	c := newStartedCount(t, map[string]int64{"a": 10}, "a")
	require.NoError(t, c.RecordCount("a", 12, "counter", t0))

	_, _, err := c.Reconcile("sup", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "solo conteos completados")

	variances, err := c.Complete(false, "sup", t0)
	require.NoError(t, err)
	assert.Nil(t, variances)
	assert.False(t, c.AdjustmentsPosted)

	variances, changed, err := c.Reconcile("sup", t0)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, variances, 1)
	assert.Equal(t, int64(2), variances[0].Variance)

	variances, changed, err = c.Reconcile("sup", t0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, variances)
}

func TestCycleCount_RecordCountValidaciones(t *testing.T) {
	c := newStartedCount(t, map[string]int64{"a": 1}, "a")
	assert.ErrorIs(t, c.RecordCount("a", -1, "u", t0), domain.ErrInvalidInput)
	assert.ErrorIs(t, c.RecordCount("zzz", 1, "u", t0), domain.ErrNotFound)

	require.NoError(t, c.Cancel("inventario cerrado", "sup", t0))
	assert.ErrorIs(t, c.RecordCount("a", 1, "u", t0), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.Cancel("otra", "sup", t0), domain.ErrInvalidTransition)
}

func TestCycleCount_IsOverdue(t *testing.T) {
	c, err := entity.NewCycleCount(entity.NewCycleCountParams{
		WarehouseID:   "wh-1",
		ScheduledDate: t0,
		Items:         []entity.CycleCountItem{{ItemID: "a"}},
	}, "u", t0.Add(-time.Hour))
	require.NoError(t, err)

	assert.False(t, c.IsOverdue(t0))
	assert.True(t, c.IsOverdue(t0.Add(time.Minute)))

	require.NoError(t, c.Start(nil, nil, "u", t0.Add(time.Minute)))
	assert.False(t, c.IsOverdue(t0.Add(time.Hour)), "solo aplica a conteos programados")
}
