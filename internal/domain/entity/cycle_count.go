package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-engine/internal/domain"
)

// CycleCountStatus estado cerrado de un conteo cíclico.
type CycleCountStatus string

const (
	CycleCountScheduled  CycleCountStatus = "SCHEDULED"
	CycleCountInProgress CycleCountStatus = "IN_PROGRESS"
	CycleCountCompleted  CycleCountStatus = "COMPLETED"
	CycleCountCancelled  CycleCountStatus = "CANCELLED"
)

// CycleCountAction acción que dispara una transición de cabecera.
type CycleCountAction string

const (
	CycleCountStart    CycleCountAction = "start"
	CycleCountComplete CycleCountAction = "complete"
	CycleCountCancel   CycleCountAction = "cancel"
)

// CountType alcance del conteo.
type CountType string

const (
	CountTypeFull    CountType = "FULL"
	CountTypePartial CountType = "PARTIAL"
	CountTypeABC     CountType = "ABC"
	CountTypeRandom  CountType = "RANDOM"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t CountType) Valid() bool {
	switch t {
	case CountTypeFull, CountTypePartial, CountTypeABC, CountTypeRandom:
		return true
	}
	return false
}

// CountLineStatus estado de una línea de conteo.
type CountLineStatus string

const (
	CountLinePending          CountLineStatus = "PENDING"
	CountLineCounted          CountLineStatus = "COUNTED"
	CountLineRecountRequested CountLineStatus = "RECOUNT_REQUESTED"
	CountLineSkipped          CountLineStatus = "SKIPPED"
)

// Next función de transición de cabecera.
func (s CycleCountStatus) Next(a CycleCountAction) (CycleCountStatus, error) {
	switch {
	case a == CycleCountStart && s == CycleCountScheduled:
		return CycleCountInProgress, nil
	case a == CycleCountComplete && s == CycleCountInProgress:
		return CycleCountCompleted, nil
	case a == CycleCountCancel && (s == CycleCountScheduled || s == CycleCountInProgress):
		return CycleCountCancelled, nil
	}
	return s, domain.NewValidationError("cycle_count.transition_not_allowed", domain.ErrInvalidTransition, "no se puede %s un conteo en estado %s", a, s)
}

// CycleCountItem línea de conteo.
type CycleCountItem struct {
	ID               string
	ItemID           string
	ExpectedQuantity int64
	CountedQuantity  *int64
	Status           CountLineStatus
	CountedBy        string
	CountedAt        *time.Time
}

// Variance contado - esperado; ok=false si la línea no tiene conteo válido.
func (i CycleCountItem) Variance() (int64, bool) {
	if i.Status != CountLineCounted || i.CountedQuantity == nil {
		return 0, false
	}
	return *i.CountedQuantity - i.ExpectedQuantity, true
}

// CountVariance diferencia a ajustar para un item.
type CountVariance struct {
	ItemID   string
	Expected int64
	Counted  int64
	Variance int64
}

// CycleCount conteo físico periódico contra la proyección.
type CycleCount struct {
	recorder

	ID                     string
	CountNumber            string
	WarehouseID            string
	LocationID             string
	Status                 CycleCountStatus
	CountType              CountType
	ScheduledDate          time.Time
	ActualStartDate        *time.Time
	CompletionDate         *time.Time
	CounterName            string
	SupervisorName         string
	Notes                  string
	CancellationReason     string
	AdjustmentsPosted      bool
	ItemsCountedCorrect    int
	ItemsWithDiscrepancies int
	AccuracyPercentage     decimal.Decimal
	Items                  []CycleCountItem
	Version                int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewCycleCountParams datos de programación.
type NewCycleCountParams struct {
	ID             string
	Number         string
	WarehouseID    string
	LocationID     string
	CountType      CountType
	ScheduledDate  time.Time
	CounterName    string
	SupervisorName string
	Notes          string
	Items          []CycleCountItem
}

// NewCycleCount crea un conteo en Scheduled. Un conteo FULL puede programarse sin líneas;
// se completan con la proyección al iniciar.
func NewCycleCount(p NewCycleCountParams, by string, now time.Time) (*CycleCount, error) {
	if p.WarehouseID == "" {
		return nil, domain.NewValidationError("cycle_count.warehouse_required", domain.ErrInvalidInput, "bodega es obligatoria")
	}
	if p.CountType == "" {
		p.CountType = CountTypePartial
	}
	if !p.CountType.Valid() {
		return nil, domain.NewValidationError("cycle_count.type_invalid", domain.ErrInvalidInput, "tipo %q no soportado", p.CountType)
	}
	if len(p.Items) == 0 && p.CountType != CountTypeFull {
		return nil, domain.NewValidationError("cycle_count.items_required", domain.ErrInvalidInput, "el conteo requiere al menos un item")
	}
	if p.ScheduledDate.IsZero() {
		p.ScheduledDate = now
	}
	c := &CycleCount{
		ID:                 p.ID,
		CountNumber:        p.Number,
		WarehouseID:        p.WarehouseID,
		LocationID:         p.LocationID,
		Status:             CycleCountScheduled,
		CountType:          p.CountType,
		ScheduledDate:      p.ScheduledDate,
		CounterName:        p.CounterName,
		SupervisorName:     p.SupervisorName,
		Notes:              p.Notes,
		AccuracyPercentage: decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	seen := make(map[string]bool, len(p.Items))
	for _, it := range p.Items {
		if it.ItemID == "" {
			return nil, domain.NewValidationError("cycle_count.item_required", domain.ErrInvalidInput, "item_id es obligatorio")
		}
		if seen[it.ItemID] {
			return nil, domain.NewValidationError("cycle_count.duplicate_item", domain.ErrDuplicate, "item %s repetido", it.ItemID)
		}
		seen[it.ItemID] = true
		it.Status = CountLinePending
		it.CountedQuantity = nil
		c.Items = append(c.Items, it)
	}
	c.emit(EventCycleCountScheduled, by, "", now)
	return c, nil
}

// Key clave de proyección de un item en la bodega/ubicación del conteo.
func (c *CycleCount) Key(itemID string) StockKey {
	return StockKey{ItemID: itemID, WarehouseID: c.WarehouseID, LocationID: c.LocationID}
}

// HighAccuracyThreshold umbral por defecto de HasHighAccuracy.
var HighAccuracyThreshold = decimal.NewFromInt(95)

// HasHighAccuracy exactitud mayor o igual al umbral.
func (c *CycleCount) HasHighAccuracy(threshold decimal.Decimal) bool {
	return c.AccuracyPercentage.GreaterThanOrEqual(threshold)
}

// IsOverdue programado y con fecha vencida.
func (c *CycleCount) IsOverdue(now time.Time) bool {
	return c.Status == CycleCountScheduled && now.After(c.ScheduledDate)
}

// Start Scheduled -> InProgress; fija ExpectedQuantity de cada línea con la instantánea de la proyección.
// extra son líneas descubiertas en la proyección (solo conteos FULL).
func (c *CycleCount) Start(expected map[string]int64, extra []CycleCountItem, by string, now time.Time) error {
	next, err := c.Status.Next(CycleCountStart)
	if err != nil {
		return err
	}
	if c.CountType == CountTypeFull {
		for _, it := range extra {
			if c.indexOf(it.ItemID) >= 0 {
				continue
			}
			it.Status = CountLinePending
			c.Items = append(c.Items, it)
		}
	}
	if len(c.Items) == 0 {
		return domain.NewValidationError("cycle_count.items_required", domain.ErrInvalidInput, "no hay items para contar")
	}
	for i := range c.Items {
		c.Items[i].ExpectedQuantity = expected[c.Items[i].ItemID]
	}
	c.Status = next
	c.ActualStartDate = &now
	c.UpdatedAt = now
	c.emit(EventCycleCountStarted, by, "", now)
	return nil
}

// AddItem agrega una línea en Scheduled o InProgress. En InProgress expected es la
// instantánea de la proyección al agregarla; en Scheduled se ignora y la fija Start.
func (c *CycleCount) AddItem(item CycleCountItem, expected int64, now time.Time) error {
	if c.Status != CycleCountScheduled && c.Status != CycleCountInProgress {
		return domain.NewValidationError("cycle_count.items_frozen", domain.ErrInvalidTransition, "no se agregan líneas a un conteo en estado %s", c.Status)
	}
	if item.ItemID == "" {
		return domain.NewValidationError("cycle_count.item_required", domain.ErrInvalidInput, "item_id es obligatorio")
	}
	if c.indexOf(item.ItemID) >= 0 {
		return domain.NewValidationError("cycle_count.duplicate_item", domain.ErrDuplicate, "item %s repetido", item.ItemID)
	}
	item.Status = CountLinePending
	item.CountedQuantity = nil
	item.ExpectedQuantity = 0
	if c.Status == CycleCountInProgress {
		item.ExpectedQuantity = expected
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
	return nil
}

// RecordCount registra el conteo de una línea; el último registro gana.
func (c *CycleCount) RecordCount(itemID string, qty int64, by string, now time.Time) error {
	if c.Status != CycleCountInProgress {
		return domain.NewValidationError("cycle_count.not_in_progress", domain.ErrInvalidTransition, "el conteo está en estado %s", c.Status)
	}
	if qty < 0 {
		return domain.NewValidationError("cycle_count.quantity_non_negative", domain.ErrInvalidInput, "cantidad contada negativa")
	}
	i := c.indexOf(itemID)
	if i < 0 {
		return domain.NewValidationError("cycle_count.item_not_in_count", domain.ErrNotFound, "item %s no está en el conteo", itemID)
	}
	counted := qty
	c.Items[i].CountedQuantity = &counted
	c.Items[i].Status = CountLineCounted
	c.Items[i].CountedBy = by
	c.Items[i].CountedAt = &now
	c.UpdatedAt = now
	return nil
}

// RequestRecount devuelve una línea contada a pendiente de reconteo.
func (c *CycleCount) RequestRecount(itemID string, now time.Time) error {
	return c.setLineStatus(itemID, CountLineRecountRequested, now)
}

// SkipItem excluye explícitamente una línea del ajuste.
func (c *CycleCount) SkipItem(itemID string, now time.Time) error {
	return c.setLineStatus(itemID, CountLineSkipped, now)
}

// Complete InProgress -> Completed. Exige todas las líneas contadas u omitidas.
// Si postAdjustments, el caso de uso publica los ajustes en la misma unidad de trabajo.
func (c *CycleCount) Complete(postAdjustments bool, by string, now time.Time) ([]CountVariance, error) {
	if _, err := c.Status.Next(CycleCountComplete); err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		if it.Status != CountLineCounted && it.Status != CountLineSkipped {
			return nil, domain.NewValidationError("cycle_count.all_lines_counted", domain.ErrIncompleteCount, "item %s está en estado %s", it.ItemID, it.Status)
		}
	}
	c.Status = CycleCountCompleted
	c.CompletionDate = &now
	c.UpdatedAt = now
	c.computeAccuracy()
	var variances []CountVariance
	if postAdjustments {
		c.AdjustmentsPosted = true
		variances = c.Variances()
	}
	c.emit(EventCycleCountCompleted, by, "", now)
	return variances, nil
}

// Reconcile aplica los ajustes de un conteo completado sin publicación previa.
// changed=false si ya se publicaron (no se aplica dos veces).
func (c *CycleCount) Reconcile(by string, now time.Time) ([]CountVariance, bool, error) {
	if c.Status != CycleCountCompleted {
		return nil, false, domain.NewValidationError("cycle_count.reconcile_requires_completed", domain.ErrInvalidTransition, "el conteo está en estado %s", c.Status)
	}
	if c.AdjustmentsPosted {
		return nil, false, nil
	}
	c.AdjustmentsPosted = true
	c.UpdatedAt = now
	c.emit(EventCycleCountReconciled, by, "", now)
	return c.Variances(), true, nil
}

// Cancel Scheduled|InProgress -> Cancelled.
func (c *CycleCount) Cancel(reason, by string, now time.Time) error {
	next, err := c.Status.Next(CycleCountCancel)
	if err != nil {
		return err
	}
	c.Status = next
	c.CancellationReason = reason
	c.UpdatedAt = now
	c.emit(EventCycleCountCancelled, by, reason, now)
	return nil
}

// Variances diferencias distintas de cero de las líneas contadas.
func (c *CycleCount) Variances() []CountVariance {
	var out []CountVariance
	for _, it := range c.Items {
		v, ok := it.Variance()
		if !ok || v == 0 {
			continue
		}
		out = append(out, CountVariance{ItemID: it.ItemID, Expected: it.ExpectedQuantity, Counted: *it.CountedQuantity, Variance: v})
	}
	return out
}

func (c *CycleCount) computeAccuracy() {
	correct, wrong := 0, 0
	for _, it := range c.Items {
		v, ok := it.Variance()
		if !ok {
			continue
		}
		if v == 0 {
			correct++
		} else {
			wrong++
		}
	}
	c.ItemsCountedCorrect = correct
	c.ItemsWithDiscrepancies = wrong
	if correct+wrong == 0 {
		c.AccuracyPercentage = decimal.Zero
		return
	}
	c.AccuracyPercentage = decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(correct + wrong))).
		Round(2)
}

func (c *CycleCount) setLineStatus(itemID string, st CountLineStatus, now time.Time) error {
	if c.Status != CycleCountInProgress {
		return domain.NewValidationError("cycle_count.not_in_progress", domain.ErrInvalidTransition, "el conteo está en estado %s", c.Status)
	}
	i := c.indexOf(itemID)
	if i < 0 {
		return domain.NewValidationError("cycle_count.item_not_in_count", domain.ErrNotFound, "item %s no está en el conteo", itemID)
	}
	c.Items[i].Status = st
	c.UpdatedAt = now
	return nil
}

func (c *CycleCount) indexOf(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *CycleCount) emit(et EventType, by, reason string, now time.Time) {
	ev := newEvent(et, c.ID, by, reason, now)
	snap := *c
	snap.recorder = recorder{}
	snap.Items = append([]CycleCountItem(nil), c.Items...)
	ev.CycleCount = &snap
	c.record(ev)
}
