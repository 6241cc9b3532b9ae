package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-engine/internal/domain"
)

// TransferStatus estado cerrado de un traslado.
type TransferStatus string

const (
	TransferCreated   TransferStatus = "CREATED"
	TransferApproved  TransferStatus = "APPROVED"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// TransferAction acción que dispara una transición.
type TransferAction string

const (
	TransferApprove  TransferAction = "approve"
	TransferShip     TransferAction = "ship"
	TransferComplete TransferAction = "complete"
	TransferCancel   TransferAction = "cancel"
)

// Prioridades de traslado.
const (
	TransferPriorityLow    = "LOW"
	TransferPriorityNormal = "NORMAL"
	TransferPriorityHigh   = "HIGH"
	TransferPriorityUrgent = "URGENT"
)

// IsTerminal indica si el traslado ya no admite transiciones.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// Next función de transición. La cancelación solo procede antes del despacho:
// un traslado en tránsito debe completarse y revertirse con otro traslado.
func (s TransferStatus) Next(a TransferAction) (TransferStatus, error) {
	switch {
	case a == TransferApprove && s == TransferCreated:
		return TransferApproved, nil
	case a == TransferShip && s == TransferApproved:
		return TransferInTransit, nil
	case a == TransferComplete && s == TransferInTransit:
		return TransferCompleted, nil
	case a == TransferCancel && (s == TransferCreated || s == TransferApproved):
		return TransferCancelled, nil
	}
	return s, domain.NewValidationError("transfer.transition_not_allowed", domain.ErrInvalidTransition, "no se puede %s un traslado en estado %s", a, s)
}

// TransferItem línea de traslado.
type TransferItem struct {
	ID        string
	ItemID    string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineValue cantidad por precio unitario.
func (i TransferItem) LineValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Transfer movimiento de stock entre dos bodegas.
type Transfer struct {
	recorder

	ID                  string
	TransferNumber      string
	FromWarehouseID     string
	FromLocationID      string
	ToWarehouseID       string
	ToLocationID        string
	Status              TransferStatus
	RequestedBy         string
	ApprovedBy          string
	ApprovalDate        *time.Time
	TrackingNumber      string
	Reason              string
	Priority            string
	TransferDate        time.Time
	ExpectedArrivalDate *time.Time
	ShippedAt           *time.Time
	ActualArrivalDate   *time.Time
	CancellationReason  string
	TotalValue          decimal.Decimal
	Items               []TransferItem
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewTransferParams datos de creación.
type NewTransferParams struct {
	ID                  string
	Number              string
	FromWarehouseID     string
	FromLocationID      string
	ToWarehouseID       string
	ToLocationID        string
	RequestedBy         string
	Reason              string
	Priority            string
	ExpectedArrivalDate *time.Time
	Items               []TransferItem
}

// NewTransfer valida y crea un traslado en estado Created.
func NewTransfer(p NewTransferParams, now time.Time) (*Transfer, error) {
	if p.FromWarehouseID == "" || p.ToWarehouseID == "" {
		return nil, domain.NewValidationError("transfer.warehouses_required", domain.ErrInvalidInput, "bodegas origen y destino son obligatorias")
	}
	if p.FromWarehouseID == p.ToWarehouseID {
		return nil, domain.NewValidationError("transfer.distinct_warehouses", domain.ErrSameWarehouse, "origen y destino son la bodega %s", p.FromWarehouseID)
	}
	if len(p.Items) == 0 {
		return nil, domain.NewValidationError("transfer.items_required", domain.ErrInvalidInput, "el traslado requiere al menos una línea")
	}
	if p.Priority == "" {
		p.Priority = TransferPriorityNormal
	}
	if !validPriority(p.Priority) {
		return nil, domain.NewValidationError("transfer.priority_invalid", domain.ErrInvalidInput, "prioridad %q no soportada", p.Priority)
	}
	t := &Transfer{
		ID:                  p.ID,
		TransferNumber:      p.Number,
		FromWarehouseID:     p.FromWarehouseID,
		FromLocationID:      p.FromLocationID,
		ToWarehouseID:       p.ToWarehouseID,
		ToLocationID:        p.ToLocationID,
		Status:              TransferCreated,
		RequestedBy:         p.RequestedBy,
		Reason:              p.Reason,
		Priority:            p.Priority,
		TransferDate:        now,
		ExpectedArrivalDate: p.ExpectedArrivalDate,
		TotalValue:          decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for _, it := range p.Items {
		if err := t.addItem(it); err != nil {
			return nil, err
		}
	}
	t.recalculateTotal()
	t.emit(EventTransferCreated, p.RequestedBy, "", now)
	return t, nil
}

// SourceKey clave de proyección en origen para un item.
func (t *Transfer) SourceKey(itemID string) StockKey {
	return StockKey{ItemID: itemID, WarehouseID: t.FromWarehouseID, LocationID: t.FromLocationID}
}

// DestinationKey clave de proyección en destino para un item.
func (t *Transfer) DestinationKey(itemID string) StockKey {
	return StockKey{ItemID: itemID, WarehouseID: t.ToWarehouseID, LocationID: t.ToLocationID}
}

// Item busca la línea de un item.
func (t *Transfer) Item(itemID string) (TransferItem, bool) {
	for _, it := range t.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return TransferItem{}, false
}

// TransferHeaderChanges campos de cabecera editables mientras el traslado está en Created.
// Un campo nil no cambia; un string vacío limpia el valor (salvo Priority).
type TransferHeaderChanges struct {
	FromLocationID      *string
	ToLocationID        *string
	Reason              *string
	Priority            *string
	ExpectedArrivalDate *time.Time
}

// UpdateHeader aplica cambios de cabecera; solo en Created. sourceChanged indica que cambió
// la ubicación de origen y el caso de uso debe revalidar el disponible de todas las líneas.
func (t *Transfer) UpdateHeader(c TransferHeaderChanges, by string, now time.Time) (sourceChanged bool, err error) {
	if t.Status != TransferCreated {
		return false, domain.NewValidationError("transfer.header_frozen", domain.ErrInvalidTransition, "la cabecera solo se modifica en estado %s", TransferCreated)
	}
	if c.Priority != nil && !validPriority(*c.Priority) {
		return false, domain.NewValidationError("transfer.priority_invalid", domain.ErrInvalidInput, "prioridad %q no soportada", *c.Priority)
	}
	if c.ExpectedArrivalDate != nil && c.ExpectedArrivalDate.Before(t.TransferDate) {
		return false, domain.NewValidationError("transfer.arrival_after_transfer_date", domain.ErrInvalidInput, "llegada esperada anterior a la fecha del traslado")
	}
	if c.FromLocationID != nil && *c.FromLocationID != t.FromLocationID {
		t.FromLocationID = *c.FromLocationID
		sourceChanged = true
	}
	if c.ToLocationID != nil {
		t.ToLocationID = *c.ToLocationID
	}
	if c.Reason != nil {
		t.Reason = *c.Reason
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.ExpectedArrivalDate != nil {
		t.ExpectedArrivalDate = c.ExpectedArrivalDate
	}
	t.UpdatedAt = now
	t.emit(EventTransferUpdated, by, "", now)
	return sourceChanged, nil
}

// AddItem agrega una línea; solo en Created y sin items duplicados.
func (t *Transfer) AddItem(item TransferItem, now time.Time) error {
	if err := t.requireEditable(); err != nil {
		return err
	}
	if err := t.addItem(item); err != nil {
		return err
	}
	t.recalculateTotal()
	t.UpdatedAt = now
	return nil
}

// UpdateItem ajusta cantidad y, si unitPrice no es nil, precio de una línea; solo en Created.
// La disponibilidad en origen la revalida el caso de uso.
func (t *Transfer) UpdateItem(itemID string, qty int64, unitPrice *decimal.Decimal, now time.Time) error {
	if err := t.requireEditable(); err != nil {
		return err
	}
	if qty <= 0 {
		return domain.NewValidationError("transfer.quantity_positive", domain.ErrInvalidInput, "cantidad debe ser mayor a cero")
	}
	if unitPrice != nil && unitPrice.IsNegative() {
		return domain.NewValidationError("transfer.unit_price_non_negative", domain.ErrInvalidInput, "precio unitario negativo")
	}
	for i := range t.Items {
		if t.Items[i].ItemID == itemID {
			t.Items[i].Quantity = qty
			if unitPrice != nil {
				t.Items[i].UnitPrice = *unitPrice
			}
			t.recalculateTotal()
			t.UpdatedAt = now
			return nil
		}
	}
	return domain.NewValidationError("transfer.item_not_in_transfer", domain.ErrNotFound, "item %s no está en el traslado", itemID)
}

// RemoveItem quita una línea; solo en Created y sin dejar el traslado vacío.
func (t *Transfer) RemoveItem(itemID string, now time.Time) error {
	if err := t.requireEditable(); err != nil {
		return err
	}
	for i := range t.Items {
		if t.Items[i].ItemID == itemID {
			if len(t.Items) == 1 {
				return domain.NewValidationError("transfer.items_required", domain.ErrInvalidInput, "el traslado requiere al menos una línea")
			}
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.recalculateTotal()
			t.UpdatedAt = now
			return nil
		}
	}
	return domain.NewValidationError("transfer.item_not_in_transfer", domain.ErrNotFound, "item %s no está en el traslado", itemID)
}

// Approve Created -> Approved.
func (t *Transfer) Approve(by string, now time.Time) error {
	if err := t.transition(TransferApprove); err != nil {
		return err
	}
	t.ApprovedBy = by
	t.ApprovalDate = &now
	t.UpdatedAt = now
	t.emit(EventTransferApproved, by, "", now)
	return nil
}

// Ship Approved -> InTransit.
func (t *Transfer) Ship(trackingNumber, by string, now time.Time) error {
	if err := t.transition(TransferShip); err != nil {
		return err
	}
	if trackingNumber != "" {
		t.TrackingNumber = trackingNumber
	}
	t.ShippedAt = &now
	t.UpdatedAt = now
	t.emit(EventTransferInTransit, by, "", now)
	return nil
}

// Complete InTransit -> Completed. El movimiento de stock lo hace el caso de uso en la misma unidad de trabajo.
func (t *Transfer) Complete(by string, now time.Time) error {
	if err := t.transition(TransferComplete); err != nil {
		return err
	}
	t.ActualArrivalDate = &now
	t.UpdatedAt = now
	t.emit(EventTransferCompleted, by, "", now)
	return nil
}

// Cancel Created|Approved -> Cancelled. Nunca mueve stock.
func (t *Transfer) Cancel(reason, by string, now time.Time) error {
	if err := t.transition(TransferCancel); err != nil {
		return err
	}
	t.CancellationReason = reason
	t.UpdatedAt = now
	t.emit(EventTransferCancelled, by, reason, now)
	return nil
}

// SetTrackingNumber solo en Approved o InTransit.
func (t *Transfer) SetTrackingNumber(trackingNumber string, now time.Time) error {
	if t.Status != TransferApproved && t.Status != TransferInTransit {
		return domain.NewValidationError("transfer.tracking_requires_approved", domain.ErrInvalidTransition, "guía solo en traslados aprobados o en tránsito")
	}
	if trackingNumber == "" {
		return domain.NewValidationError("transfer.tracking_required", domain.ErrInvalidInput, "número de guía vacío")
	}
	t.TrackingNumber = trackingNumber
	t.UpdatedAt = now
	return nil
}

func (t *Transfer) transition(a TransferAction) error {
	next, err := t.Status.Next(a)
	if err != nil {
		return err
	}
	if a == TransferApprove && len(t.Items) == 0 {
		return domain.NewValidationError("transfer.items_required", domain.ErrInvalidInput, "el traslado requiere al menos una línea")
	}
	t.Status = next
	return nil
}

func validPriority(p string) bool {
	switch p {
	case TransferPriorityLow, TransferPriorityNormal, TransferPriorityHigh, TransferPriorityUrgent:
		return true
	}
	return false
}

func (t *Transfer) requireEditable() error {
	if t.Status != TransferCreated {
		return domain.NewValidationError("transfer.items_frozen", domain.ErrInvalidTransition, "las líneas solo se modifican en estado %s", TransferCreated)
	}
	return nil
}

func (t *Transfer) addItem(item TransferItem) error {
	if item.ItemID == "" {
		return domain.NewValidationError("transfer.item_required", domain.ErrInvalidInput, "item_id es obligatorio")
	}
	if item.Quantity <= 0 {
		return domain.NewValidationError("transfer.quantity_positive", domain.ErrInvalidInput, "cantidad debe ser mayor a cero")
	}
	if item.UnitPrice.IsNegative() {
		return domain.NewValidationError("transfer.unit_price_non_negative", domain.ErrInvalidInput, "precio unitario negativo")
	}
	if _, ok := t.Item(item.ItemID); ok {
		return domain.NewValidationError("transfer.duplicate_item", domain.ErrDuplicate, "item %s ya está en el traslado", item.ItemID)
	}
	t.Items = append(t.Items, item)
	return nil
}

func (t *Transfer) recalculateTotal() {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.LineValue())
	}
	t.TotalValue = total
}

func (t *Transfer) emit(et EventType, by, reason string, now time.Time) {
	ev := newEvent(et, t.ID, by, reason, now)
	snap := *t
	snap.recorder = recorder{}
	snap.Items = append([]TransferItem(nil), t.Items...)
	ev.Transfer = &snap
	t.record(ev)
}
