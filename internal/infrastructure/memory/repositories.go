package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	stockcalc "github.com/jhoicas/inventory-engine/internal/domain/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var (
	_ repository.LedgerRepository      = (*ledgerRepo)(nil)
	_ repository.StockLevelRepository  = (*stockLevelRepo)(nil)
	_ repository.ReservationRepository = (*reservationRepo)(nil)
	_ repository.TransferRepository    = (*transferRepo)(nil)
	_ repository.CycleCountRepository  = (*cycleCountRepo)(nil)
	_ repository.WarehouseRepository   = (*warehouseRepo)(nil)
)

// ── Libro ────────────────────────────────────────────────────────────────────

type ledgerRepo struct{ st *state }

func (r *ledgerRepo) Append(_ context.Context, entry *entity.InventoryTransaction) (string, error) {
	if entry.IdempotencyKey != "" {
		if r.st.idempotency[entry.IdempotencyKey] {
			return "", domain.ErrDuplicate
		}
		r.st.idempotency[entry.IdempotencyKey] = true
	}
	r.st.nextSeq++
	entry.Seq = r.st.nextSeq
	r.st.ledger = append(r.st.ledger, *entry)
	return entry.ID, nil
}

func (r *ledgerRepo) ListByKey(_ context.Context, key entity.StockKey) ([]*entity.InventoryTransaction, error) {
	var out []*entity.InventoryTransaction
	for i := range r.st.ledger {
		e := r.st.ledger[i]
		if e.ItemID == key.ItemID && e.WarehouseID == key.WarehouseID && e.LocationID == key.LocationID {
			out = append(out, &e)
		}
	}
	stockcalc.SortChronologically(out)
	return out, nil
}

func (r *ledgerRepo) List(_ context.Context, f repository.LedgerFilter) ([]*entity.InventoryTransaction, error) {
	var out []*entity.InventoryTransaction
	for i := range r.st.ledger {
		e := r.st.ledger[i]
		if f.ItemID != "" && e.ItemID != f.ItemID {
			continue
		}
		if f.WarehouseID != "" && e.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Reference != "" && e.Reference != f.Reference {
			continue
		}
		if f.From != nil && e.TransactionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !e.TransactionDate.Before(*f.To) {
			continue
		}
		out = append(out, &e)
	}
	stockcalc.SortChronologically(out)
	return page(out, f.Limit, f.Offset), nil
}

// ── Proyección ───────────────────────────────────────────────────────────────

type stockLevelRepo struct{ st *state }

func (r *stockLevelRepo) Get(_ context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	if l, ok := r.st.levels[key]; ok {
		return &l, nil
	}
	return entity.NewStockLevel(key.ItemID, key.WarehouseID, key.LocationID), nil
}

// GetForUpdate equivale a Get: Store.Run ya serializa las unidades de trabajo.
func (r *stockLevelRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	return r.Get(ctx, key)
}

func (r *stockLevelRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	r.st.levels[level.Key()] = *level
	return nil
}

func (r *stockLevelRepo) ListByItemWarehouse(_ context.Context, itemID, warehouseID string) ([]*entity.StockLevel, error) {
	return r.filter(func(l entity.StockLevel) bool {
		return l.ItemID == itemID && l.WarehouseID == warehouseID
	}), nil
}

func (r *stockLevelRepo) ListByWarehouse(_ context.Context, warehouseID, locationID string) ([]*entity.StockLevel, error) {
	return r.filter(func(l entity.StockLevel) bool {
		return l.WarehouseID == warehouseID && l.LocationID == locationID
	}), nil
}

func (r *stockLevelRepo) filter(keep func(entity.StockLevel) bool) []*entity.StockLevel {
	var out []*entity.StockLevel
	for _, l := range r.st.levels {
		if keep(l) {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// ── Reservas ─────────────────────────────────────────────────────────────────

type reservationRepo struct{ st *state }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; ok {
		return domain.ErrDuplicate
	}
	res.Version = 1
	r.st.reservations[res.ID] = storedReservation(res)
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	cur, ok := r.st.reservations[res.ID]
	if !ok || cur.Version != res.Version {
		return domain.ErrConcurrencyConflict
	}
	res.Version++
	r.st.reservations[res.ID] = storedReservation(res)
	return nil
}

func (r *reservationRepo) List(_ context.Context, f repository.ReservationFilter) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.st.reservations {
		if f.ItemID != "" && res.ItemID != f.ItemID {
			continue
		}
		if f.WarehouseID != "" && res.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Status != "" && res.Status != f.Status {
			continue
		}
		res := res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationNumber < out[j].ReservationNumber })
	return page(out, f.Limit, f.Offset), nil
}

func (r *reservationRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.st.reservations {
		if res.IsDue(now) {
			res := res
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(*out[j].ExpirationDate) })
	return page(out, limit, 0), nil
}

func (r *reservationRepo) SumHeld(_ context.Context, key entity.StockKey) (int64, error) {
	var total int64
	for _, res := range r.st.reservations {
		if res.Key() == key && res.Holds() {
			total += res.Quantity
		}
	}
	return total, nil
}

func storedReservation(res *entity.Reservation) entity.Reservation {
	cp := *res
	cp.PullEvents()
	return cp
}

// ── Traslados ────────────────────────────────────────────────────────────────

type transferRepo struct{ st *state }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	if _, ok := r.st.transfers[t.ID]; ok {
		return domain.ErrDuplicate
	}
	t.Version = 1
	r.st.transfers[t.ID] = storedTransfer(t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	t, ok := r.st.transfers[id]
	if !ok {
		return nil, nil
	}
	out := storedTransfer(&t)
	return &out, nil
}

func (r *transferRepo) Update(_ context.Context, t *entity.Transfer) error {
	cur, ok := r.st.transfers[t.ID]
	if !ok || cur.Version != t.Version {
		return domain.ErrConcurrencyConflict
	}
	t.Version++
	r.st.transfers[t.ID] = storedTransfer(t)
	return nil
}

func (r *transferRepo) List(_ context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	var out []*entity.Transfer
	for _, t := range r.st.transfers {
		if f.WarehouseID != "" && t.FromWarehouseID != f.WarehouseID && t.ToWarehouseID != f.WarehouseID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		cp := storedTransfer(&t)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferNumber < out[j].TransferNumber })
	return page(out, f.Limit, f.Offset), nil
}

func storedTransfer(t *entity.Transfer) entity.Transfer {
	cp := *t
	cp.PullEvents()
	cp.Items = append([]entity.TransferItem(nil), t.Items...)
	return cp
}

// ── Conteos ──────────────────────────────────────────────────────────────────

type cycleCountRepo struct{ st *state }

func (r *cycleCountRepo) Create(_ context.Context, c *entity.CycleCount) error {
	if _, ok := r.st.cycleCounts[c.ID]; ok {
		return domain.ErrDuplicate
	}
	c.Version = 1
	r.st.cycleCounts[c.ID] = storedCycleCount(c)
	return nil
}

func (r *cycleCountRepo) GetByID(_ context.Context, id string) (*entity.CycleCount, error) {
	c, ok := r.st.cycleCounts[id]
	if !ok {
		return nil, nil
	}
	out := storedCycleCount(&c)
	return &out, nil
}

func (r *cycleCountRepo) Update(_ context.Context, c *entity.CycleCount) error {
	cur, ok := r.st.cycleCounts[c.ID]
	if !ok || cur.Version != c.Version {
		return domain.ErrConcurrencyConflict
	}
	c.Version++
	r.st.cycleCounts[c.ID] = storedCycleCount(c)
	return nil
}

func (r *cycleCountRepo) List(_ context.Context, f repository.CycleCountFilter) ([]*entity.CycleCount, error) {
	var out []*entity.CycleCount
	for _, c := range r.st.cycleCounts {
		if f.WarehouseID != "" && c.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		cp := storedCycleCount(&c)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountNumber < out[j].CountNumber })
	return page(out, f.Limit, f.Offset), nil
}

func storedCycleCount(c *entity.CycleCount) entity.CycleCount {
	cp := *c
	cp.PullEvents()
	cp.Items = append([]entity.CycleCountItem(nil), c.Items...)
	return cp
}

// ── Bodegas ──────────────────────────────────────────────────────────────────

type warehouseRepo struct{ st *state }

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	for _, cur := range r.st.warehouses {
		if cur.ID == w.ID || cur.Code == w.Code {
			return domain.ErrDuplicate
		}
	}
	r.st.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	w, ok := r.st.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *warehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	if _, ok := r.st.warehouses[w.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	out := make([]*entity.Warehouse, 0, len(r.st.warehouses))
	for _, w := range r.st.warehouses {
		w := w
		out = append(out, &w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}
