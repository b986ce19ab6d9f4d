package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var (
	_ repository.LotRepository            = (*lotRepo)(nil)
	_ repository.PenRepository            = (*penRepo)(nil)
	_ repository.PenAllocationRepository  = (*allocationRepo)(nil)
	_ repository.LotEventRepository       = (*eventRepo)(nil)
	_ repository.FinancialEntryRepository = (*entryRepo)(nil)
	_ repository.CodeSequenceRepository   = (*sequenceRepo)(nil)
)

type lotRepo struct{ tx *txState }

func (r *lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	if _, ok := r.tx.state.lots[lot.ID]; ok {
		return fmt.Errorf("lote %s: %w", lot.ID, domain.ErrDuplicate)
	}
	for _, existing := range r.tx.state.lots {
		if existing.Code == lot.Code {
			return fmt.Errorf("código de lote %s: %w", lot.Code, domain.ErrDuplicate)
		}
	}
	if lot.Version == 0 {
		lot.Version = 1
	}
	r.tx.state.lots[lot.ID] = lot.Clone()
	return nil
}

func (r *lotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	lot, ok := r.tx.state.lots[id]
	if !ok {
		return nil, fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	return lot.Clone(), nil
}

// GetForUpdate no necesita bloqueo: la transacción ya tiene el almacén en exclusiva.
func (r *lotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r *lotRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, lot := range r.tx.state.lots {
		if lot.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *lotRepo) Update(_ context.Context, lot *entity.Lot) error {
	stored, ok := r.tx.state.lots[lot.ID]
	if !ok {
		return fmt.Errorf("lote %s: %w", lot.ID, domain.ErrNotFound)
	}
	if stored.Version != lot.Version {
		return fmt.Errorf("lote %s versión %d (actual %d): %w", lot.ID, lot.Version, stored.Version, domain.ErrConcurrentModification)
	}
	lot.Version++
	r.tx.state.lots[lot.ID] = lot.Clone()
	return nil
}

func (r *lotRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tx.state.lots[id]; !ok {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	delete(r.tx.state.lots, id)
	return nil
}

func (r *lotRepo) List(_ context.Context, filter repository.LotFilter) ([]*entity.Lot, error) {
	out := make([]*entity.Lot, 0, len(r.tx.state.lots))
	for _, lot := range r.tx.state.lots {
		if filter.Stage != "" && lot.Stage != filter.Stage {
			continue
		}
		out = append(out, lot.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code > out[j].Code
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *lotRepo) ListSyncPending(_ context.Context, limit int) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, lot := range r.tx.state.lots {
		if lot.SyncPending {
			out = append(out, lot.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return paginate(out, limit, 0), nil
}

type penRepo struct{ tx *txState }

func (r *penRepo) Create(_ context.Context, pen *entity.Pen) error {
	for _, existing := range r.tx.state.pens {
		if existing.ID == pen.ID || existing.Number == pen.Number {
			return fmt.Errorf("corral %s: %w", pen.Number, domain.ErrDuplicate)
		}
	}
	if pen.Version == 0 {
		pen.Version = 1
	}
	r.tx.state.pens[pen.ID] = pen.Clone()
	return nil
}

func (r *penRepo) GetByID(_ context.Context, id string) (*entity.Pen, error) {
	pen, ok := r.tx.state.pens[id]
	if !ok {
		return nil, fmt.Errorf("corral %s: %w", id, domain.ErrNotFound)
	}
	return pen.Clone(), nil
}

func (r *penRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pen, error) {
	return r.GetByID(ctx, id)
}

func (r *penRepo) Update(_ context.Context, pen *entity.Pen) error {
	stored, ok := r.tx.state.pens[pen.ID]
	if !ok {
		return fmt.Errorf("corral %s: %w", pen.ID, domain.ErrNotFound)
	}
	if stored.Version != pen.Version {
		return fmt.Errorf("corral %s: %w", pen.ID, domain.ErrConcurrentModification)
	}
	pen.Version++
	r.tx.state.pens[pen.ID] = pen.Clone()
	return nil
}

func (r *penRepo) List(_ context.Context, limit, offset int) ([]*entity.Pen, error) {
	out := make([]*entity.Pen, 0, len(r.tx.state.pens))
	for _, pen := range r.tx.state.pens {
		out = append(out, pen.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return paginate(out, limit, offset), nil
}

type allocationRepo struct{ tx *txState }

func (r *allocationRepo) Create(_ context.Context, a *entity.PenAllocation) error {
	if _, ok := r.tx.state.allocations[a.ID]; ok {
		return fmt.Errorf("asignación %s: %w", a.ID, domain.ErrDuplicate)
	}
	if a.IsActive() {
		for _, existing := range r.tx.state.allocations {
			if existing.IsActive() && existing.LotID == a.LotID && existing.PenID == a.PenID {
				return fmt.Errorf("asignación activa lote %s corral %s: %w", a.LotID, a.PenID, domain.ErrDuplicate)
			}
		}
	}
	r.tx.state.allocations[a.ID] = a.Clone()
	return nil
}

func (r *allocationRepo) GetByID(_ context.Context, id string) (*entity.PenAllocation, error) {
	a, ok := r.tx.state.allocations[id]
	if !ok {
		return nil, fmt.Errorf("asignación %s: %w", id, domain.ErrNotFound)
	}
	return a.Clone(), nil
}

func (r *allocationRepo) Update(_ context.Context, a *entity.PenAllocation) error {
	if _, ok := r.tx.state.allocations[a.ID]; !ok {
		return fmt.Errorf("asignación %s: %w", a.ID, domain.ErrNotFound)
	}
	r.tx.state.allocations[a.ID] = a.Clone()
	return nil
}

func (r *allocationRepo) ListActiveByLot(_ context.Context, lotID string) ([]*entity.PenAllocation, error) {
	return r.filter(func(a *entity.PenAllocation) bool { return a.LotID == lotID && a.IsActive() }), nil
}

func (r *allocationRepo) ListActiveByPen(_ context.Context, penID string) ([]*entity.PenAllocation, error) {
	return r.filter(func(a *entity.PenAllocation) bool { return a.PenID == penID && a.IsActive() }), nil
}

func (r *allocationRepo) ListByLot(_ context.Context, lotID string) ([]*entity.PenAllocation, error) {
	return r.filter(func(a *entity.PenAllocation) bool { return a.LotID == lotID }), nil
}

func (r *allocationRepo) filter(keep func(*entity.PenAllocation) bool) []*entity.PenAllocation {
	var out []*entity.PenAllocation
	for _, a := range r.tx.state.allocations {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type eventRepo struct{ tx *txState }

func (r *eventRepo) CreateMortality(_ context.Context, e *entity.MortalityEvent) error {
	if _, ok := r.tx.state.mortality[e.ID]; ok {
		return fmt.Errorf("evento de mortalidad %s: %w", e.ID, domain.ErrDuplicate)
	}
	cp := *e
	r.tx.state.mortality[e.ID] = &cp
	return nil
}

func (r *eventRepo) GetMortality(_ context.Context, id string) (*entity.MortalityEvent, error) {
	e, ok := r.tx.state.mortality[id]
	if !ok {
		return nil, fmt.Errorf("evento de mortalidad %s: %w", id, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (r *eventRepo) ListMortalityByLot(_ context.Context, lotID string) ([]*entity.MortalityEvent, error) {
	var out []*entity.MortalityEvent
	for _, e := range r.tx.state.mortality {
		if e.LotID == lotID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *eventRepo) CreateWeight(_ context.Context, e *entity.WeightEvent) error {
	if _, ok := r.tx.state.weights[e.ID]; ok {
		return fmt.Errorf("evento de peso %s: %w", e.ID, domain.ErrDuplicate)
	}
	cp := *e
	r.tx.state.weights[e.ID] = &cp
	return nil
}

func (r *eventRepo) ListWeightByLot(_ context.Context, lotID string) ([]*entity.WeightEvent, error) {
	var out []*entity.WeightEvent
	for _, e := range r.tx.state.weights {
		if e.LotID == lotID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *eventRepo) CreateSale(_ context.Context, s *entity.SaleRecord) error {
	if _, ok := r.tx.state.sales[s.ID]; ok {
		return fmt.Errorf("venta %s: %w", s.ID, domain.ErrDuplicate)
	}
	cp := *s
	r.tx.state.sales[s.ID] = &cp
	return nil
}

func (r *eventRepo) ListSalesByLot(_ context.Context, lotID string) ([]*entity.SaleRecord, error) {
	var out []*entity.SaleRecord
	for _, s := range r.tx.state.sales {
		if s.LotID == lotID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type entryRepo struct{ tx *txState }

func (r *entryRepo) Create(_ context.Context, e *entity.FinancialEntry) error {
	for _, existing := range r.tx.state.entries {
		if existing.ID == e.ID || existing.NaturalKey == e.NaturalKey {
			return fmt.Errorf("entrada %s: %w", e.NaturalKey, domain.ErrDuplicate)
		}
	}
	if e.Version == 0 {
		e.Version = 1
	}
	r.tx.state.entries[e.ID] = e.Clone()
	return nil
}

func (r *entryRepo) GetByID(_ context.Context, id string) (*entity.FinancialEntry, error) {
	e, ok := r.tx.state.entries[id]
	if !ok {
		return nil, fmt.Errorf("entrada %s: %w", id, domain.ErrNotFound)
	}
	return e.Clone(), nil
}

func (r *entryRepo) GetByNaturalKey(_ context.Context, key string) (*entity.FinancialEntry, error) {
	for _, e := range r.tx.state.entries {
		if e.NaturalKey == key {
			return e.Clone(), nil
		}
	}
	return nil, fmt.Errorf("entrada %s: %w", key, domain.ErrNotFound)
}

func (r *entryRepo) Update(_ context.Context, e *entity.FinancialEntry) error {
	stored, ok := r.tx.state.entries[e.ID]
	if !ok {
		return fmt.Errorf("entrada %s: %w", e.ID, domain.ErrNotFound)
	}
	if stored.Version != e.Version {
		return fmt.Errorf("entrada %s: %w", e.ID, domain.ErrConcurrentModification)
	}
	e.Version++
	r.tx.state.entries[e.ID] = e.Clone()
	return nil
}

func (r *entryRepo) ListByLot(_ context.Context, lotID string) ([]*entity.FinancialEntry, error) {
	var out []*entity.FinancialEntry
	for _, e := range r.tx.state.entries {
		if e.LotID == lotID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].NaturalKey < out[j].NaturalKey
	})
	return out, nil
}

type sequenceRepo struct{ tx *txState }

func (r *sequenceRepo) Next(_ context.Context, period string) (int, error) {
	r.tx.state.sequences[period]++
	return r.tx.state.sequences[period], nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
