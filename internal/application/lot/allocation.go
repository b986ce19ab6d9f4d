package lot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

// Motor de asignación a corrales. Todas las funciones corren dentro de la unidad del llamador;
// cualquier error deja la unidad sin confirmar.

// mergeRequests suma las cantidades de un mismo corral y conserva el orden de aparición.
func mergeRequests(lotID string, reqs []dto.PenQuantity) ([]dto.PenQuantity, int, error) {
	if len(reqs) == 0 {
		return nil, 0, domain.Invalid("lot", lotID, "allocations", "debe indicar al menos un corral")
	}
	index := make(map[string]int, len(reqs))
	merged := make([]dto.PenQuantity, 0, len(reqs))
	total := 0
	for _, r := range reqs {
		if r.PenID == "" {
			return nil, 0, domain.Invalid("lot", lotID, "pen_id", "requerido")
		}
		if r.Quantity <= 0 {
			return nil, 0, &domain.ValidationError{Entity: "lot", ID: lotID, Field: "quantity", Value: r.Quantity, Reason: "debe ser mayor a cero"}
		}
		total += r.Quantity
		if i, ok := index[r.PenID]; ok {
			merged[i].Quantity += r.Quantity
			continue
		}
		index[r.PenID] = len(merged)
		merged = append(merged, r)
	}
	return merged, total, nil
}

func activeTotal(allocations []*entity.PenAllocation) int {
	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	return total
}

// lockPens bloquea los corrales en orden de id para que dos unidades no se bloqueen mutuamente.
func lockPens(ctx context.Context, repos repository.Repositories, ids ...string) (map[string]*entity.Pen, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	pens := make(map[string]*entity.Pen, len(sorted))
	for _, id := range sorted {
		if _, ok := pens[id]; ok {
			continue
		}
		pen, err := repos.Pens.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		pens[id] = pen
	}
	return pens, nil
}

func checkCapacity(pen *entity.Pen, quantity int) error {
	if !pen.AcceptsAnimals() {
		return &domain.ValidationError{Entity: "pen", ID: pen.ID, Field: "status", Value: string(pen.Status), Reason: "el corral no recibe animales"}
	}
	if quantity > pen.Available() {
		return &domain.CapacityExceededError{PenID: pen.ID, Requested: quantity, Available: pen.Available(), Capacity: pen.Capacity}
	}
	return nil
}

// allocate valida la solicitud completa antes de escribir: una sola falla rechaza todo.
func allocate(ctx context.Context, repos repository.Repositories, lot *entity.Lot, reqs []dto.PenQuantity, actor string, now time.Time) error {
	merged, total, err := mergeRequests(lot.ID, reqs)
	if err != nil {
		return err
	}
	active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
	if err != nil {
		return err
	}
	allocated := activeTotal(active)
	if allocated+total > lot.CurrentQuantity {
		return &domain.ValidationError{
			Entity: "lot", ID: lot.ID, Field: "allocations",
			Value: allocated + total, Limit: lot.CurrentQuantity,
			Reason: "la suma asignada supera las cabezas del lote",
		}
	}

	ids := make([]string, 0, len(merged))
	for _, r := range merged {
		ids = append(ids, r.PenID)
	}
	pens, err := lockPens(ctx, repos, ids...)
	if err != nil {
		return err
	}
	for _, r := range merged {
		if err := checkCapacity(pens[r.PenID], r.Quantity); err != nil {
			return err
		}
	}

	byPen := make(map[string]*entity.PenAllocation, len(active))
	for _, a := range active {
		byPen[a.PenID] = a
	}
	for _, r := range merged {
		if existing, ok := byPen[r.PenID]; ok {
			existing.Quantity += r.Quantity
			existing.UpdatedAt = now
			if err := repos.Allocations.Update(ctx, existing); err != nil {
				return err
			}
		} else {
			a := &entity.PenAllocation{
				ID:        uuid.New().String(),
				LotID:     lot.ID,
				PenID:     r.PenID,
				Quantity:  r.Quantity,
				EntryDate: now,
				Status:    entity.AllocationStatusActive,
				CreatedBy: actor,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repos.Allocations.Create(ctx, a); err != nil {
				return err
			}
		}
		pen := pens[r.PenID]
		pen.Occupancy += r.Quantity
		pen.UpdatedAt = now
		if err := repos.Pens.Update(ctx, pen); err != nil {
			return err
		}
	}
	return nil
}

// activeAllocationOf devuelve la asignación si pertenece al lote y sigue ACTIVE.
func activeAllocationOf(ctx context.Context, repos repository.Repositories, lot *entity.Lot, allocationID string) (*entity.PenAllocation, error) {
	a, err := repos.Allocations.GetByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if a.LotID != lot.ID {
		return nil, fmt.Errorf("asignación %s del lote %s: %w", allocationID, lot.ID, domain.ErrNotFound)
	}
	if !a.IsActive() {
		return nil, &domain.ValidationError{Entity: "allocation", ID: a.ID, Field: "status", Value: a.Status, Reason: "la asignación ya fue retirada"}
	}
	return a, nil
}

// takeFromAllocation descuenta quantity de la asignación y del corral; REMOVED al llegar a cero.
func takeFromAllocation(ctx context.Context, repos repository.Repositories, a *entity.PenAllocation, pen *entity.Pen, quantity int, now time.Time) error {
	if quantity <= 0 || quantity > a.Quantity {
		return &domain.ValidationError{Entity: "allocation", ID: a.ID, Field: "quantity", Value: quantity, Limit: a.Quantity, Reason: "fuera de rango"}
	}
	if pen.Occupancy < quantity {
		return fmt.Errorf("corral %s: ocupación %d menor a %d: %w", pen.ID, pen.Occupancy, quantity, domain.ErrConflict)
	}
	a.Quantity -= quantity
	a.UpdatedAt = now
	if a.Quantity == 0 {
		a.Remove(now)
	}
	if err := repos.Allocations.Update(ctx, a); err != nil {
		return err
	}
	pen.Occupancy -= quantity
	pen.UpdatedAt = now
	return repos.Pens.Update(ctx, pen)
}

// release libera cabezas de una asignación sin tocar la cantidad del lote.
func release(ctx context.Context, repos repository.Repositories, lot *entity.Lot, allocationID string, quantity int, now time.Time) error {
	a, err := activeAllocationOf(ctx, repos, lot, allocationID)
	if err != nil {
		return err
	}
	pens, err := lockPens(ctx, repos, a.PenID)
	if err != nil {
		return err
	}
	return takeFromAllocation(ctx, repos, a, pens[a.PenID], quantity, now)
}

// reallocate mueve cabezas a otro corral. Si el lote ya ocupa el corral destino se suma a esa fila.
func reallocate(ctx context.Context, repos repository.Repositories, lot *entity.Lot, allocationID, newPenID string, quantity int, actor string, now time.Time) error {
	if newPenID == "" {
		return domain.Invalid("allocation", allocationID, "new_pen_id", "requerido")
	}
	a, err := activeAllocationOf(ctx, repos, lot, allocationID)
	if err != nil {
		return err
	}
	if a.PenID == newPenID {
		return &domain.ValidationError{Entity: "allocation", ID: a.ID, Field: "new_pen_id", Value: newPenID, Reason: "el corral destino es el mismo de origen"}
	}
	if quantity <= 0 || quantity > a.Quantity {
		return &domain.ValidationError{Entity: "allocation", ID: a.ID, Field: "quantity", Value: quantity, Limit: a.Quantity, Reason: "fuera de rango"}
	}
	pens, err := lockPens(ctx, repos, a.PenID, newPenID)
	if err != nil {
		return err
	}
	dest := pens[newPenID]
	if err := checkCapacity(dest, quantity); err != nil {
		return err
	}
	if err := takeFromAllocation(ctx, repos, a, pens[a.PenID], quantity, now); err != nil {
		return err
	}

	active, err := repos.Allocations.ListActiveByPen(ctx, newPenID)
	if err != nil {
		return err
	}
	var target *entity.PenAllocation
	for _, existing := range active {
		if existing.LotID == lot.ID {
			target = existing
			break
		}
	}
	if target != nil {
		target.Quantity += quantity
		target.UpdatedAt = now
		if err := repos.Allocations.Update(ctx, target); err != nil {
			return err
		}
	} else {
		moved := &entity.PenAllocation{
			ID:                 uuid.New().String(),
			LotID:              lot.ID,
			PenID:              newPenID,
			Quantity:           quantity,
			EntryDate:          now,
			Status:             entity.AllocationStatusActive,
			SourceAllocationID: a.ID,
			CreatedBy:          actor,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repos.Allocations.Create(ctx, moved); err != nil {
			return err
		}
	}
	dest.Occupancy += quantity
	dest.UpdatedAt = now
	return repos.Pens.Update(ctx, dest)
}

// releaseAll vacía todas las asignaciones activas del lote (cancelación forzada).
func releaseAll(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) (int, error) {
	active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(active))
	for _, a := range active {
		ids = append(ids, a.PenID)
	}
	pens, err := lockPens(ctx, repos, ids...)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, a := range active {
		qty := a.Quantity
		if err := takeFromAllocation(ctx, repos, a, pens[a.PenID], qty, now); err != nil {
			return released, err
		}
		released += qty
	}
	return released, nil
}
