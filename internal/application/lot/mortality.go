package lot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/domain/valuation"
)

type mortalityInput struct {
	PenID      string
	Quantity   int
	Cause      entity.DeathCause
	Notes      string
	OccurredAt time.Time
}

// applyMortality agrega el evento y descuenta cabezas y costo del lote en memoria.
// El llamador persiste el lote.
func applyMortality(ctx context.Context, repos repository.Repositories, lot *entity.Lot, in mortalityInput, actor string, now time.Time) (*entity.MortalityEvent, error) {
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "quantity", Value: in.Quantity, Reason: "debe ser mayor a cero"}
	}
	if in.Quantity > lot.CurrentQuantity {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "quantity", Value: in.Quantity, Limit: lot.CurrentQuantity, Reason: "supera las cabezas del lote"}
	}
	if !in.Cause.IsValid() {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "cause", Value: string(in.Cause), Reason: "causa desconocida"}
	}

	active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	var allocationID string
	if in.PenID != "" {
		var source *entity.PenAllocation
		for _, a := range active {
			if a.PenID == in.PenID {
				source = a
				break
			}
		}
		if source == nil {
			return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "pen_id", Value: in.PenID, Reason: "el lote no ocupa ese corral"}
		}
		if in.Quantity > source.Quantity {
			return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "quantity", Value: in.Quantity, Limit: source.Quantity, Reason: "supera las cabezas del lote en el corral"}
		}
		pens, err := lockPens(ctx, repos, in.PenID)
		if err != nil {
			return nil, err
		}
		if err := takeFromAllocation(ctx, repos, source, pens[in.PenID], in.Quantity, now); err != nil {
			return nil, err
		}
		allocationID = source.ID
	} else {
		unallocated := lot.CurrentQuantity - activeTotal(active)
		if in.Quantity > unallocated {
			return nil, &domain.ValidationError{Entity: "mortality", ID: lot.ID, Field: "pen_id", Value: in.Quantity, Limit: unallocated, Reason: "indique el corral: no hay suficientes cabezas sin asignar"}
		}
	}

	currentCost := lot.CurrentTotalCost()
	event := &entity.MortalityEvent{
		ID:           uuid.New().String(),
		LotID:        lot.ID,
		PenID:        in.PenID,
		AllocationID: allocationID,
		Quantity:     in.Quantity,
		Cause:        in.Cause,
		Notes:        in.Notes,
		UnitCost:     valuation.CostPerHead(currentCost, lot.CurrentQuantity).Round(2),
		LossAmount:   valuation.ProportionalCost(currentCost, lot.CurrentQuantity, in.Quantity),
		OccurredAt:   in.OccurredAt,
		CreatedBy:    actor,
		CreatedAt:    now,
	}
	if err := repos.Events.CreateMortality(ctx, event); err != nil {
		return nil, err
	}

	lot.CurrentQuantity -= in.Quantity
	lot.DeathCount += in.Quantity
	lot.CostWrittenOff = lot.CostWrittenOff.Add(event.LossAmount)
	refreshCostPerHead(lot)
	lot.UpdatedAt = now
	return event, nil
}

type weightLossInput struct {
	PenID       string
	DeltaWeight decimal.Decimal
	Reason      string
	OccurredAt  time.Time
}

// applyWeightLoss registra la quiebra de peso. No genera entrada financiera.
func applyWeightLoss(ctx context.Context, repos repository.Repositories, lot *entity.Lot, in weightLossInput, actor string, now time.Time) (*entity.WeightEvent, error) {
	if !in.DeltaWeight.IsPositive() {
		return nil, &domain.ValidationError{Entity: "weight_event", ID: lot.ID, Field: "delta_weight", Value: in.DeltaWeight.String(), Reason: "debe ser mayor a cero"}
	}
	if in.DeltaWeight.GreaterThan(lot.CurrentWeight) {
		return nil, &domain.ValidationError{Entity: "weight_event", ID: lot.ID, Field: "delta_weight", Value: in.DeltaWeight.String(), Limit: lot.CurrentWeight.String(), Reason: "supera el peso actual"}
	}
	if in.PenID != "" {
		if _, err := repos.Pens.GetByID(ctx, in.PenID); err != nil {
			return nil, err
		}
	}
	event := &entity.WeightEvent{
		ID:           uuid.New().String(),
		LotID:        lot.ID,
		PenID:        in.PenID,
		DeltaWeight:  in.DeltaWeight,
		WeightBefore: lot.CurrentWeight,
		WeightAfter:  lot.CurrentWeight.Sub(in.DeltaWeight),
		Reason:       in.Reason,
		OccurredAt:   in.OccurredAt,
		CreatedBy:    actor,
		CreatedAt:    now,
	}
	if err := repos.Events.CreateWeight(ctx, event); err != nil {
		return nil, err
	}
	lot.CurrentWeight = event.WeightAfter
	lot.CostPerHead = nil
	lot.UpdatedAt = now
	return event, nil
}

// refreshCostPerHead recalcula el caché de costo promedio; nil si no quedan cabezas.
func refreshCostPerHead(lot *entity.Lot) {
	if lot.CurrentQuantity <= 0 {
		lot.CostPerHead = nil
		return
	}
	cph := valuation.CostPerHead(lot.CurrentTotalCost(), lot.CurrentQuantity).Round(2)
	lot.CostPerHead = &cph
}
