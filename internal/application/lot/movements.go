package lot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/domain/valuation"
)

var hundred = decimal.NewFromInt(100)

// weightBreak quiebra de peso entre lo declarado por el vendedor y lo recibido, en %.
func weightBreak(purchase, received decimal.Decimal) decimal.Decimal {
	if !purchase.IsPositive() {
		return decimal.Zero
	}
	return purchase.Sub(received).Mul(hundred).Div(purchase).Round(2)
}

// promoteIfConfined RECEIVED → CONFINED cuando todas las cabezas vivas están en corrales.
// Se evalúa tras cualquier cambio de cantidades, no solo tras asignar.
func promoteIfConfined(ctx context.Context, repos repository.Repositories, lot *entity.Lot, op string) error {
	if lot.Stage != entity.StageReceived {
		return nil
	}
	active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
	if err != nil {
		return err
	}
	if activeTotal(active) != lot.CurrentQuantity {
		return nil
	}
	return transition(lot, op, entity.StageConfined)
}

// closeIfEmpty un lote sin cabezas vivas se cierra en SOLD: pasa por CONFINED (ninguna cabeza queda
// fuera de corral) y de ahí a SOLD. Las obligaciones con el vendedor no se tocan.
func closeIfEmpty(ctx context.Context, repos repository.Repositories, lot *entity.Lot, op string) error {
	if lot.CurrentQuantity > 0 || !lot.Stage.IsHoldingAnimals() {
		return nil
	}
	if err := promoteIfConfined(ctx, repos, lot, op); err != nil {
		return err
	}
	return transition(lot, op, entity.StageSold)
}

func at(now time.Time, override *time.Time) time.Time {
	if override != nil {
		return *override
	}
	return now
}

// RegisterReception CONFIRMED → RECEIVED, y → CONFINED en la misma unidad si las asignaciones
// cubren todas las cabezas. La diferencia entre comprado y recibido queda como una baja IN_TRANSIT.
func (uc *UseCase) RegisterReception(ctx context.Context, actor, lotID string, in dto.ReceptionRequest) (*Result, error) {
	if !in.ReceivedWeight.IsPositive() {
		return nil, &domain.ValidationError{Entity: "lot", ID: lotID, Field: "received_weight", Value: in.ReceivedWeight.String(), Reason: "debe ser mayor a cero"}
	}
	if in.ReceivedQuantity <= 0 {
		return nil, &domain.ValidationError{Entity: "lot", ID: lotID, Field: "received_quantity", Value: in.ReceivedQuantity, Reason: "debe ser mayor a cero"}
	}
	if err := validateOptionalAmount(lotID, "freight_cost", in.FreightCost); err != nil {
		return nil, err
	}

	var (
		from    entity.LotStage
		transit *entity.MortalityEvent
	)
	lot, err := uc.mutate(ctx, "lot.reception", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from, transit = lot.Stage, nil
		if err := transition(lot, "register_reception", entity.StageReceived); err != nil {
			return err
		}
		if in.ReceivedQuantity > lot.InitialQuantity {
			return &domain.ValidationError{Entity: "lot", ID: lot.ID, Field: "received_quantity", Value: in.ReceivedQuantity, Limit: lot.InitialQuantity, Reason: "supera la cantidad comprada"}
		}
		if in.FreightCost != nil {
			v := *in.FreightCost
			lot.FreightCost = &v
		}
		received := at(now, in.ReceivedDate)
		lot.ReceivedDate = &received
		lot.ReceivedWeight = in.ReceivedWeight
		lot.CurrentWeight = in.ReceivedWeight
		lot.WeightBreakPercent = weightBreak(lot.PurchaseWeight, in.ReceivedWeight)
		refreshCostPerHead(lot)

		if shortfall := lot.InitialQuantity - in.ReceivedQuantity; shortfall > 0 {
			event, err := applyMortality(ctx, repos, lot, mortalityInput{
				Quantity:   shortfall,
				Cause:      entity.DeathCauseInTransit,
				Notes:      "diferencia entre cantidad comprada y recibida",
				OccurredAt: received,
			}, actor, now)
			if err != nil {
				return err
			}
			transit = event
		}
		if len(in.Allocations) > 0 {
			if err := allocate(ctx, repos, lot, in.Allocations, actor, now); err != nil {
				return err
			}
		}
		return promoteIfConfined(ctx, repos, lot, "register_reception")
	})
	if err != nil {
		return nil, err
	}
	uc.logTransition(lot, from, "register_reception", actor)
	warnings := uc.syncCosts(ctx, lot, actor)
	warnings = append(warnings, uc.syncMortality(ctx, lot, transit, actor)...)
	uc.publish(ctx, entity.LotEventReceived, lot, actor)
	return &Result{Lot: lot, Warnings: warnings}, nil
}

// Allocate asigna cabezas a corrales. El lote pasa a CONFINED cuando todas quedan asignadas.
func (uc *UseCase) Allocate(ctx context.Context, actor, lotID string, in dto.AllocateRequest) (*Result, error) {
	if _, _, err := mergeRequests(lotID, in.Allocations); err != nil {
		return nil, err
	}
	var from entity.LotStage
	lot, err := uc.mutate(ctx, "lot.allocate", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from = lot.Stage
		if err := requireHoldingAnimals(lot, "allocate"); err != nil {
			return err
		}
		if err := allocate(ctx, repos, lot, in.Allocations, actor, now); err != nil {
			return err
		}
		return promoteIfConfined(ctx, repos, lot, "allocate")
	})
	if err != nil {
		return nil, err
	}
	if lot.Stage != from {
		uc.logTransition(lot, from, "allocate", actor)
	}
	uc.publish(ctx, entity.LotEventAllocated, lot, actor)
	return &Result{Lot: lot}, nil
}

// Reallocate mueve cabezas de una asignación a otro corral; el total del lote no cambia.
func (uc *UseCase) Reallocate(ctx context.Context, actor, lotID string, in dto.ReallocateRequest) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Entity: "allocation", ID: in.AllocationID, Field: "quantity", Value: in.Quantity, Reason: "debe ser mayor a cero"}
	}
	var from entity.LotStage
	lot, err := uc.mutate(ctx, "lot.reallocate", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from = lot.Stage
		if err := requireHoldingAnimals(lot, "reallocate"); err != nil {
			return err
		}
		if err := reallocate(ctx, repos, lot, in.AllocationID, in.NewPenID, in.Quantity, actor, now); err != nil {
			return err
		}
		return promoteIfConfined(ctx, repos, lot, "reallocate")
	})
	if err != nil {
		return nil, err
	}
	if lot.Stage != from {
		uc.logTransition(lot, from, "reallocate", actor)
	}
	uc.publish(ctx, entity.LotEventReallocated, lot, actor)
	return &Result{Lot: lot}, nil
}

// Release libera cabezas de un corral. Un lote CONFINED no retrocede de etapa.
func (uc *UseCase) Release(ctx context.Context, actor, lotID string, in dto.ReleaseRequest) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Entity: "allocation", ID: in.AllocationID, Field: "quantity", Value: in.Quantity, Reason: "debe ser mayor a cero"}
	}
	lot, err := uc.mutate(ctx, "lot.release", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		if err := requireHoldingAnimals(lot, "release"); err != nil {
			return err
		}
		if err := release(ctx, repos, lot, in.AllocationID, in.Quantity, now); err != nil {
			return err
		}
		return promoteIfConfined(ctx, repos, lot, "release")
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, entity.LotEventReleased, lot, actor)
	return &Result{Lot: lot}, nil
}

// MortalityResult lote y evento registrado.
type MortalityResult struct {
	Result
	Event *entity.MortalityEvent
}

// RecordMortality registra una baja; la pérdida se lleva al libro en una entrada propia del evento.
func (uc *UseCase) RecordMortality(ctx context.Context, actor, lotID string, in dto.MortalityRequest) (*MortalityResult, error) {
	cause := entity.DeathCause(strings.ToUpper(strings.TrimSpace(in.Cause)))
	if !cause.IsValid() {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lotID, Field: "cause", Value: in.Cause, Reason: "causa desconocida"}
	}
	if cause == entity.DeathCauseInTransit {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lotID, Field: "cause", Value: in.Cause, Reason: "reservada para la recepción"}
	}
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Entity: "mortality", ID: lotID, Field: "quantity", Value: in.Quantity, Reason: "debe ser mayor a cero"}
	}

	var (
		from  entity.LotStage
		event *entity.MortalityEvent
	)
	lot, err := uc.mutate(ctx, "lot.record_mortality", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from = lot.Stage
		if err := requireHoldingAnimals(lot, "record_mortality"); err != nil {
			return err
		}
		var err error
		event, err = applyMortality(ctx, repos, lot, mortalityInput{
			PenID:      in.PenID,
			Quantity:   in.Quantity,
			Cause:      cause,
			Notes:      in.Notes,
			OccurredAt: at(now, in.OccurredAt),
		}, actor, now)
		if err != nil {
			return err
		}
		if err := promoteIfConfined(ctx, repos, lot, "record_mortality"); err != nil {
			return err
		}
		return closeIfEmpty(ctx, repos, lot, "record_mortality")
	})
	if err != nil {
		return nil, err
	}
	if lot.Stage != from {
		uc.logTransition(lot, from, "record_mortality", actor)
	}
	uc.log.Info().Str("lot_id", lot.ID).Str("lot_code", lot.Code).Int("quantity", event.Quantity).
		Str("cause", string(event.Cause)).Str("loss", event.LossAmount.StringFixed(2)).Msg("baja registrada")
	warnings := uc.syncMortality(ctx, lot, event, actor)
	uc.publish(ctx, entity.LotEventMortalityRecorded, lot, actor)
	return &MortalityResult{Result: Result{Lot: lot, Warnings: warnings}, Event: event}, nil
}

// RecordWeightLoss registra una quiebra de peso e invalida el costo por cabeza en caché.
func (uc *UseCase) RecordWeightLoss(ctx context.Context, actor, lotID string, in dto.WeightLossRequest) (*Result, error) {
	if !in.DeltaWeight.IsPositive() {
		return nil, &domain.ValidationError{Entity: "weight_event", ID: lotID, Field: "delta_weight", Value: in.DeltaWeight.String(), Reason: "debe ser mayor a cero"}
	}
	lot, err := uc.mutate(ctx, "lot.record_weight_loss", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		if err := requireHoldingAnimals(lot, "record_weight_loss"); err != nil {
			return err
		}
		_, err := applyWeightLoss(ctx, repos, lot, weightLossInput{
			PenID:       in.PenID,
			DeltaWeight: in.DeltaWeight,
			Reason:      in.Reason,
			OccurredAt:  at(now, in.OccurredAt),
		}, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	warnings := uc.syncCosts(ctx, lot, actor)
	uc.publish(ctx, entity.LotEventWeightLoss, lot, actor)
	return &Result{Lot: lot, Warnings: warnings}, nil
}

// MarkSold registra una venta desde CONFINED. Las asignaciones a vaciar se indican explícitamente;
// el lote pasa a SOLD solo cuando no quedan cabezas.
func (uc *UseCase) MarkSold(ctx context.Context, actor, lotID string, in dto.SaleRequest) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Entity: "sale", ID: lotID, Field: "quantity", Value: in.Quantity, Reason: "debe ser mayor a cero"}
	}
	for _, r := range in.Releases {
		if r.AllocationID == "" || r.Quantity <= 0 {
			return nil, &domain.ValidationError{Entity: "sale", ID: lotID, Field: "releases", Value: r.Quantity, Reason: "cada liberación requiere asignación y cantidad positiva"}
		}
	}
	var from entity.LotStage
	lot, err := uc.mutate(ctx, "lot.mark_sold", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from = lot.Stage
		if lot.Stage != entity.StageConfined {
			return invalidTransition(lot, "mark_sold", entity.StageSold)
		}
		if in.Quantity > lot.CurrentQuantity {
			return &domain.ValidationError{Entity: "sale", ID: lot.ID, Field: "quantity", Value: in.Quantity, Limit: lot.CurrentQuantity, Reason: "supera las cabezas del lote"}
		}
		for _, r := range in.Releases {
			if err := release(ctx, repos, lot, r.AllocationID, r.Quantity, now); err != nil {
				return err
			}
		}
		remaining := lot.CurrentQuantity - in.Quantity
		active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
		if err != nil {
			return err
		}
		if allocated := activeTotal(active); allocated > remaining {
			return &domain.ValidationError{Entity: "sale", ID: lot.ID, Field: "releases", Value: allocated, Limit: remaining,
				Reason: "libere de los corrales las cabezas vendidas"}
		}

		currentCost := lot.CurrentTotalCost()
		sale := &entity.SaleRecord{
			ID:         uuid.New().String(),
			LotID:      lot.ID,
			Quantity:   in.Quantity,
			UnitCost:   valuation.CostPerHead(currentCost, lot.CurrentQuantity).Round(2),
			CostAmount: valuation.ProportionalCost(currentCost, lot.CurrentQuantity, in.Quantity),
			SoldAt:     at(now, in.SoldAt),
			CreatedBy:  actor,
			CreatedAt:  now,
		}
		if err := repos.Events.CreateSale(ctx, sale); err != nil {
			return err
		}
		lot.CurrentQuantity = remaining
		lot.SoldQuantity += in.Quantity
		lot.CostWrittenOff = lot.CostWrittenOff.Add(sale.CostAmount)
		refreshCostPerHead(lot)
		if remaining == 0 {
			return transition(lot, "mark_sold", entity.StageSold)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lot.Stage != from {
		uc.logTransition(lot, from, "mark_sold", actor)
	}
	uc.publish(ctx, entity.LotEventSold, lot, actor)
	return &Result{Lot: lot}, nil
}
