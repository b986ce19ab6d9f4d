// Package lot implementa el ciclo de vida de los lotes de ganado: negociación, confirmación,
// recepción, confinamiento en corrales, bajas, venta y cancelación.
//
// Cada operación corre en una sola unidad transaccional (txctl). La sincronización financiera
// se ejecuta después, en su propia unidad; si falla, la operación igual se confirma y el
// resultado lleva una advertencia *domain.SyncPendingError.
package lot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/domain/valuation"
	"github.com/jhoicas/Confinamiento-api/pkg/metrics"
)

var (
	readCommitted = repository.TxOptions{Isolation: repository.IsolationReadCommitted}
	serializable  = repository.TxOptions{Isolation: repository.IsolationSerializable}
)

// Config parámetros del caso de uso.
type Config struct {
	CodeMaxAttempts int
	Now             Clock
}

// UseCase gestor del ciclo de vida de lotes.
type UseCase struct {
	tx      *txctl.Controller
	sync    CostSynchronizer
	events  Publisher
	codes   *CodeGenerator
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     Clock
}

// NewUseCase construye el caso de uso. sync, events y m pueden ser nil.
func NewUseCase(tx *txctl.Controller, sync CostSynchronizer, events Publisher, log zerolog.Logger, m *metrics.Metrics, cfg Config) *UseCase {
	if events == nil {
		events = NopPublisher{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &UseCase{
		tx:      tx,
		sync:    sync,
		events:  events,
		codes:   NewCodeGenerator(cfg.CodeMaxAttempts),
		log:     log,
		metrics: m,
		now:     now,
	}
}

// mutate bloquea el lote, aplica fn y lo persiste, todo en una unidad. fn puede repetirse
// si la unidad se reintenta: no debe acumular estado fuera de la transacción.
func (uc *UseCase) mutate(ctx context.Context, op, lotID string, opts repository.TxOptions, fn func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error) (*entity.Lot, error) {
	var out *entity.Lot
	err := uc.tx.Run(ctx, op, opts, func(ctx context.Context, repos repository.Repositories) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := fn(ctx, repos, lot, now); err != nil {
			return err
		}
		lot.UpdatedAt = now
		if err := repos.Lots.Update(ctx, lot); err != nil {
			return err
		}
		out = lot
		return nil
	})
	uc.metrics.Operation(op, err)
	if err != nil {
		uc.log.Debug().Err(err).Str("operation", op).Str("lot_id", lotID).Msg("operación rechazada")
		return nil, err
	}
	return out, nil
}

func (uc *UseCase) publish(ctx context.Context, eventType string, lot *entity.Lot, actor string) {
	event := entity.LotLifecycleEvent{
		Type:            eventType,
		LotID:           lot.ID,
		LotCode:         lot.Code,
		Stage:           lot.Stage,
		CurrentQuantity: lot.CurrentQuantity,
		Actor:           actor,
		OccurredAt:      uc.now(),
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		uc.log.Warn().Err(err).Str("event", eventType).Str("lot_id", lot.ID).Msg("no se pudo publicar el evento")
	}
}

// syncCosts sincroniza PURCHASE/FREIGHT/COMMISSION; ante falla marca el lote y devuelve la advertencia.
func (uc *UseCase) syncCosts(ctx context.Context, lot *entity.Lot, actor string) []error {
	if uc.sync == nil || lot.Stage == entity.StageNegotiating || lot.Stage == entity.StageCancelled {
		return nil
	}
	report, err := uc.sync.SyncLotCosts(ctx, lot.ID, actor)
	if err != nil {
		lot.SyncPending = true
		return []error{uc.sync.FlagPending(ctx, lot.ID, lot.Code, finance.ScopeLotCosts, err)}
	}
	for _, w := range report.Warnings {
		uc.log.Warn().Err(w).Str("lot_id", lot.ID).Str("lot_code", lot.Code).Msg("divergencia de valuación")
	}
	return report.Warnings
}

func (uc *UseCase) syncMortality(ctx context.Context, lot *entity.Lot, event *entity.MortalityEvent, actor string) []error {
	if uc.sync == nil || event == nil {
		return nil
	}
	if _, err := uc.sync.SyncMortalityLoss(ctx, event.ID, actor); err != nil {
		lot.SyncPending = true
		return []error{uc.sync.FlagPending(ctx, lot.ID, lot.Code, finance.ScopeMortalityLoss, err)}
	}
	return nil
}

func (uc *UseCase) logTransition(lot *entity.Lot, from entity.LotStage, op, actor string) {
	uc.log.Info().Str("lot_id", lot.ID).Str("lot_code", lot.Code).Str("operation", op).
		Str("from", string(from)).Str("to", string(lot.Stage)).Str("actor", actor).Msg("transición de lote")
}

// transition aplica el cambio de etapa solo si la máquina de estados lo admite.
func transition(lot *entity.Lot, op string, next entity.LotStage) error {
	if !lot.Stage.CanTransitionTo(next) {
		return invalidTransition(lot, op, next)
	}
	lot.SetStage(next)
	return nil
}

func invalidTransition(lot *entity.Lot, op string, to entity.LotStage) error {
	return &domain.InvalidTransitionError{LotID: lot.ID, Operation: op, From: string(lot.Stage), To: string(to)}
}

func requireHoldingAnimals(lot *entity.Lot, op string) error {
	if !lot.Stage.IsHoldingAnimals() {
		return invalidTransition(lot, op, "")
	}
	return nil
}

func validateOptionalAmount(lotID, field string, v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return &domain.ValidationError{Entity: "lot", ID: lotID, Field: field, Value: v.String(), Reason: "no puede ser negativo"}
	}
	return nil
}

// Create abre un lote en NEGOTIATING con código LOT-YYMMnnn y valor de compra calculado.
func (uc *UseCase) Create(ctx context.Context, actor string, in dto.CreateLotRequest) (*Result, error) {
	if in.InitialQuantity <= 0 {
		return nil, &domain.ValidationError{Entity: "lot", Field: "initial_quantity", Value: in.InitialQuantity, Reason: "debe ser mayor a cero"}
	}
	if err := validateOptionalAmount("", "freight_cost", in.FreightCost); err != nil {
		return nil, err
	}
	if err := validateOptionalAmount("", "commission", in.Commission); err != nil {
		return nil, err
	}

	now := uc.now()
	purchaseDate := now
	if in.PurchaseDate != nil {
		purchaseDate = *in.PurchaseDate
	}
	lot := &entity.Lot{
		ID:                   uuid.New().String(),
		VendorID:             in.VendorID,
		BrokerID:             in.BrokerID,
		InitialQuantity:      in.InitialQuantity,
		CurrentQuantity:      in.InitialQuantity,
		PurchaseWeight:       in.PurchaseWeight,
		CurrentWeight:        in.PurchaseWeight,
		CarcassYieldPercent:  in.CarcassYieldPercent,
		PricePerStandardUnit: in.PricePerStandardUnit,
		FreightCost:          in.FreightCost,
		Commission:           in.Commission,
		CostWrittenOff:       decimal.Zero,
		PurchaseDate:         purchaseDate,
		PrincipalDueDate:     in.PrincipalDueDate,
		FreightDueDate:       in.FreightDueDate,
		CommissionDueDate:    in.CommissionDueDate,
		Notes:                in.Notes,
		CreatedBy:            actor,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	lot.SetStage(entity.StageNegotiating)
	res, err := valuation.LotValue(lot)
	if err != nil {
		return nil, err
	}
	lot.PurchaseValue = res.Value
	refreshCostPerHead(lot)

	err = uc.tx.Run(ctx, "lot.create", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		lot.Version = 0
		code, err := uc.codes.Next(ctx, repos, now)
		if err != nil {
			return err
		}
		lot.Code = code
		if err := repos.Lots.Create(ctx, lot); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("código %s: %w", code, domain.ErrConcurrentModification)
			}
			return err
		}
		return nil
	})
	uc.metrics.Operation("lot.create", err)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("lot_id", lot.ID).Str("lot_code", lot.Code).Int("quantity", lot.InitialQuantity).
		Str("purchase_value", lot.PurchaseValue.StringFixed(2)).Str("actor", actor).Msg("lote creado")
	uc.publish(ctx, entity.LotEventCreated, lot, actor)
	return &Result{Lot: lot}, nil
}

func validateTerms(lotID string, in dto.UpdateLotTermsRequest) error {
	if in.InitialQuantity != nil && *in.InitialQuantity <= 0 {
		return &domain.ValidationError{Entity: "lot", ID: lotID, Field: "initial_quantity", Value: *in.InitialQuantity, Reason: "debe ser mayor a cero"}
	}
	if err := validateOptionalAmount(lotID, "freight_cost", in.FreightCost); err != nil {
		return err
	}
	return validateOptionalAmount(lotID, "commission", in.Commission)
}

// UpdateTerms modifica condiciones comerciales. Peso, rendimiento, precio y cantidad inicial
// solo cambian en NEGOTIATING; flete, comisión y vencimientos en cualquier etapa no terminal.
func (uc *UseCase) UpdateTerms(ctx context.Context, actor, lotID string, in dto.UpdateLotTermsRequest) (*Result, error) {
	if err := validateTerms(lotID, in); err != nil {
		return nil, err
	}
	lot, err := uc.mutate(ctx, "lot.update_terms", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		if lot.Stage.IsTerminal() {
			return invalidTransition(lot, "update_terms", "")
		}
		if in.HasValuationChanges() {
			if lot.Stage != entity.StageNegotiating {
				return &domain.ValidationError{Entity: "lot", ID: lot.ID, Field: "valuation_terms", Value: string(lot.Stage),
					Reason: "peso, rendimiento, precio y cantidad son inmutables después de confirmar"}
			}
			if in.InitialQuantity != nil {
				lot.InitialQuantity = *in.InitialQuantity
				lot.CurrentQuantity = *in.InitialQuantity
			}
			if in.PurchaseWeight != nil {
				lot.PurchaseWeight = *in.PurchaseWeight
				lot.CurrentWeight = *in.PurchaseWeight
			}
			if in.CarcassYieldPercent != nil {
				y := *in.CarcassYieldPercent
				lot.CarcassYieldPercent = &y
			}
			if in.PricePerStandardUnit != nil {
				lot.PricePerStandardUnit = *in.PricePerStandardUnit
			}
			res, err := valuation.LotValue(lot)
			if err != nil {
				return err
			}
			lot.PurchaseValue = res.Value
		}
		if in.FreightCost != nil {
			v := *in.FreightCost
			lot.FreightCost = &v
		}
		if in.Commission != nil {
			v := *in.Commission
			lot.Commission = &v
		}
		if in.PrincipalDueDate != nil {
			lot.PrincipalDueDate = in.PrincipalDueDate
		}
		if in.FreightDueDate != nil {
			lot.FreightDueDate = in.FreightDueDate
		}
		if in.CommissionDueDate != nil {
			lot.CommissionDueDate = in.CommissionDueDate
		}
		if in.Notes != nil {
			lot.Notes = *in.Notes
		}
		refreshCostPerHead(lot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	warnings := uc.syncCosts(ctx, lot, actor)
	uc.publish(ctx, entity.LotEventTermsUpdated, lot, actor)
	return &Result{Lot: lot, Warnings: warnings}, nil
}

// Confirm NEGOTIATING → CONFIRMED y genera las obligaciones del lote.
func (uc *UseCase) Confirm(ctx context.Context, actor, lotID string) (*Result, error) {
	var from entity.LotStage
	lot, err := uc.mutate(ctx, "lot.confirm", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from = lot.Stage
		return transition(lot, "confirm", entity.StageConfirmed)
	})
	if err != nil {
		return nil, err
	}
	uc.logTransition(lot, from, "confirm", actor)
	warnings := uc.syncCosts(ctx, lot, actor)
	uc.publish(ctx, entity.LotEventConfirmed, lot, actor)
	return &Result{Lot: lot, Warnings: warnings}, nil
}

// Cancel cancela un lote no terminal. Sin force se rechaza mientras haya asignaciones activas u
// obligaciones de caja pendientes; con force se liberan los corrales y se anulan esas obligaciones.
func (uc *UseCase) Cancel(ctx context.Context, actor, lotID string, in dto.CancelRequest) (*Result, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.Invalid("lot", lotID, "reason", "requerido")
	}
	var (
		from      entity.LotStage
		released  int
		cancelled int
	)
	lot, err := uc.mutate(ctx, "lot.cancel", lotID, serializable, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		from, released, cancelled = lot.Stage, 0, 0
		if !lot.Stage.CanTransitionTo(entity.StageCancelled) {
			return invalidTransition(lot, "cancel", entity.StageCancelled)
		}
		active, err := repos.Allocations.ListActiveByLot(ctx, lot.ID)
		if err != nil {
			return err
		}
		entries, err := repos.Entries.ListByLot(ctx, lot.ID)
		if err != nil {
			return err
		}
		var unpaid []*entity.FinancialEntry
		for _, e := range entries {
			if e.IsUnpaidCashObligation() {
				unpaid = append(unpaid, e)
			}
		}
		if !in.Force && (len(active) > 0 || len(unpaid) > 0) {
			return fmt.Errorf("lote %s: %d asignaciones activas y %d obligaciones pendientes: %w",
				lot.Code, len(active), len(unpaid), domain.ErrConflict)
		}
		if released, err = releaseAll(ctx, repos, lot, now); err != nil {
			return err
		}
		for _, e := range unpaid {
			e.Status = entity.EntryStatusCancelled
			e.UpdatedAt = now
			if err := repos.Entries.Update(ctx, e); err != nil {
				return err
			}
			cancelled++
		}
		if err := transition(lot, "cancel", entity.StageCancelled); err != nil {
			return err
		}
		lot.CancelReason = reason
		lot.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logTransition(lot, from, "cancel", actor)
	if released > 0 || cancelled > 0 {
		uc.log.Info().Str("lot_id", lot.ID).Int("released_heads", released).Int("cancelled_entries", cancelled).
			Msg("cancelación forzada")
	}
	uc.publish(ctx, entity.LotEventCancelled, lot, actor)
	return &Result{Lot: lot}, nil
}

// ValuationCheck comparación entre el valor almacenado y el recalculado.
type ValuationCheck struct {
	LotID         string
	Stored        decimal.Decimal
	Recomputed    decimal.Decimal
	Divergence    decimal.Decimal
	YieldUsed     decimal.Decimal
	StandardUnits decimal.Decimal
	Warnings      []error
}

// CheckValuation recalcula el valor de compra y reporta divergencia sin corregir nada.
func (uc *UseCase) CheckValuation(ctx context.Context, lotID string) (*ValuationCheck, error) {
	lot, err := uc.Get(ctx, lotID)
	if err != nil {
		return nil, err
	}
	res, err := valuation.LotValue(lot)
	if err != nil {
		return nil, err
	}
	check := &ValuationCheck{
		LotID:         lot.ID,
		Stored:        lot.PurchaseValue,
		Recomputed:    res.Value,
		Divergence:    valuation.Divergence(lot.PurchaseValue, res.Value),
		YieldUsed:     res.YieldPercent,
		StandardUnits: res.StandardUnits,
	}
	if divErr := valuation.Validate(lot.ID, lot.PurchaseValue, res.Value); divErr != nil {
		uc.metrics.Divergence()
		uc.log.Warn().Err(divErr).Str("lot_id", lot.ID).Str("lot_code", lot.Code).Msg("divergencia de valuación")
		check.Warnings = append(check.Warnings, divErr)
	}
	return check, nil
}

// ReconcileValuation sobrescribe el valor de compra con el recalculado. Es la única vía de corrección.
func (uc *UseCase) ReconcileValuation(ctx context.Context, actor, lotID string) (*Result, error) {
	var before decimal.Decimal
	var used valuation.Result
	lot, err := uc.mutate(ctx, "lot.reconcile_valuation", lotID, readCommitted, func(ctx context.Context, repos repository.Repositories, lot *entity.Lot, now time.Time) error {
		if lot.Stage == entity.StageCancelled {
			return invalidTransition(lot, "reconcile_valuation", "")
		}
		res, err := valuation.LotValue(lot)
		if err != nil {
			return err
		}
		before, used = lot.PurchaseValue, res
		lot.PurchaseValue = res.Value
		refreshCostPerHead(lot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("lot_id", lot.ID).Str("lot_code", lot.Code).
		Str("before", before.StringFixed(2)).Str("after", lot.PurchaseValue.StringFixed(2)).
		Str("yield_used", used.YieldPercent.String()).Bool("default_yield", lot.CarcassYieldPercent == nil).
		Str("actor", actor).Msg("valuación reconciliada")
	warnings := uc.syncCosts(ctx, lot, actor)
	uc.publish(ctx, entity.LotEventValuationFixed, lot, actor)
	return &Result{Lot: lot, Warnings: warnings}, nil
}

// Delete borra un lote sin asignaciones, eventos, ventas ni entradas.
func (uc *UseCase) Delete(ctx context.Context, actor, lotID string) error {
	var deleted *entity.Lot
	err := uc.tx.Run(ctx, "lot.delete", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		allocations, err := repos.Allocations.ListByLot(ctx, lotID)
		if err != nil {
			return err
		}
		mortality, err := repos.Events.ListMortalityByLot(ctx, lotID)
		if err != nil {
			return err
		}
		weights, err := repos.Events.ListWeightByLot(ctx, lotID)
		if err != nil {
			return err
		}
		sales, err := repos.Events.ListSalesByLot(ctx, lotID)
		if err != nil {
			return err
		}
		entries, err := repos.Entries.ListByLot(ctx, lotID)
		if err != nil {
			return err
		}
		if n := len(allocations) + len(mortality) + len(weights) + len(sales) + len(entries); n > 0 {
			return fmt.Errorf("lote %s: %d asignaciones, %d eventos, %d ventas, %d entradas: %w",
				lot.Code, len(allocations), len(mortality)+len(weights), len(sales), len(entries), domain.ErrLotHasDependents)
		}
		if err := repos.Lots.Delete(ctx, lotID); err != nil {
			return err
		}
		deleted = lot
		return nil
	})
	uc.metrics.Operation("lot.delete", err)
	if err != nil {
		return err
	}
	uc.log.Info().Str("lot_id", deleted.ID).Str("lot_code", deleted.Code).Str("actor", actor).Msg("lote eliminado")
	uc.publish(ctx, entity.LotEventDeleted, deleted, actor)
	return nil
}
