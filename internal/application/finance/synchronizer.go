// Package finance mantiene las entradas financieras derivadas del ciclo de vida de los lotes.
// Cada hecho lógico (costo de un lote por categoría, pérdida de un evento de mortalidad) se
// identifica por una clave natural y produce como máximo una entrada.
package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/domain/valuation"
	"github.com/jhoicas/Confinamiento-api/pkg/metrics"
)

// Alcances de sincronización usados en SyncPendingError y métricas.
const (
	ScopeLotCosts      = "lot_costs"
	ScopeMortalityLoss = "mortality_loss"
)

var serializable = repository.TxOptions{Isolation: repository.IsolationSerializable}

// SyncReport resumen de una sincronización.
type SyncReport struct {
	LotID     string
	Skipped   bool
	Created   int
	Updated   int
	Cancelled int
	Reopened  int
	Unchanged int
	Warnings  []error
}

// ReconcileReport resultado de ReconcilePending.
// Retained lista los lotes sincronizados que cambiaron durante la pasada y conservan la marca.
type ReconcileReport struct {
	Processed int
	Cleared   int
	Failed    []string
	Retained  []string
}

// errLotChanged el lote se modificó mientras se reconciliaba; la marca queda para la próxima pasada.
var errLotChanged = errors.New("lote modificado durante la reconciliación")

// Synchronizer aplica upserts idempotentes por clave natural.
type Synchronizer struct {
	tx      *txctl.Controller
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	printer *message.Printer
}

// NewSynchronizer construye el sincronizador. now nil usa time.Now.
func NewSynchronizer(tx *txctl.Controller, log zerolog.Logger, m *metrics.Metrics, now func() time.Time) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		tx:      tx,
		log:     log,
		metrics: m,
		now:     now,
		printer: message.NewPrinter(language.BrazilianPortuguese),
	}
}

// SyncLotCosts lleva las entradas PURCHASE, FREIGHT y COMMISSION del lote al estado actual.
// Lotes en NEGOTIATING o CANCELLED se omiten. Una divergencia de valuación se reporta como advertencia.
func (s *Synchronizer) SyncLotCosts(ctx context.Context, lotID, actor string) (*SyncReport, error) {
	var report *SyncReport
	err := s.tx.Run(ctx, "finance.sync_lot_costs", serializable, func(ctx context.Context, repos repository.Repositories) error {
		report = &SyncReport{LotID: lotID}
		lot, err := repos.Lots.GetByID(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.Stage == entity.StageNegotiating || lot.Stage == entity.StageCancelled {
			report.Skipped = true
			return nil
		}

		if res, err := valuation.LotValue(lot); err == nil {
			if divErr := valuation.Validate(lot.ID, lot.PurchaseValue, res.Value); divErr != nil {
				report.Warnings = append(report.Warnings, divErr)
			}
		}

		now := s.now()
		for _, category := range entity.LotCostCategories {
			if err := s.syncCategory(ctx, repos, lot, category, actor, now, report); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.Sync(ScopeLotCosts, err)
	if err != nil {
		return nil, err
	}
	for range report.Warnings {
		s.metrics.Divergence()
	}
	if !report.Skipped {
		s.log.Debug().Str("lot_id", lotID).Int("created", report.Created).Int("updated", report.Updated).
			Int("cancelled", report.Cancelled).Int("reopened", report.Reopened).Msg("costos del lote sincronizados")
	}
	return report, nil
}

func (s *Synchronizer) syncCategory(ctx context.Context, repos repository.Repositories, lot *entity.Lot, category entity.CostCategory, actor string, now time.Time, report *SyncReport) error {
	amount, dueDate := costSource(lot, category)
	date := lot.PurchaseDate
	key := entity.LotCostKey(lot.Code, category)

	existing, err := repos.Entries.GetByNaturalKey(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if existing == nil {
		if !amount.IsPositive() {
			return nil
		}
		entry := &entity.FinancialEntry{
			ID:              uuid.New().String(),
			NaturalKey:      key,
			LotID:           lot.ID,
			LotCode:         lot.Code,
			Category:        category,
			Type:            entity.EntryTypeExpense,
			Amount:          amount,
			Date:            date,
			DueDate:         dueDate,
			Status:          entity.EntryStatusPending,
			ImpactsCashFlow: true,
			Description:     s.describeCost(lot, category),
			CreatedBy:       actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repos.Entries.Create(ctx, entry); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				// otra unidad insertó la misma clave: se reintenta y se verá como existente
				return fmt.Errorf("entrada %s: %w", key, domain.ErrConcurrentModification)
			}
			return err
		}
		report.Created++
		return nil
	}

	if existing.ManuallyEdited || existing.Status == entity.EntryStatusPaid {
		if !existing.Amount.Equal(amount) {
			s.log.Info().Str("lot_id", lot.ID).Str("natural_key", key).Str("stored", existing.Amount.String()).
				Str("source", amount.String()).Bool("manually_edited", existing.ManuallyEdited).
				Str("status", existing.Status).Msg("entrada no sobrescrita")
		}
		report.Unchanged++
		return nil
	}

	switch {
	case !amount.IsPositive():
		if existing.Status != entity.EntryStatusPending {
			report.Unchanged++
			return nil
		}
		existing.Status = entity.EntryStatusCancelled
		report.Cancelled++
	case existing.Status == entity.EntryStatusCancelled:
		existing.Status = entity.EntryStatusPending
		applySource(existing, amount, date, dueDate)
		report.Reopened++
	case !existing.Amount.Equal(amount) || !existing.Date.Equal(date) || !existing.DueDate.Equal(dueDate):
		applySource(existing, amount, date, dueDate)
		report.Updated++
	default:
		report.Unchanged++
		return nil
	}
	existing.Description = s.describeCost(lot, category)
	existing.UpdatedAt = now
	return repos.Entries.Update(ctx, existing)
}

func applySource(e *entity.FinancialEntry, amount decimal.Decimal, date, dueDate time.Time) {
	e.Amount = amount
	e.Date = date
	e.DueDate = dueDate
}

// costSource monto y vencimiento de cada categoría. Sin vencimiento propio se usa la fecha de compra.
func costSource(lot *entity.Lot, category entity.CostCategory) (decimal.Decimal, time.Time) {
	due := func(d *time.Time) time.Time {
		if d != nil {
			return *d
		}
		return lot.PurchaseDate
	}
	switch category {
	case entity.CostPurchase:
		return lot.PurchaseValue, due(lot.PrincipalDueDate)
	case entity.CostFreight:
		if lot.FreightCost == nil {
			return decimal.Zero, due(lot.FreightDueDate)
		}
		return *lot.FreightCost, due(lot.FreightDueDate)
	case entity.CostCommission:
		if lot.Commission == nil {
			return decimal.Zero, due(lot.CommissionDueDate)
		}
		return *lot.Commission, due(lot.CommissionDueDate)
	}
	return decimal.Zero, lot.PurchaseDate
}

// SyncMortalityLoss registra una sola entrada PAID, sin impacto en caja, por evento de mortalidad.
func (s *Synchronizer) SyncMortalityLoss(ctx context.Context, eventID, actor string) (*SyncReport, error) {
	var report *SyncReport
	err := s.tx.Run(ctx, "finance.sync_mortality_loss", serializable, func(ctx context.Context, repos repository.Repositories) error {
		event, err := repos.Events.GetMortality(ctx, eventID)
		if err != nil {
			return err
		}
		report = &SyncReport{LotID: event.LotID}
		if !event.LossAmount.IsPositive() {
			report.Skipped = true
			return nil
		}
		key := entity.MortalityLossKey(event.ID)
		if _, err := repos.Entries.GetByNaturalKey(ctx, key); err == nil {
			report.Unchanged++
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		lot, err := repos.Lots.GetByID(ctx, event.LotID)
		if err != nil {
			return err
		}
		now := s.now()
		paidAt := event.OccurredAt
		entry := &entity.FinancialEntry{
			ID:              uuid.New().String(),
			NaturalKey:      key,
			LotID:           lot.ID,
			LotCode:         lot.Code,
			Category:        entity.CostMortalityLoss,
			SourceEventID:   event.ID,
			Type:            entity.EntryTypeExpense,
			Amount:          event.LossAmount,
			Date:            event.OccurredAt,
			DueDate:         event.OccurredAt,
			Status:          entity.EntryStatusPaid,
			ImpactsCashFlow: false,
			Description:     s.describeMortality(lot, event),
			PaidAt:          &paidAt,
			CreatedBy:       actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repos.Entries.Create(ctx, entry); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("entrada %s: %w", key, domain.ErrConcurrentModification)
			}
			return err
		}
		report.Created++
		return nil
	})
	s.metrics.Sync(ScopeMortalityLoss, err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// FlagPending marca el lote para reconciliación posterior y devuelve la advertencia a adjuntar.
// La mutación del lote ya confirmada no se revierte.
func (s *Synchronizer) FlagPending(ctx context.Context, lotID, lotCode, scope string, cause error) *domain.SyncPendingError {
	s.log.Error().Err(cause).Str("lot_id", lotID).Str("lot_code", lotCode).Str("scope", scope).
		Msg("sincronización financiera fallida; lote marcado como pendiente")

	err := s.tx.Run(ctx, "finance.flag_pending", repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.SyncPending {
			return nil
		}
		lot.SyncPending = true
		lot.UpdatedAt = s.now()
		return repos.Lots.Update(ctx, lot)
	})
	if err != nil {
		s.log.Error().Err(err).Str("lot_id", lotID).Msg("no se pudo marcar el lote como pendiente")
	}
	return &domain.SyncPendingError{LotID: lotID, LotCode: lotCode, Scope: scope, Err: cause}
}

// ReconcilePending reintenta la sincronización de los lotes marcados y limpia la marca si todo
// se sincronizó. Los errores por lote no detienen el lote siguiente.
func (s *Synchronizer) ReconcilePending(ctx context.Context, limit int, actor string) (*ReconcileReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var pending []*entity.Lot
	err := s.tx.Run(ctx, "finance.list_pending", repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		pending, err = repos.Lots.ListSyncPending(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, lot := range pending {
		report.Processed++
		err := s.resync(ctx, lot, actor)
		if errors.Is(err, errLotChanged) {
			s.log.Info().Str("lot_id", lot.ID).Str("lot_code", lot.Code).Msg("lote modificado durante la reconciliación; marca conservada")
			report.Retained = append(report.Retained, lot.ID)
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("lot_id", lot.ID).Str("lot_code", lot.Code).Msg("reconciliación pendiente fallida")
			report.Failed = append(report.Failed, lot.ID)
			continue
		}
		report.Cleared++
	}
	if report.Processed > 0 {
		s.log.Info().Int("processed", report.Processed).Int("cleared", report.Cleared).
			Int("failed", len(report.Failed)).Int("retained", len(report.Retained)).Msg("reconciliación financiera")
	}
	return report, nil
}

// resync sincroniza con la versión del lote leída al listar. La marca solo se limpia si esa versión
// sigue vigente: cualquier mutación posterior (y la falla que pudo marcarla) queda para otra pasada.
func (s *Synchronizer) resync(ctx context.Context, lot *entity.Lot, actor string) error {
	if _, err := s.SyncLotCosts(ctx, lot.ID, actor); err != nil {
		return err
	}
	var events []*entity.MortalityEvent
	err := s.tx.Run(ctx, "finance.list_mortality", repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		events, err = repos.Events.ListMortalityByLot(ctx, lot.ID)
		return err
	})
	if err != nil {
		return err
	}
	for _, event := range events {
		if _, err := s.SyncMortalityLoss(ctx, event.ID, actor); err != nil {
			return err
		}
	}
	return s.tx.Run(ctx, "finance.clear_pending", repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Lots.GetForUpdate(ctx, lot.ID)
		if err != nil {
			return err
		}
		if current.Version != lot.Version {
			return fmt.Errorf("lote %s versión %d→%d: %w", lot.ID, lot.Version, current.Version, errLotChanged)
		}
		current.SyncPending = false
		current.UpdatedAt = s.now()
		return repos.Lots.Update(ctx, current)
	})
}

// EditEntry edición manual de una entrada pendiente. Desde ese momento la sincronización no la toca.
func (s *Synchronizer) EditEntry(ctx context.Context, entryID, actor string, amount *decimal.Decimal, dueDate *time.Time, description *string) (*entity.FinancialEntry, error) {
	if amount != nil && !amount.IsPositive() {
		return nil, &domain.ValidationError{Entity: "financial_entry", ID: entryID, Field: "amount", Value: amount.String(), Reason: "debe ser mayor a cero"}
	}
	if amount == nil && dueDate == nil && description == nil {
		return nil, domain.Invalid("financial_entry", entryID, "body", "no hay cambios")
	}
	var out *entity.FinancialEntry
	err := s.tx.Run(ctx, "finance.edit_entry", serializable, func(ctx context.Context, repos repository.Repositories) error {
		entry, err := repos.Entries.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != entity.EntryStatusPending {
			return &domain.ValidationError{Entity: "financial_entry", ID: entryID, Field: "status", Value: entry.Status, Reason: "solo se editan entradas pendientes"}
		}
		if amount != nil {
			entry.Amount = amount.Round(2)
		}
		if dueDate != nil {
			entry.DueDate = *dueDate
		}
		if description != nil {
			entry.Description = *description
		}
		entry.ManuallyEdited = true
		entry.UpdatedAt = s.now()
		if err := repos.Entries.Update(ctx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", entryID).Str("actor", actor).Msg("entrada editada manualmente")
	return out, nil
}

// MarkPaid registra el pago de una entrada pendiente.
func (s *Synchronizer) MarkPaid(ctx context.Context, entryID, actor string, paidAt *time.Time) (*entity.FinancialEntry, error) {
	var out *entity.FinancialEntry
	err := s.tx.Run(ctx, "finance.mark_paid", serializable, func(ctx context.Context, repos repository.Repositories) error {
		entry, err := repos.Entries.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != entity.EntryStatusPending {
			return fmt.Errorf("entrada %s en estado %s: %w", entryID, entry.Status, domain.ErrConflict)
		}
		at := s.now()
		if paidAt != nil {
			at = *paidAt
		}
		entry.Status = entity.EntryStatusPaid
		entry.PaidAt = &at
		entry.UpdatedAt = s.now()
		if err := repos.Entries.Update(ctx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", entryID).Str("actor", actor).Msg("entrada pagada")
	return out, nil
}

// ListByLot entradas del lote, incluidas las canceladas.
func (s *Synchronizer) ListByLot(ctx context.Context, lotID string) ([]*entity.FinancialEntry, error) {
	var out []*entity.FinancialEntry
	err := s.tx.Run(ctx, "finance.list_by_lot", repository.TxOptions{}, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Lots.GetByID(ctx, lotID); err != nil {
			return err
		}
		var err error
		out, err = repos.Entries.ListByLot(ctx, lotID)
		return err
	})
	return out, err
}
