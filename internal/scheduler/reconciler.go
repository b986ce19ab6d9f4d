// Package scheduler dispara periódicamente la reconciliación de lotes con sincronización pendiente.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
)

// Actor con el que se atribuyen las entradas creadas por el disparo periódico.
const Actor = "scheduler"

// PendingReconciler puerto hacia finance.Synchronizer.
type PendingReconciler interface {
	ReconcilePending(ctx context.Context, limit int, actor string) (*finance.ReconcileReport, error)
}

// Reconciler ejecuta ReconcilePending según una expresión cron estándar (5 campos).
type Reconciler struct {
	cron      *cron.Cron
	target    PendingReconciler
	spec      string
	batchSize int
	timeout   time.Duration
	log       zerolog.Logger
}

// NewReconciler valida la expresión cron. Una expresión vacía no es válida: el llamador decide no crearlo.
func NewReconciler(spec string, batchSize int, target PendingReconciler, log zerolog.Logger) (*Reconciler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("expresión cron %q: %w", spec, err)
	}
	return &Reconciler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		target:    target,
		spec:      spec,
		batchSize: batchSize,
		timeout:   2 * time.Minute,
		log:       log,
	}, nil
}

// Start registra la tarea y arranca el cron.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.RunOnce); err != nil {
		return fmt.Errorf("programar reconciliación: %w", err)
	}
	r.log.Info().Str("cron", r.spec).Int("batch", r.batchSize).Msg("reconciliación periódica programada")
	r.cron.Start()
	return nil
}

// Stop detiene el cron y espera a que termine la ejecución en curso.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info().Msg("reconciliación periódica detenida")
}

// RunOnce una pasada de reconciliación con tiempo límite.
func (r *Reconciler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	report, err := r.target.ReconcilePending(ctx, r.batchSize, Actor)
	if err != nil {
		r.log.Error().Err(err).Msg("reconciliación periódica fallida")
		return
	}
	if report.Processed > 0 {
		r.log.Info().Int("processed", report.Processed).Int("cleared", report.Cleared).
			Strs("failed", report.Failed).Strs("retained", report.Retained).Msg("reconciliación periódica")
	}
}
