package lot

import (
	"context"
	"time"

	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// Publisher notifica mutaciones confirmadas a colaboradores externos.
type Publisher interface {
	Publish(ctx context.Context, event entity.LotLifecycleEvent) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, entity.LotLifecycleEvent) error { return nil }

// CostSynchronizer puerto hacia la sincronización financiera. Corre en su propia unidad,
// después de confirmar la mutación del lote.
type CostSynchronizer interface {
	SyncLotCosts(ctx context.Context, lotID, actor string) (*finance.SyncReport, error)
	SyncMortalityLoss(ctx context.Context, eventID, actor string) (*finance.SyncReport, error)
	FlagPending(ctx context.Context, lotID, lotCode, scope string, cause error) *domain.SyncPendingError
}

// Clock fuente de tiempo inyectable.
type Clock func() time.Time

// Result lote resultante y advertencias no bloqueantes (divergencia de valuación, sincronización pendiente).
type Result struct {
	Lot      *entity.Lot
	Warnings []error
}
