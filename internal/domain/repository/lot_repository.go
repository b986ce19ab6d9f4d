package repository

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// LotFilter filtros para listar lotes.
type LotFilter struct {
	Stage  entity.LotStage
	Limit  int
	Offset int
}

// LotRepository define el puerto de persistencia para lotes.
// Update aplica bloqueo optimista: falla con domain.ErrConcurrentModification si Version cambió.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Lot, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, lot *entity.Lot) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter LotFilter) ([]*entity.Lot, error)
	ListSyncPending(ctx context.Context, limit int) ([]*entity.Lot, error)
}
