package repository

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// FinancialEntryRepository define el puerto para las entradas financieras derivadas.
// Create falla con domain.ErrDuplicate si la clave natural ya existe.
type FinancialEntryRepository interface {
	Create(ctx context.Context, entry *entity.FinancialEntry) error
	GetByID(ctx context.Context, id string) (*entity.FinancialEntry, error)
	GetByNaturalKey(ctx context.Context, key string) (*entity.FinancialEntry, error)
	Update(ctx context.Context, entry *entity.FinancialEntry) error
	ListByLot(ctx context.Context, lotID string) ([]*entity.FinancialEntry, error)
}
