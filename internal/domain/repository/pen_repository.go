package repository

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// PenRepository define el puerto de persistencia para corrales.
type PenRepository interface {
	Create(ctx context.Context, pen *entity.Pen) error
	GetByID(ctx context.Context, id string) (*entity.Pen, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Pen, error)
	Update(ctx context.Context, pen *entity.Pen) error
	List(ctx context.Context, limit, offset int) ([]*entity.Pen, error)
}
