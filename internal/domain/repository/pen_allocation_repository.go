package repository

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// PenAllocationRepository define el puerto para las asignaciones lote-corral.
type PenAllocationRepository interface {
	Create(ctx context.Context, allocation *entity.PenAllocation) error
	GetByID(ctx context.Context, id string) (*entity.PenAllocation, error)
	Update(ctx context.Context, allocation *entity.PenAllocation) error
	ListActiveByLot(ctx context.Context, lotID string) ([]*entity.PenAllocation, error)
	ListActiveByPen(ctx context.Context, penID string) ([]*entity.PenAllocation, error)
	// ListByLot incluye las asignaciones REMOVED (historial).
	ListByLot(ctx context.Context, lotID string) ([]*entity.PenAllocation, error)
}
