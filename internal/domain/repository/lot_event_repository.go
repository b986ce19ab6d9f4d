package repository

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// LotEventRepository persistencia append-only de bajas, correcciones de peso y ventas.
type LotEventRepository interface {
	CreateMortality(ctx context.Context, event *entity.MortalityEvent) error
	GetMortality(ctx context.Context, id string) (*entity.MortalityEvent, error)
	ListMortalityByLot(ctx context.Context, lotID string) ([]*entity.MortalityEvent, error)
	CreateWeight(ctx context.Context, event *entity.WeightEvent) error
	ListWeightByLot(ctx context.Context, lotID string) ([]*entity.WeightEvent, error)
	CreateSale(ctx context.Context, sale *entity.SaleRecord) error
	ListSalesByLot(ctx context.Context, lotID string) ([]*entity.SaleRecord, error)
}
