package lot

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

// Get obtiene un lote por ID.
func (uc *UseCase) Get(ctx context.Context, lotID string) (*entity.Lot, error) {
	var out *entity.Lot
	err := uc.tx.Run(ctx, "lot.get", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		out, err = repos.Lots.GetByID(ctx, lotID)
		return err
	})
	return out, err
}

// List lista lotes con filtro por etapa y paginación.
func (uc *UseCase) List(ctx context.Context, filter repository.LotFilter) ([]*entity.Lot, error) {
	if filter.Stage != "" && !filter.Stage.IsValid() {
		return nil, &domain.ValidationError{Entity: "lot", Field: "stage", Value: string(filter.Stage), Reason: "etapa desconocida"}
	}
	var out []*entity.Lot
	err := uc.tx.Run(ctx, "lot.list", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		out, err = repos.Lots.List(ctx, filter)
		return err
	})
	return out, err
}

// Stats indicadores derivados del historial.
type Stats struct {
	MortalityRate decimal.Decimal // % de cabezas iniciales muertas
	TotalLoss     decimal.Decimal
	TotalSoldCost decimal.Decimal
	Allocated     int
	Unallocated   int
}

// History vista completa de un lote. Pens contiene los corrales referidos por las asignaciones.
type History struct {
	Lot         *entity.Lot
	Allocations []*entity.PenAllocation
	Pens        map[string]*entity.Pen
	Mortality   []*entity.MortalityEvent
	Weights     []*entity.WeightEvent
	Sales       []*entity.SaleRecord
	Entries     []*entity.FinancialEntry
	Stats       Stats
}

// History reúne asignaciones, eventos, ventas y entradas del lote en una sola lectura consistente.
func (uc *UseCase) History(ctx context.Context, lotID string) (*History, error) {
	var h *History
	err := uc.tx.Run(ctx, "lot.history", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		lot, err := repos.Lots.GetByID(ctx, lotID)
		if err != nil {
			return err
		}
		h = &History{Lot: lot, Pens: map[string]*entity.Pen{}}
		if h.Allocations, err = repos.Allocations.ListByLot(ctx, lotID); err != nil {
			return err
		}
		for _, a := range h.Allocations {
			if _, ok := h.Pens[a.PenID]; ok {
				continue
			}
			pen, err := repos.Pens.GetByID(ctx, a.PenID)
			if err != nil {
				return err
			}
			h.Pens[a.PenID] = pen
		}
		if h.Mortality, err = repos.Events.ListMortalityByLot(ctx, lotID); err != nil {
			return err
		}
		if h.Weights, err = repos.Events.ListWeightByLot(ctx, lotID); err != nil {
			return err
		}
		if h.Sales, err = repos.Events.ListSalesByLot(ctx, lotID); err != nil {
			return err
		}
		h.Entries, err = repos.Entries.ListByLot(ctx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.Stats = computeStats(h)
	return h, nil
}

func computeStats(h *History) Stats {
	s := Stats{TotalLoss: decimal.Zero, TotalSoldCost: decimal.Zero, MortalityRate: decimal.Zero}
	for _, e := range h.Mortality {
		s.TotalLoss = s.TotalLoss.Add(e.LossAmount)
	}
	for _, sale := range h.Sales {
		s.TotalSoldCost = s.TotalSoldCost.Add(sale.CostAmount)
	}
	for _, a := range h.Allocations {
		if a.IsActive() {
			s.Allocated += a.Quantity
		}
	}
	s.Unallocated = h.Lot.CurrentQuantity - s.Allocated
	if h.Lot.InitialQuantity > 0 {
		s.MortalityRate = decimal.NewFromInt(int64(h.Lot.DeathCount)).Mul(hundred).
			Div(decimal.NewFromInt(int64(h.Lot.InitialQuantity))).Round(2)
	}
	return s
}
