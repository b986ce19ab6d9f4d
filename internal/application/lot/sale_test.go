package lot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

func TestMarkSold_PartialThenTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 200)
	l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
	a := activeAllocations(e.history(t, l.ID))[0]

	// Caso 1: las cabezas vendidas siguen en el corral
	_, err := e.lots.MarkSold(ctx, actor, l.ID, dto.SaleRequest{Quantity: 40})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "releases", verr.Field)
	assert.Equal(t, 100, e.penOccupancy(t, penA))

	// Caso 2: venta parcial con liberación explícita
	res, err := e.lots.MarkSold(ctx, actor, l.ID, dto.SaleRequest{
		Quantity: 40,
		Releases: []dto.AllocationRelease{{AllocationID: a.ID, Quantity: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StageConfined, res.Lot.Stage)
	assert.Equal(t, 60, res.Lot.CurrentQuantity)
	assert.Equal(t, 40, res.Lot.SoldQuantity)
	assert.Equal(t, 60, e.penOccupancy(t, penA))

	h := e.history(t, l.ID)
	require.Len(t, h.Sales, 1)
	// 147000 × 40 / 100
	assert.True(t, d("58800").Equal(h.Sales[0].CostAmount))
	assert.True(t, d("88200").Equal(h.Lot.CurrentTotalCost()))
	requireConservation(t, h)

	// Caso 3: venta del resto
	res, err = e.lots.MarkSold(ctx, actor, l.ID, dto.SaleRequest{
		Quantity: 60,
		Releases: []dto.AllocationRelease{{AllocationID: a.ID, Quantity: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StageSold, res.Lot.Stage)
	assert.Equal(t, entity.LotStatusSold, res.Lot.Status)
	assert.Zero(t, res.Lot.CurrentQuantity)
	assert.Nil(t, res.Lot.CostPerHead)
	assert.Zero(t, e.penOccupancy(t, penA))

	h = e.history(t, l.ID)
	assert.Empty(t, activeAllocations(h))
	assert.True(t, h.Lot.CurrentTotalCost().IsZero())
	requireConservation(t, h)

	// Caso 4: SOLD es terminal
	_, err = e.lots.MarkSold(ctx, actor, l.ID, dto.SaleRequest{Quantity: 1})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "tarde", Force: true})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkSold_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 200)

	// Caso 1: lote recibido pero no confinado
	received := e.receivedLot(t, 100)
	_, err := e.lots.MarkSold(ctx, actor, received.ID, dto.SaleRequest{Quantity: 10})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Caso 2: más cabezas que las del lote
	confined := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
	_, err = e.lots.MarkSold(ctx, actor, confined.ID, dto.SaleRequest{Quantity: 101})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 3: liberación mal formada
	_, err = e.lots.MarkSold(ctx, actor, confined.ID, dto.SaleRequest{
		Quantity: 10,
		Releases: []dto.AllocationRelease{{Quantity: 10}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	h := e.history(t, confined.ID)
	assert.Empty(t, h.Sales)
	assert.Equal(t, 100, e.penOccupancy(t, penA))
}
