package lot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/domain/valuation"
)

func TestCreate_CodeAndPurchaseValue(t *testing.T) {
	e := newEnv(t)

	// Caso 1: 15000 kg × 50 % / 15 = 500 arrobas × 280 = 140000
	first := e.newLot(t)
	assert.Equal(t, "LOT-2403001", first.Code)
	assert.True(t, d("140000").Equal(first.PurchaseValue))
	assert.True(t, d("147000").Equal(first.TotalCost()))
	assert.Equal(t, entity.StageNegotiating, first.Stage)
	assert.Equal(t, entity.LotStatusPending, first.Status)
	assert.Equal(t, 100, first.CurrentQuantity)
	assert.Equal(t, 1, first.Version)

	// Caso 2: el contador del periodo avanza
	second := e.newLot(t)
	assert.Equal(t, "LOT-2403002", second.Code)

	assert.Equal(t, []string{entity.LotEventCreated, entity.LotEventCreated}, e.pub.types())
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Caso 1: cantidad inicial cero
	_, err := e.lots.Create(ctx, actor, dto.CreateLotRequest{InitialQuantity: 0, PurchaseWeight: d("100"), PricePerStandardUnit: d("1")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "initial_quantity", verr.Field)

	// Caso 2: rendimiento fuera de rango
	_, err = e.lots.Create(ctx, actor, dto.CreateLotRequest{
		InitialQuantity: 10, PurchaseWeight: d("100"), CarcassYieldPercent: dp("120"), PricePerStandardUnit: d("1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 3: flete negativo
	_, err = e.lots.Create(ctx, actor, dto.CreateLotRequest{
		InitialQuantity: 10, PurchaseWeight: d("100"), PricePerStandardUnit: d("1"), FreightCost: dp("-1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	lots, err := e.lots.List(ctx, repository.LotFilter{})
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestConfirm_GeneratesObligations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l := e.confirmedLot(t)

	assert.Equal(t, entity.StageConfirmed, l.Stage)
	h := e.history(t, l.ID)
	require.Len(t, h.Entries, 3)
	purchase := entriesByCategory(h, entity.CostPurchase)
	require.Len(t, purchase, 1)
	assert.True(t, d("140000").Equal(purchase[0].Amount))
	assert.Equal(t, entity.EntryStatusPending, purchase[0].Status)
	assert.True(t, purchase[0].ImpactsCashFlow)
	assert.Equal(t, entity.LotCostKey(l.Code, entity.CostPurchase), purchase[0].NaturalKey)

	// Caso 2: confirmar dos veces no está permitido
	_, err := e.lots.Confirm(ctx, actor, l.ID)
	var terr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "CONFIRMED", terr.From)
	assert.Len(t, e.history(t, l.ID).Entries, 3)
}

func TestUpdateTerms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l := e.newLot(t)

	// Caso 1: en negociación se recalcula el valor
	res, err := e.lots.UpdateTerms(ctx, actor, l.ID, dto.UpdateLotTermsRequest{PricePerStandardUnit: dp("300")})
	require.NoError(t, err)
	assert.True(t, d("150000").Equal(res.Lot.PurchaseValue))
	assert.Empty(t, e.history(t, l.ID).Entries)

	_, err = e.lots.Confirm(ctx, actor, l.ID)
	require.NoError(t, err)

	// Caso 2: después de confirmar el peso es inmutable
	_, err = e.lots.UpdateTerms(ctx, actor, l.ID, dto.UpdateLotTermsRequest{PurchaseWeight: dp("16000")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "valuation_terms", verr.Field)

	// Caso 3: el flete sí cambia y la entrada se actualiza en su lugar
	res, err = e.lots.UpdateTerms(ctx, actor, l.ID, dto.UpdateLotTermsRequest{FreightCost: dp("6500")})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	freight := entriesByCategory(e.history(t, l.ID), entity.CostFreight)
	require.Len(t, freight, 1)
	assert.True(t, d("6500").Equal(freight[0].Amount))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("sin force rechaza con obligaciones pendientes", func(t *testing.T) {
		e := newEnv(t)
		l := e.confirmedLot(t)

		_, err := e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "desistimiento"})
		require.ErrorIs(t, err, domain.ErrConflict)

		got, err := e.lots.Get(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StageConfirmed, got.Stage)
	})

	t.Run("force libera corrales y anula obligaciones", func(t *testing.T) {
		e := newEnv(t)
		penA := e.pen(t, "A1", 200)
		l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
		require.Equal(t, entity.StageConfined, l.Stage)

		res, err := e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "rechazo sanitario", Force: true})
		require.NoError(t, err)
		assert.Equal(t, entity.StageCancelled, res.Lot.Stage)
		assert.Equal(t, entity.LotStatusCancelled, res.Lot.Status)
		assert.Equal(t, "rechazo sanitario", res.Lot.CancelReason)
		require.NotNil(t, res.Lot.CancelledAt)

		assert.Zero(t, e.penOccupancy(t, penA))
		h := e.history(t, l.ID)
		assert.Empty(t, activeAllocations(h))
		for _, entry := range h.Entries {
			assert.False(t, entry.IsUnpaidCashObligation(), entry.NaturalKey)
		}
	})

	t.Run("etapa terminal y motivo vacío", func(t *testing.T) {
		e := newEnv(t)
		l := e.newLot(t)

		_, err := e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "  "})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "sin acuerdo"})
		require.NoError(t, err)

		_, err = e.lots.Cancel(ctx, actor, l.ID, dto.CancelRequest{Reason: "otra vez"})
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		_, err = e.lots.Confirm(ctx, actor, l.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Caso 1: lote sin dependientes
	l := e.newLot(t)
	require.NoError(t, e.lots.Delete(ctx, actor, l.ID))
	_, err := e.lots.Get(ctx, l.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Caso 2: lote confirmado con entradas
	confirmed := e.confirmedLot(t)
	err = e.lots.Delete(ctx, actor, confirmed.ID)
	require.ErrorIs(t, err, domain.ErrLotHasDependents)
}

func TestValuation_CheckAndReconcile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	original := valuation.DefaultCarcassYieldPercent
	t.Cleanup(func() { valuation.DefaultCarcassYieldPercent = original })

	res, err := e.lots.Create(ctx, actor, dto.CreateLotRequest{
		InitialQuantity:      100,
		PurchaseWeight:       d("15000"),
		PricePerStandardUnit: d("280"),
	})
	require.NoError(t, err)
	l := res.Lot

	check, err := e.lots.CheckValuation(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, check.Warnings)
	assert.True(t, d("500").Equal(check.StandardUnits))

	// Caso 2: cambia el rendimiento por defecto y el valor almacenado queda divergente
	valuation.DefaultCarcassYieldPercent = d("52")
	check, err = e.lots.CheckValuation(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, check.Warnings, 1)
	var div *domain.ValuationDivergenceError
	require.True(t, errors.As(check.Warnings[0], &div))
	assert.True(t, d("140000").Equal(check.Stored))
	assert.True(t, d("145600").Equal(check.Recomputed))

	got, err := e.lots.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, d("140000").Equal(got.PurchaseValue), "la verificación no corrige")

	// Caso 3: la reconciliación explícita sobrescribe
	fixed, err := e.lots.ReconcileValuation(ctx, actor, l.ID)
	require.NoError(t, err)
	assert.True(t, d("145600").Equal(fixed.Lot.PurchaseValue))
	check, err = e.lots.CheckValuation(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, check.Warnings)
}

func TestList_FilterByStage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newLot(t)
	e.confirmedLot(t)

	confirmed, err := e.lots.List(ctx, repository.LotFilter{Stage: entity.StageConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, entity.StageConfirmed, confirmed[0].Stage)

	_, err = e.lots.List(ctx, repository.LotFilter{Stage: "SHIPPED"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
