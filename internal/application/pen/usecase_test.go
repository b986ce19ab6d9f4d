package pen_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/application/pen"
	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/memory"
)

func newUseCases() (*pen.UseCase, *lot.UseCase) {
	store := memory.NewStore()
	ctrl := txctl.New(store, txctl.DefaultConfig(), zerolog.Nop(), nil)
	return pen.NewUseCase(ctrl, nil), lot.NewUseCase(ctrl, nil, nil, zerolog.Nop(), nil, lot.Config{})
}

func TestCreate(t *testing.T) {
	uc, _ := newUseCases()
	ctx := context.Background()

	// Caso 1: alta válida
	p, err := uc.Create(ctx, dto.CreatePenRequest{Number: " A-01 ", Capacity: 80, Location: "Sector norte"})
	require.NoError(t, err)
	assert.Equal(t, "A-01", p.Number)
	assert.Equal(t, "ACTIVE", p.Status)
	assert.Equal(t, 80, p.Available)
	assert.Zero(t, p.Occupancy)

	// Caso 2: número repetido
	_, err = uc.Create(ctx, dto.CreatePenRequest{Number: "A-01", Capacity: 10})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	// Caso 3: capacidad inválida y número vacío
	_, err = uc.Create(ctx, dto.CreatePenRequest{Number: "B-01", Capacity: 0})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Create(ctx, dto.CreatePenRequest{Capacity: 10})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := uc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestSetStatus(t *testing.T) {
	uc, lots := newUseCases()
	ctx := context.Background()
	p, err := uc.Create(ctx, dto.CreatePenRequest{Number: "A-01", Capacity: 80})
	require.NoError(t, err)

	// Caso 1: estado desconocido
	_, err = uc.SetStatus(ctx, p.ID, dto.UpdatePenStatusRequest{Status: "CLOSED"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 2: corral ocupado
	yield := decimal.NewFromInt(50)
	created, err := lots.Create(ctx, "user-1", dto.CreateLotRequest{
		InitialQuantity:      20,
		PurchaseWeight:       decimal.NewFromInt(3000),
		CarcassYieldPercent:  &yield,
		PricePerStandardUnit: decimal.NewFromInt(280),
	})
	require.NoError(t, err)
	_, err = lots.Confirm(ctx, "user-1", created.Lot.ID)
	require.NoError(t, err)
	received := time.Now()
	_, err = lots.RegisterReception(ctx, "user-1", created.Lot.ID, dto.ReceptionRequest{
		ReceivedWeight:   decimal.NewFromInt(3000),
		ReceivedQuantity: 20,
		ReceivedDate:     &received,
		Allocations:      []dto.PenQuantity{{PenID: p.ID, Quantity: 20}},
	})
	require.NoError(t, err)

	_, err = uc.SetStatus(ctx, p.ID, dto.UpdatePenStatusRequest{Status: "INACTIVE"})
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := uc.SetStatus(ctx, p.ID, dto.UpdatePenStatusRequest{Status: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "MAINTENANCE", got.Status)
	assert.Equal(t, 20, got.Occupancy)
	assert.Equal(t, 60, got.Available)
}

func TestGetByID_NotFound(t *testing.T) {
	uc, _ := newUseCases()
	_, err := uc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
