package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/memory"
)

var opts = repository.TxOptions{Isolation: repository.IsolationReadCommitted}

func newLot(id, code string) *entity.Lot {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lot := &entity.Lot{ID: id, Code: code, InitialQuantity: 10, CurrentQuantity: 10, CreatedAt: now, UpdatedAt: now}
	lot.SetStage(entity.StageNegotiating)
	return lot
}

// Caso 1: un error dentro de la transacción descarta todos los cambios.
func TestRun_RollbackAnteError(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Lots.Create(ctx, newLot("l1", "LOT-2403001")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Lots.GetByID(ctx, "l1")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Caso 2: contexto expirado antes de confirmar.
func TestRun_ContextoExpiradoNoConfirma(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Lots.Create(ctx, newLot("l1", "LOT-2403001")))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	err = store.Run(context.Background(), opts, func(ctx context.Context, repos repository.Repositories) error {
		exists, err := repos.Lots.ExistsByCode(ctx, "LOT-2403001")
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestLots_BloqueoOptimista(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Lots.Create(ctx, newLot("l1", "LOT-2403001"))
	}))

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		first, err := repos.Lots.GetForUpdate(ctx, "l1")
		require.NoError(t, err)
		stale := first.Clone()

		first.Notes = "primera"
		require.NoError(t, repos.Lots.Update(ctx, first))
		assert.Equal(t, 2, first.Version)

		stale.Notes = "obsoleta"
		return repos.Lots.Update(ctx, stale)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestLots_CodigoUnico(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Lots.Create(ctx, newLot("l1", "LOT-2403001")))
		return repos.Lots.Create(ctx, newLot("l2", "LOT-2403001"))
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestEntries_ClaveNaturalUnica(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	key := entity.LotCostKey("LOT-2403001", entity.CostPurchase)

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Entries.Create(ctx, &entity.FinancialEntry{ID: "e1", NaturalKey: key, LotID: "l1", Amount: decimal.NewFromInt(10)}))
		err := repos.Entries.Create(ctx, &entity.FinancialEntry{ID: "e2", NaturalKey: key, LotID: "l1", Amount: decimal.NewFromInt(10)})
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		got, err := repos.Entries.GetByNaturalKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "e1", got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestSequences_IncrementaPorPeriodo(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	var values []int
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
			v, err := repos.Sequences.Next(ctx, "2403")
			values = append(values, v)
			return err
		}))
	}
	require.NoError(t, store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		v, err := repos.Sequences.Next(ctx, "2404")
		assert.Equal(t, 1, v)
		return err
	}))

	assert.Equal(t, []int{1, 2, 3}, values)
}

func TestAllocations_UnaActivaPorLoteYCorral(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now()

	err := store.Run(ctx, opts, func(ctx context.Context, repos repository.Repositories) error {
		a := &entity.PenAllocation{ID: "a1", LotID: "l1", PenID: "p1", Quantity: 5, Status: entity.AllocationStatusActive, CreatedAt: now}
		require.NoError(t, repos.Allocations.Create(ctx, a))
		dup := &entity.PenAllocation{ID: "a2", LotID: "l1", PenID: "p1", Quantity: 1, Status: entity.AllocationStatusActive, CreatedAt: now}
		assert.ErrorIs(t, repos.Allocations.Create(ctx, dup), domain.ErrDuplicate)

		a.Remove(now)
		require.NoError(t, repos.Allocations.Update(ctx, a))
		require.NoError(t, repos.Allocations.Create(ctx, dup))

		active, err := repos.Allocations.ListActiveByLot(ctx, "l1")
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "a2", active[0].ID)

		all, err := repos.Allocations.ListByLot(ctx, "l1")
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}
