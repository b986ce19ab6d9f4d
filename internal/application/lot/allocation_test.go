package lot_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

func TestAllocate_CapacityExceeded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 50)
	l := e.receivedLot(t, 100)
	require.Equal(t, entity.StageReceived, l.Stage)

	// Caso 1: 60 cabezas en un corral de 50
	_, err := e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penA, Quantity: 60}}})
	var cerr *domain.CapacityExceededError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 60, cerr.Requested)
	assert.Equal(t, 50, cerr.Available)

	assert.Empty(t, e.history(t, l.ID).Allocations)
	assert.Zero(t, e.penOccupancy(t, penA))
}

func TestAllocate_AllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 50)
	penB := e.pen(t, "B1", 10)
	l := e.receivedLot(t, 100)

	// Caso 1: el segundo corral no alcanza y nada se escribe
	_, err := e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{
		{PenID: penA, Quantity: 40},
		{PenID: penB, Quantity: 20},
	}})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Zero(t, e.penOccupancy(t, penA))
	assert.Zero(t, e.penOccupancy(t, penB))

	// Caso 2: la suma supera las cabezas del lote
	penC := e.pen(t, "C1", 500)
	_, err = e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penC, Quantity: 101}}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 3: corral inexistente
	_, err = e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: "nope", Quantity: 1}}})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, e.history(t, l.ID).Allocations)
}

func TestAllocate_MergesAndConfines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 100)
	penB := e.pen(t, "B1", 100)
	l := e.receivedLot(t, 100)

	// Caso 1: el mismo corral repetido se suma en una sola fila
	res, err := e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{
		{PenID: penA, Quantity: 30},
		{PenID: penA, Quantity: 20},
	}})
	require.NoError(t, err)
	assert.Equal(t, entity.StageReceived, res.Lot.Stage)
	active := activeAllocations(e.history(t, l.ID))
	require.Len(t, active, 1)
	assert.Equal(t, 50, active[0].Quantity)

	// Caso 2: al cubrir todas las cabezas el lote queda CONFINED
	res, err = e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penB, Quantity: 50}}})
	require.NoError(t, err)
	assert.Equal(t, entity.StageConfined, res.Lot.Stage)
	assert.Equal(t, entity.LotStatusActive, res.Lot.Status)
	assert.Equal(t, 50, e.penOccupancy(t, penA))
	assert.Equal(t, 50, e.penOccupancy(t, penB))

	// Caso 3: ya no quedan cabezas sin asignar
	_, err = e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penA, Quantity: 1}}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAllocate_RejectsPenInMaintenance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 100)
	_, err := e.pens.SetStatus(ctx, penA, dto.UpdatePenStatusRequest{Status: "maintenance"})
	require.NoError(t, err)
	l := e.receivedLot(t, 100)

	_, err = e.lots.Allocate(ctx, actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penA, Quantity: 10}}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestAllocate_BeforeReception(t *testing.T) {
	e := newEnv(t)
	penA := e.pen(t, "A1", 100)
	l := e.confirmedLot(t)

	_, err := e.lots.Allocate(context.Background(), actor, l.ID, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penA, Quantity: 10}}})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReception_WithAllocationsConfines(t *testing.T) {
	e := newEnv(t)
	penA := e.pen(t, "A1", 60)
	penB := e.pen(t, "B1", 60)

	l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 60}, dto.PenQuantity{PenID: penB, Quantity: 40})
	assert.Equal(t, entity.StageConfined, l.Stage)
	assert.Equal(t, 60, e.penOccupancy(t, penA))
	assert.Equal(t, 40, e.penOccupancy(t, penB))
	assert.Contains(t, e.pub.types(), entity.LotEventReceived)
}

func TestReception_CapacityFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 50)
	l := e.confirmedLot(t)

	_, err := e.lots.RegisterReception(ctx, actor, l.ID, dto.ReceptionRequest{
		ReceivedWeight:   d("14700"),
		ReceivedQuantity: 98,
		Allocations:      []dto.PenQuantity{{PenID: penA, Quantity: 60}},
	})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	h := e.history(t, l.ID)
	assert.Equal(t, entity.StageConfirmed, h.Lot.Stage)
	assert.Equal(t, 100, h.Lot.CurrentQuantity)
	assert.Empty(t, h.Mortality)
	assert.Nil(t, h.Lot.ReceivedDate)
}

func TestReallocate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 100)
	penB := e.pen(t, "B1", 100)
	l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
	source := activeAllocations(e.history(t, l.ID))[0]

	// Caso 1: mover 30 crea una fila con origen
	_, err := e.lots.Reallocate(ctx, actor, l.ID, dto.ReallocateRequest{AllocationID: source.ID, NewPenID: penB, Quantity: 30})
	require.NoError(t, err)
	h := e.history(t, l.ID)
	active := activeAllocations(h)
	require.Len(t, active, 2)
	var moved *entity.PenAllocation
	for _, a := range active {
		if a.PenID == penB {
			moved = a
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, 30, moved.Quantity)
	assert.Equal(t, source.ID, moved.SourceAllocationID)
	assert.Equal(t, 70, e.penOccupancy(t, penA))
	assert.Equal(t, 30, e.penOccupancy(t, penB))
	assert.Equal(t, 100, h.Stats.Allocated)
	assert.Equal(t, entity.StageConfined, h.Lot.Stage)

	// Caso 2: mover el resto suma a la fila existente y retira el origen
	_, err = e.lots.Reallocate(ctx, actor, l.ID, dto.ReallocateRequest{AllocationID: source.ID, NewPenID: penB, Quantity: 70})
	require.NoError(t, err)
	h = e.history(t, l.ID)
	active = activeAllocations(h)
	require.Len(t, active, 1)
	assert.Equal(t, moved.ID, active[0].ID)
	assert.Equal(t, 100, active[0].Quantity)
	assert.Len(t, h.Allocations, 2, "la fila retirada se conserva")
	assert.Zero(t, e.penOccupancy(t, penA))

	// Caso 3: el origen ya fue retirado
	_, err = e.lots.Reallocate(ctx, actor, l.ID, dto.ReallocateRequest{AllocationID: source.ID, NewPenID: penA, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 4: mismo corral de origen y destino
	_, err = e.lots.Reallocate(ctx, actor, l.ID, dto.ReallocateRequest{AllocationID: moved.ID, NewPenID: penB, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReallocate_DestinationFull(t *testing.T) {
	e := newEnv(t)
	penA := e.pen(t, "A1", 100)
	penB := e.pen(t, "B1", 10)
	l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
	source := activeAllocations(e.history(t, l.ID))[0]

	_, err := e.lots.Reallocate(context.Background(), actor, l.ID, dto.ReallocateRequest{AllocationID: source.ID, NewPenID: penB, Quantity: 20})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 100, e.penOccupancy(t, penA))
	assert.Zero(t, e.penOccupancy(t, penB))
}

func TestRelease_KeepsStage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 100)
	l := e.receivedLot(t, 100, dto.PenQuantity{PenID: penA, Quantity: 100})
	a := activeAllocations(e.history(t, l.ID))[0]

	// Caso 1: liberación parcial
	res, err := e.lots.Release(ctx, actor, l.ID, dto.ReleaseRequest{AllocationID: a.ID, Quantity: 40})
	require.NoError(t, err)
	assert.Equal(t, entity.StageConfined, res.Lot.Stage)
	assert.Equal(t, 100, res.Lot.CurrentQuantity)
	assert.Equal(t, 60, e.penOccupancy(t, penA))

	// Caso 2: más de lo asignado
	_, err = e.lots.Release(ctx, actor, l.ID, dto.ReleaseRequest{AllocationID: a.ID, Quantity: 61})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Caso 3: vaciar la asignación la retira
	_, err = e.lots.Release(ctx, actor, l.ID, dto.ReleaseRequest{AllocationID: a.ID, Quantity: 60})
	require.NoError(t, err)
	h := e.history(t, l.ID)
	require.Len(t, h.Allocations, 1)
	assert.Equal(t, entity.AllocationStatusRemoved, h.Allocations[0].Status)
	assert.NotNil(t, h.Allocations[0].ExitDate)
	assert.Equal(t, 100, h.Stats.Unallocated)
	assert.Zero(t, e.penOccupancy(t, penA))
}

func TestAllocate_ConcurrentRequestsNeverOverfillPen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	penA := e.pen(t, "A1", 50)
	first := e.receivedLot(t, 100)
	second := e.receivedLot(t, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.lots.Allocate(ctx, actor, id, dto.AllocateRequest{Allocations: []dto.PenQuantity{{PenID: penA, Quantity: 30}}})
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrCapacityExceeded)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 30, e.penOccupancy(t, penA))
}
