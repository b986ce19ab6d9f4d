package lot_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/application/pen"
	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/memory"
)

const actor = "user-1"

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.LotLifecycleEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e entity.LotLifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type env struct {
	store *memory.Store
	lots  *lot.UseCase
	pens  *pen.UseCase
	fin   *finance.Synchronizer
	pub   *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return fixedNow }
	ctrl := txctl.New(store, txctl.Config{
		Timeout:        time.Second,
		MaxAttempts:    3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}, zerolog.Nop(), nil)
	fin := finance.NewSynchronizer(ctrl, zerolog.Nop(), nil, clock)
	pub := &recordingPublisher{}
	return &env{
		store: store,
		lots:  lot.NewUseCase(ctrl, fin, pub, zerolog.Nop(), nil, lot.Config{CodeMaxAttempts: 3, Now: clock}),
		pens:  pen.NewUseCase(ctrl, clock),
		fin:   fin,
		pub:   pub,
	}
}

func (e *env) pen(t *testing.T, number string, capacity int) string {
	t.Helper()
	p, err := e.pens.Create(context.Background(), dto.CreatePenRequest{Number: number, Capacity: capacity})
	require.NoError(t, err)
	return p.ID
}

// newLot lote de referencia: 100 cabezas, 15000 kg, 50 %, 280 por arroba, flete 5000, comisión 2000.
func (e *env) newLot(t *testing.T) *entity.Lot {
	t.Helper()
	res, err := e.lots.Create(context.Background(), actor, dto.CreateLotRequest{
		InitialQuantity:      100,
		PurchaseWeight:       d("15000"),
		CarcassYieldPercent:  dp("50"),
		PricePerStandardUnit: d("280"),
		FreightCost:          dp("5000"),
		Commission:           dp("2000"),
	})
	require.NoError(t, err)
	return res.Lot
}

func (e *env) confirmedLot(t *testing.T) *entity.Lot {
	t.Helper()
	l := e.newLot(t)
	res, err := e.lots.Confirm(context.Background(), actor, l.ID)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Lot
}

func (e *env) receivedLot(t *testing.T, quantity int, allocations ...dto.PenQuantity) *entity.Lot {
	t.Helper()
	l := e.confirmedLot(t)
	res, err := e.lots.RegisterReception(context.Background(), actor, l.ID, dto.ReceptionRequest{
		ReceivedWeight:   d("14700"),
		ReceivedQuantity: quantity,
		Allocations:      allocations,
	})
	require.NoError(t, err)
	return res.Lot
}

func (e *env) history(t *testing.T, lotID string) *lot.History {
	t.Helper()
	h, err := e.lots.History(context.Background(), lotID)
	require.NoError(t, err)
	return h
}

func (e *env) penOccupancy(t *testing.T, penID string) int {
	t.Helper()
	p, err := e.pens.GetByID(context.Background(), penID)
	require.NoError(t, err)
	return p.Occupancy
}

func activeAllocations(h *lot.History) []*entity.PenAllocation {
	var out []*entity.PenAllocation
	for _, a := range h.Allocations {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

func entriesByCategory(h *lot.History, category entity.CostCategory) []*entity.FinancialEntry {
	var out []*entity.FinancialEntry
	for _, e := range h.Entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// requireConservation actuales + muertes + vendidas = iniciales, también contra los eventos.
func requireConservation(t *testing.T, h *lot.History) {
	t.Helper()
	dead, sold := 0, 0
	for _, m := range h.Mortality {
		dead += m.Quantity
	}
	for _, s := range h.Sales {
		sold += s.Quantity
	}
	require.Equal(t, h.Lot.InitialQuantity, h.Lot.CurrentQuantity+dead+sold)
	require.Equal(t, dead, h.Lot.DeathCount)
	require.Equal(t, sold, h.Lot.SoldQuantity)
	require.Zero(t, h.Lot.UnaccountedQuantity())
	require.LessOrEqual(t, h.Stats.Allocated, h.Lot.CurrentQuantity)
}
