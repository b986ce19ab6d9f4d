// Package memory implementa los puertos de persistencia en memoria para pruebas y entornos efímeros.
// Cada transacción trabaja sobre una copia del estado y la publica solo si fn termina sin error.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

type state struct {
	lots        map[string]*entity.Lot
	pens        map[string]*entity.Pen
	allocations map[string]*entity.PenAllocation
	mortality   map[string]*entity.MortalityEvent
	weights     map[string]*entity.WeightEvent
	sales       map[string]*entity.SaleRecord
	entries     map[string]*entity.FinancialEntry
	sequences   map[string]int
}

func newState() state {
	return state{
		lots:        make(map[string]*entity.Lot),
		pens:        make(map[string]*entity.Pen),
		allocations: make(map[string]*entity.PenAllocation),
		mortality:   make(map[string]*entity.MortalityEvent),
		weights:     make(map[string]*entity.WeightEvent),
		sales:       make(map[string]*entity.SaleRecord),
		entries:     make(map[string]*entity.FinancialEntry),
		sequences:   make(map[string]int),
	}
}

// Los eventos son inmutables: se copia el mapa, no los valores.
func (s state) clone() state {
	out := newState()
	for k, v := range s.lots {
		out.lots[k] = v.Clone()
	}
	for k, v := range s.pens {
		out.pens[k] = v.Clone()
	}
	for k, v := range s.allocations {
		out.allocations[k] = v.Clone()
	}
	for k, v := range s.mortality {
		out.mortality[k] = v
	}
	for k, v := range s.weights {
		out.weights[k] = v
	}
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v.Clone()
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

// Store almacén transaccional en memoria. Las transacciones se serializan con un mutex,
// por lo que cualquier nivel de aislamiento pedido se cumple trivialmente.
type Store struct {
	mu    sync.Mutex
	state state
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Run ejecuta fn sobre una copia del estado. Si fn falla o el contexto expira antes de
// confirmar, la copia se descarta.
func (s *Store) Run(ctx context.Context, _ repository.TxOptions, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{state: s.state.clone()}
	if err := fn(ctx, tx.repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type txState struct {
	state state
}

func (tx *txState) repositories() repository.Repositories {
	return repository.Repositories{
		Lots:        &lotRepo{tx: tx},
		Pens:        &penRepo{tx: tx},
		Allocations: &allocationRepo{tx: tx},
		Events:      &eventRepo{tx: tx},
		Entries:     &entryRepo{tx: tx},
		Sequences:   &sequenceRepo{tx: tx},
	}
}
