package repository

import "context"

// IsolationLevel nivel de aislamiento pedido a la transacción.
type IsolationLevel string

const (
	IsolationReadCommitted IsolationLevel = "read_committed"
	IsolationSerializable  IsolationLevel = "serializable"
)

// TxOptions opciones de una unidad transaccional.
type TxOptions struct {
	Isolation IsolationLevel
}

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Lots        LotRepository
	Pens        PenRepository
	Allocations PenAllocationRepository
	Events      LotEventRepository
	Entries     FinancialEntryRepository
	Sequences   CodeSequenceRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, opts TxOptions, fn func(ctx context.Context, repos Repositories) error) error
}
