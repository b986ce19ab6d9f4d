package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func isoLevel(l repository.IsolationLevel) pgx.TxIsoLevel {
	if l == repository.IsolationSerializable {
		return pgx.Serializable
	}
	return pgx.ReadCommitted
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(opts.Isolation)})
	if err != nil {
		return translate(err, "begin transaction")
	}
	// el rollback debe llegar al servidor aunque el contexto de la unidad haya vencido
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err, "commit transaction")
	}
	return nil
}

// Repositories repositorios atados a q (una transacción o el pool).
func Repositories(q querier) repository.Repositories {
	return repository.Repositories{
		Lots:        &LotRepo{q: q},
		Pens:        &PenRepo{q: q},
		Allocations: &AllocationRepo{q: q},
		Events:      &EventRepo{q: q},
		Entries:     &EntryRepo{q: q},
		Sequences:   &SequenceRepo{q: q},
	}
}

// Ping verifica la conexión; usado por /health.
func (r *TxRunner) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping DB: %w", err)
	}
	return nil
}
