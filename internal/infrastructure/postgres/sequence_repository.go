package postgres

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.CodeSequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador mensual de códigos de lote.
type SequenceRepo struct {
	q querier
}

// Next incrementa atómicamente el contador del periodo (lo crea en 1 si no existe).
func (r *SequenceRepo) Next(ctx context.Context, period string) (int, error) {
	var value int
	err := r.q.QueryRow(ctx, `
		INSERT INTO code_sequences (period, value, updated_at) VALUES ($1, 1, now())
		ON CONFLICT (period) DO UPDATE SET value = code_sequences.value + 1, updated_at = now()
		RETURNING value`, period).Scan(&value)
	if err != nil {
		return 0, translate(err, "next code sequence "+period)
	}
	return value, nil
}
