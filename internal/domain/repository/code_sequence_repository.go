package repository

import "context"

// CodeSequenceRepository contador por periodo con incremento atómico (insert-or-increment).
type CodeSequenceRepository interface {
	// Next devuelve el siguiente valor del periodo, creando el contador en 1 si no existe.
	Next(ctx context.Context, period string) (int, error)
}
