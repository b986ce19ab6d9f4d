package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
)

// querier subconjunto común de pgx.Tx y pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isSerializationFailure 40001 (serialization_failure) o 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// isCheckViolation 23514: la base rechazó un valor fuera de rango (ej. ocupación > capacidad).
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// translate traduce errores de pgx a los errores de dominio que entiende el controlador transaccional.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", what, domain.ErrDuplicate, err)
	case isSerializationFailure(err):
		return fmt.Errorf("%s: %w: %w", what, domain.ErrConcurrentModification, err)
	case isCheckViolation(err):
		return fmt.Errorf("%s: %w: %w", what, domain.ErrConflict, err)
	case pgconn.SafeToRetry(err):
		return fmt.Errorf("%s: %w: %w", what, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// pageArgs limit <= 0 se envía como NULL (LIMIT NULL = sin límite), igual que el almacén en memoria.
func pageArgs(limit, offset int) (any, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return nil, offset
	}
	return limit, offset
}
