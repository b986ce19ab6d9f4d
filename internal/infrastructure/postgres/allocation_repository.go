package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.PenAllocationRepository = (*AllocationRepo)(nil)

const allocationColumns = `id, lot_id, pen_id, quantity, entry_date, exit_date, status,
	COALESCE(source_allocation_id, ''), created_by, created_at, updated_at`

// AllocationRepo implementación del puerto PenAllocationRepository sobre PostgreSQL.
// El índice único parcial (lot_id, pen_id) WHERE status = 'ACTIVE' impide dos filas activas del mismo par.
type AllocationRepo struct {
	q querier
}

func scanAllocation(row scanner) (*entity.PenAllocation, error) {
	var a entity.PenAllocation
	if err := row.Scan(&a.ID, &a.LotID, &a.PenID, &a.Quantity, &a.EntryDate, &a.ExitDate, &a.Status,
		&a.SourceAllocationID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserta una asignación.
func (r *AllocationRepo) Create(ctx context.Context, a *entity.PenAllocation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pen_allocations (id, lot_id, pen_id, quantity, entry_date, exit_date, status,
			source_allocation_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.LotID, a.PenID, a.Quantity, a.EntryDate, a.ExitDate, a.Status,
		nullable(a.SourceAllocationID), a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return translate(err, "insert allocation")
	}
	return nil
}

// GetByID obtiene y bloquea la asignación; solo se lee dentro de mutaciones.
func (r *AllocationRepo) GetByID(ctx context.Context, id string) (*entity.PenAllocation, error) {
	a, err := scanAllocation(r.q.QueryRow(ctx, `SELECT `+allocationColumns+` FROM pen_allocations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, "get allocation "+id)
	}
	return a, nil
}

// Update guarda cantidad, estado y fecha de salida.
func (r *AllocationRepo) Update(ctx context.Context, a *entity.PenAllocation) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE pen_allocations SET quantity = $2, exit_date = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		a.ID, a.Quantity, a.ExitDate, a.Status, a.UpdatedAt)
	if err != nil {
		return translate(err, "update allocation "+a.ID)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("asignación %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// ListActiveByLot asignaciones activas del lote.
func (r *AllocationRepo) ListActiveByLot(ctx context.Context, lotID string) ([]*entity.PenAllocation, error) {
	return r.list(ctx, `WHERE lot_id = $1 AND status = 'ACTIVE'`, lotID)
}

// ListActiveByPen asignaciones activas del corral.
func (r *AllocationRepo) ListActiveByPen(ctx context.Context, penID string) ([]*entity.PenAllocation, error) {
	return r.list(ctx, `WHERE pen_id = $1 AND status = 'ACTIVE'`, penID)
}

// ListByLot historial completo de asignaciones del lote.
func (r *AllocationRepo) ListByLot(ctx context.Context, lotID string) ([]*entity.PenAllocation, error) {
	return r.list(ctx, `WHERE lot_id = $1`, lotID)
}

func (r *AllocationRepo) list(ctx context.Context, where string, arg string) ([]*entity.PenAllocation, error) {
	rows, err := r.q.Query(ctx, `SELECT `+allocationColumns+` FROM pen_allocations `+where+` ORDER BY created_at, id`, arg)
	if err != nil {
		return nil, translate(err, "list allocations")
	}
	defer rows.Close()
	var list []*entity.PenAllocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, translate(err, "scan allocation")
		}
		list = append(list, a)
	}
	return list, translate(rows.Err(), "list allocations")
}
