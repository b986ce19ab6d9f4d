package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.PenRepository = (*PenRepo)(nil)

const penColumns = `id, number, capacity, occupancy, status, location, version, created_at, updated_at`

// PenRepo implementación del puerto PenRepository sobre PostgreSQL.
type PenRepo struct {
	q querier
}

func scanPen(row scanner) (*entity.Pen, error) {
	var p entity.Pen
	if err := row.Scan(&p.ID, &p.Number, &p.Capacity, &p.Occupancy, &p.Status, &p.Location,
		&p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un corral nuevo. Número repetido devuelve domain.ErrDuplicate.
func (r *PenRepo) Create(ctx context.Context, p *entity.Pen) error {
	if p.Version == 0 {
		p.Version = 1
	}
	_, err := r.q.Exec(ctx, `INSERT INTO pens (`+penColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Number, p.Capacity, p.Occupancy, string(p.Status), p.Location, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return translate(err, "insert pen "+p.Number)
	}
	return nil
}

// GetByID obtiene un corral por ID.
func (r *PenRepo) GetByID(ctx context.Context, id string) (*entity.Pen, error) {
	p, err := scanPen(r.q.QueryRow(ctx, `SELECT `+penColumns+` FROM pens WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "get pen "+id)
	}
	return p, nil
}

// GetForUpdate bloquea la fila del corral hasta el fin de la transacción.
func (r *PenRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pen, error) {
	p, err := scanPen(r.q.QueryRow(ctx, `SELECT `+penColumns+` FROM pens WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, "lock pen "+id)
	}
	return p, nil
}

// Update guarda ocupación y estado con bloqueo optimista. El CHECK de la tabla rechaza ocupación > capacidad.
func (r *PenRepo) Update(ctx context.Context, p *entity.Pen) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE pens SET number = $2, capacity = $3, occupancy = $4, status = $5, location = $6,
			updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $8`,
		p.ID, p.Number, p.Capacity, p.Occupancy, string(p.Status), p.Location, p.UpdatedAt, p.Version)
	if err != nil {
		return translate(err, "update pen "+p.ID)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("corral %s versión %d: %w", p.ID, p.Version, domain.ErrConcurrentModification)
	}
	p.Version++
	return nil
}

// List lista corrales por número.
func (r *PenRepo) List(ctx context.Context, limit, offset int) ([]*entity.Pen, error) {
	lim, off := pageArgs(limit, offset)
	rows, err := r.q.Query(ctx, `SELECT `+penColumns+` FROM pens ORDER BY number LIMIT $1 OFFSET $2`, lim, off)
	if err != nil {
		return nil, translate(err, "list pens")
	}
	defer rows.Close()
	var list []*entity.Pen
	for rows.Next() {
		p, err := scanPen(rows)
		if err != nil {
			return nil, translate(err, "scan pen")
		}
		list = append(list, p)
	}
	return list, translate(rows.Err(), "list pens")
}
