package postgres

import (
	"context"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.LotEventRepository = (*EventRepo)(nil)

// EventRepo bajas, correcciones de peso y ventas. Las tablas son append-only.
type EventRepo struct {
	q querier
}

const mortalityColumns = `id, lot_id, COALESCE(pen_id, ''), COALESCE(allocation_id, ''), quantity, cause, notes,
	unit_cost, loss_amount, occurred_at, created_by, created_at`

func scanMortality(row scanner) (*entity.MortalityEvent, error) {
	var e entity.MortalityEvent
	if err := row.Scan(&e.ID, &e.LotID, &e.PenID, &e.AllocationID, &e.Quantity, &e.Cause, &e.Notes,
		&e.UnitCost, &e.LossAmount, &e.OccurredAt, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepo) CreateMortality(ctx context.Context, e *entity.MortalityEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO mortality_events (id, lot_id, pen_id, allocation_id, quantity, cause, notes,
			unit_cost, loss_amount, occurred_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.LotID, nullable(e.PenID), nullable(e.AllocationID), e.Quantity, string(e.Cause), e.Notes,
		e.UnitCost, e.LossAmount, e.OccurredAt, e.CreatedBy, e.CreatedAt)
	return translate(err, "insert mortality event")
}

func (r *EventRepo) GetMortality(ctx context.Context, id string) (*entity.MortalityEvent, error) {
	e, err := scanMortality(r.q.QueryRow(ctx, `SELECT `+mortalityColumns+` FROM mortality_events WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "get mortality event "+id)
	}
	return e, nil
}

func (r *EventRepo) ListMortalityByLot(ctx context.Context, lotID string) ([]*entity.MortalityEvent, error) {
	rows, err := r.q.Query(ctx, `SELECT `+mortalityColumns+` FROM mortality_events
		WHERE lot_id = $1 ORDER BY occurred_at, created_at, id`, lotID)
	if err != nil {
		return nil, translate(err, "list mortality events")
	}
	defer rows.Close()
	var list []*entity.MortalityEvent
	for rows.Next() {
		e, err := scanMortality(rows)
		if err != nil {
			return nil, translate(err, "scan mortality event")
		}
		list = append(list, e)
	}
	return list, translate(rows.Err(), "list mortality events")
}

func (r *EventRepo) CreateWeight(ctx context.Context, e *entity.WeightEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO weight_events (id, lot_id, pen_id, delta_weight, weight_before, weight_after, reason,
			occurred_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.LotID, nullable(e.PenID), e.DeltaWeight, e.WeightBefore, e.WeightAfter, e.Reason,
		e.OccurredAt, e.CreatedBy, e.CreatedAt)
	return translate(err, "insert weight event")
}

func (r *EventRepo) ListWeightByLot(ctx context.Context, lotID string) ([]*entity.WeightEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, lot_id, COALESCE(pen_id, ''), delta_weight, weight_before, weight_after, reason,
			occurred_at, created_by, created_at
		FROM weight_events WHERE lot_id = $1 ORDER BY occurred_at, created_at, id`, lotID)
	if err != nil {
		return nil, translate(err, "list weight events")
	}
	defer rows.Close()
	var list []*entity.WeightEvent
	for rows.Next() {
		var e entity.WeightEvent
		if err := rows.Scan(&e.ID, &e.LotID, &e.PenID, &e.DeltaWeight, &e.WeightBefore, &e.WeightAfter,
			&e.Reason, &e.OccurredAt, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, translate(err, "scan weight event")
		}
		list = append(list, &e)
	}
	return list, translate(rows.Err(), "list weight events")
}

func (r *EventRepo) CreateSale(ctx context.Context, s *entity.SaleRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_records (id, lot_id, quantity, unit_cost, cost_amount, sold_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.LotID, s.Quantity, s.UnitCost, s.CostAmount, s.SoldAt, s.CreatedBy, s.CreatedAt)
	return translate(err, "insert sale record")
}

func (r *EventRepo) ListSalesByLot(ctx context.Context, lotID string) ([]*entity.SaleRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, lot_id, quantity, unit_cost, cost_amount, sold_at, created_by, created_at
		FROM sale_records WHERE lot_id = $1 ORDER BY sold_at, created_at, id`, lotID)
	if err != nil {
		return nil, translate(err, "list sale records")
	}
	defer rows.Close()
	var list []*entity.SaleRecord
	for rows.Next() {
		var s entity.SaleRecord
		if err := rows.Scan(&s.ID, &s.LotID, &s.Quantity, &s.UnitCost, &s.CostAmount, &s.SoldAt,
			&s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, translate(err, "scan sale record")
		}
		list = append(list, &s)
	}
	return list, translate(rows.Err(), "list sale records")
}
