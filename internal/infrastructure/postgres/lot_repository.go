package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

const lotColumns = `id, code, vendor_id, broker_id, initial_quantity, current_quantity, death_count, sold_quantity,
	purchase_weight, received_weight, current_weight, weight_break_percent, carcass_yield_percent,
	price_per_standard_unit, purchase_value, freight_cost, commission, cost_written_off, cost_per_head,
	purchase_date, received_date, principal_due_date, freight_due_date, commission_due_date,
	stage, status, cancel_reason, cancelled_at, sync_pending, notes, version, created_by, created_at, updated_at`

// LotRepo implementación del puerto LotRepository sobre PostgreSQL.
type LotRepo struct {
	q querier
}

func scanLot(row scanner) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(
		&l.ID, &l.Code, &l.VendorID, &l.BrokerID, &l.InitialQuantity, &l.CurrentQuantity, &l.DeathCount, &l.SoldQuantity,
		&l.PurchaseWeight, &l.ReceivedWeight, &l.CurrentWeight, &l.WeightBreakPercent, &l.CarcassYieldPercent,
		&l.PricePerStandardUnit, &l.PurchaseValue, &l.FreightCost, &l.Commission, &l.CostWrittenOff, &l.CostPerHead,
		&l.PurchaseDate, &l.ReceivedDate, &l.PrincipalDueDate, &l.FreightDueDate, &l.CommissionDueDate,
		&l.Stage, &l.Status, &l.CancelReason, &l.CancelledAt, &l.SyncPending, &l.Notes, &l.Version,
		&l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create persiste un lote nuevo con versión 1. Un código repetido devuelve domain.ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, l *entity.Lot) error {
	query := `INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)`
	version := l.Version
	if version == 0 {
		version = 1
	}
	_, err := r.q.Exec(ctx, query,
		l.ID, l.Code, l.VendorID, l.BrokerID, l.InitialQuantity, l.CurrentQuantity, l.DeathCount, l.SoldQuantity,
		l.PurchaseWeight, l.ReceivedWeight, l.CurrentWeight, l.WeightBreakPercent, l.CarcassYieldPercent,
		l.PricePerStandardUnit, l.PurchaseValue, l.FreightCost, l.Commission, l.CostWrittenOff, l.CostPerHead,
		l.PurchaseDate, l.ReceivedDate, l.PrincipalDueDate, l.FreightDueDate, l.CommissionDueDate,
		string(l.Stage), string(l.Status), l.CancelReason, l.CancelledAt, l.SyncPending, l.Notes, version,
		l.CreatedBy, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return translate(err, "insert lot "+l.Code)
	}
	l.Version = version
	return nil
}

// GetByID obtiene un lote por ID.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "get lot "+id)
	}
	return l, nil
}

// GetForUpdate obtiene el lote con SELECT ... FOR UPDATE.
func (r *LotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, "lock lot "+id)
	}
	return l, nil
}

// ExistsByCode indica si el código ya está tomado.
func (r *LotRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lots WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, translate(err, "lot code exists")
	}
	return exists, nil
}

// Update guarda el lote si la versión no cambió y la incrementa en l.
func (r *LotRepo) Update(ctx context.Context, l *entity.Lot) error {
	query := `
		UPDATE lots SET
			vendor_id = $2, broker_id = $3, initial_quantity = $4, current_quantity = $5, death_count = $6,
			sold_quantity = $7, purchase_weight = $8, received_weight = $9, current_weight = $10,
			weight_break_percent = $11, carcass_yield_percent = $12, price_per_standard_unit = $13,
			purchase_value = $14, freight_cost = $15, commission = $16, cost_written_off = $17, cost_per_head = $18,
			purchase_date = $19, received_date = $20, principal_due_date = $21, freight_due_date = $22,
			commission_due_date = $23, stage = $24, status = $25, cancel_reason = $26, cancelled_at = $27,
			sync_pending = $28, notes = $29, updated_at = $30, version = version + 1
		WHERE id = $1 AND version = $31`
	cmd, err := r.q.Exec(ctx, query,
		l.ID, l.VendorID, l.BrokerID, l.InitialQuantity, l.CurrentQuantity, l.DeathCount,
		l.SoldQuantity, l.PurchaseWeight, l.ReceivedWeight, l.CurrentWeight,
		l.WeightBreakPercent, l.CarcassYieldPercent, l.PricePerStandardUnit,
		l.PurchaseValue, l.FreightCost, l.Commission, l.CostWrittenOff, l.CostPerHead,
		l.PurchaseDate, l.ReceivedDate, l.PrincipalDueDate, l.FreightDueDate,
		l.CommissionDueDate, string(l.Stage), string(l.Status), l.CancelReason, l.CancelledAt,
		l.SyncPending, l.Notes, l.UpdatedAt, l.Version,
	)
	if err != nil {
		return translate(err, "update lot "+l.ID)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("lote %s versión %d: %w", l.ID, l.Version, domain.ErrConcurrentModification)
	}
	l.Version++
	return nil
}

// Delete elimina un lote por ID.
func (r *LotRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete lot "+id)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List lista lotes (más recientes primero) con filtro opcional por etapa.
func (r *LotRepo) List(ctx context.Context, filter repository.LotFilter) ([]*entity.Lot, error) {
	limit, offset := pageArgs(filter.Limit, filter.Offset)
	query := `SELECT ` + lotColumns + ` FROM lots
		WHERE ($1 = '' OR stage = $1)
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	return r.list(ctx, "list lots", query, string(filter.Stage), limit, offset)
}

// ListSyncPending lotes marcados para reconciliación financiera, los más antiguos primero.
func (r *LotRepo) ListSyncPending(ctx context.Context, limit int) ([]*entity.Lot, error) {
	lim, _ := pageArgs(limit, 0)
	query := `SELECT ` + lotColumns + ` FROM lots WHERE sync_pending ORDER BY updated_at, id LIMIT $1`
	return r.list(ctx, "list sync pending lots", query, lim)
}

func (r *LotRepo) list(ctx context.Context, what, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, what)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, translate(err, what)
		}
		list = append(list, l)
	}
	return list, translate(rows.Err(), what)
}
