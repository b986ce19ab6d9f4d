package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var _ repository.FinancialEntryRepository = (*EntryRepo)(nil)

const entryColumns = `id, natural_key, lot_id, lot_code, category, COALESCE(source_event_id, ''), type, amount,
	entry_date, due_date, status, impacts_cash_flow, manually_edited, description, paid_at,
	version, created_by, created_at, updated_at`

// EntryRepo entradas financieras. natural_key es UNIQUE: una entrada por hecho lógico.
type EntryRepo struct {
	q querier
}

func scanEntry(row scanner) (*entity.FinancialEntry, error) {
	var e entity.FinancialEntry
	if err := row.Scan(&e.ID, &e.NaturalKey, &e.LotID, &e.LotCode, &e.Category, &e.SourceEventID, &e.Type, &e.Amount,
		&e.Date, &e.DueDate, &e.Status, &e.ImpactsCashFlow, &e.ManuallyEdited, &e.Description, &e.PaidAt,
		&e.Version, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepo) Create(ctx context.Context, e *entity.FinancialEntry) error {
	if e.Version == 0 {
		e.Version = 1
	}
	_, err := r.q.Exec(ctx, `INSERT INTO financial_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		e.ID, e.NaturalKey, e.LotID, e.LotCode, string(e.Category), nullable(e.SourceEventID), e.Type, e.Amount,
		e.Date, e.DueDate, e.Status, e.ImpactsCashFlow, e.ManuallyEdited, e.Description, e.PaidAt,
		e.Version, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	return translate(err, "insert financial entry "+e.NaturalKey)
}

func (r *EntryRepo) GetByID(ctx context.Context, id string) (*entity.FinancialEntry, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM financial_entries WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "get financial entry "+id)
	}
	return e, nil
}

func (r *EntryRepo) GetByNaturalKey(ctx context.Context, key string) (*entity.FinancialEntry, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM financial_entries WHERE natural_key = $1`, key))
	if err != nil {
		return nil, translate(err, "get financial entry "+key)
	}
	return e, nil
}

// Update con bloqueo optimista; incrementa e.Version.
func (r *EntryRepo) Update(ctx context.Context, e *entity.FinancialEntry) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE financial_entries SET amount = $2, entry_date = $3, due_date = $4, status = $5,
			manually_edited = $6, description = $7, paid_at = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $10`,
		e.ID, e.Amount, e.Date, e.DueDate, e.Status, e.ManuallyEdited, e.Description, e.PaidAt, e.UpdatedAt, e.Version)
	if err != nil {
		return translate(err, "update financial entry "+e.ID)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("entrada %s versión %d: %w", e.ID, e.Version, domain.ErrConcurrentModification)
	}
	e.Version++
	return nil
}

func (r *EntryRepo) ListByLot(ctx context.Context, lotID string) ([]*entity.FinancialEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT `+entryColumns+` FROM financial_entries
		WHERE lot_id = $1 ORDER BY entry_date, created_at, id`, lotID)
	if err != nil {
		return nil, translate(err, "list financial entries")
	}
	defer rows.Close()
	var list []*entity.FinancialEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, translate(err, "scan financial entry")
		}
		list = append(list, e)
	}
	return list, translate(rows.Err(), "list financial entries")
}
