package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostCategory categoría de costo derivada de un lote.
type CostCategory string

const (
	CostPurchase      CostCategory = "PURCHASE"
	CostFreight       CostCategory = "FREIGHT"
	CostCommission    CostCategory = "COMMISSION"
	CostMortalityLoss CostCategory = "MORTALITY_LOSS"
)

// LotCostCategories conjunto fijo sincronizado por lote (una entrada por categoría).
var LotCostCategories = []CostCategory{CostPurchase, CostFreight, CostCommission}

// Estados de una entrada financiera.
const (
	EntryStatusPending   = "PENDING"
	EntryStatusPaid      = "PAID"
	EntryStatusCancelled = "CANCELLED"
)

// EntryTypeExpense única naturaleza generada por el motor (cuentas por pagar / pérdidas).
const EntryTypeExpense = "EXPENSE"

// FinancialEntry registro derivado del ciclo de vida del lote.
// NaturalKey garantiza como máximo una entrada por hecho lógico; nunca se infiere de la descripción.
type FinancialEntry struct {
	ID              string
	NaturalKey      string
	LotID           string
	LotCode         string
	Category        CostCategory
	SourceEventID   string
	Type            string
	Amount          decimal.Decimal
	Date            time.Time
	DueDate         time.Time
	Status          string
	ImpactsCashFlow bool
	ManuallyEdited  bool
	Description     string
	PaidAt          *time.Time
	Version         int
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LotCostKey clave natural {lotCode, categoría}.
func LotCostKey(lotCode string, category CostCategory) string {
	return lotCode + ":" + string(category)
}

// MortalityLossKey clave natural de la pérdida de un evento de mortalidad.
func MortalityLossKey(eventID string) string {
	return string(CostMortalityLoss) + ":" + eventID
}

// IsUnpaidCashObligation entrada pendiente que afecta al flujo de caja.
func (e *FinancialEntry) IsUnpaidCashObligation() bool {
	return e.ImpactsCashFlow && e.Status == EntryStatusPending
}

// Clone copia profunda.
func (e *FinancialEntry) Clone() *FinancialEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.PaidAt = cloneTime(e.PaidAt)
	return &cp
}
