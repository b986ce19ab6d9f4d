package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// EditEntryRequest edición manual; marca la entrada para que la sincronización no la sobrescriba.
type EditEntryRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *time.Time       `json:"due_date"`
	Description *string          `json:"description"`
}

// PayEntryRequest registro de pago.
type PayEntryRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// ReconcileRequest reintento de sincronizaciones pendientes.
type ReconcileRequest struct {
	Limit int `json:"limit"`
}

// FinancialEntryResponse salida de una entrada financiera.
type FinancialEntryResponse struct {
	ID              string          `json:"id"`
	NaturalKey      string          `json:"natural_key"`
	LotID           string          `json:"lot_id"`
	LotCode         string          `json:"lot_code"`
	Category        string          `json:"category"`
	SourceEventID   string          `json:"source_event_id,omitempty"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `json:"status"`
	ImpactsCashFlow bool            `json:"impacts_cash_flow"`
	ManuallyEdited  bool            `json:"manually_edited"`
	Description     string          `json:"description"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	Version         int             `json:"version"`
}

// SyncReportResponse resumen de una sincronización.
type SyncReportResponse struct {
	LotID     string            `json:"lot_id"`
	Skipped   bool              `json:"skipped"`
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Cancelled int               `json:"cancelled"`
	Reopened  int               `json:"reopened"`
	Unchanged int               `json:"unchanged"`
	Warnings  []WarningResponse `json:"warnings,omitempty"`
}

// ReconcileResponse resultado de ReconcilePending.
type ReconcileResponse struct {
	Processed int      `json:"processed"`
	Cleared   int      `json:"cleared"`
	Failed    []string `json:"failed,omitempty"`
	Retained  []string `json:"retained,omitempty"`
}
