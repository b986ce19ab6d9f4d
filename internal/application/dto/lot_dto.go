package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateLotRequest entrada para abrir un lote en negociación.
type CreateLotRequest struct {
	VendorID             string           `json:"vendor_id"`
	BrokerID             string           `json:"broker_id"`
	InitialQuantity      int              `json:"initial_quantity" validate:"required,min=1"`
	PurchaseWeight       decimal.Decimal  `json:"purchase_weight" validate:"required"`
	CarcassYieldPercent  *decimal.Decimal `json:"carcass_yield_percent"`
	PricePerStandardUnit decimal.Decimal  `json:"price_per_standard_unit" validate:"required"`
	FreightCost          *decimal.Decimal `json:"freight_cost"`
	Commission           *decimal.Decimal `json:"commission"`
	PurchaseDate         *time.Time       `json:"purchase_date"`
	PrincipalDueDate     *time.Time       `json:"principal_due_date"`
	FreightDueDate       *time.Time       `json:"freight_due_date"`
	CommissionDueDate    *time.Time       `json:"commission_due_date"`
	Notes                string           `json:"notes"`
}

// UpdateLotTermsRequest cambios de condiciones. Los campos de valuación solo se aceptan en NEGOTIATING.
type UpdateLotTermsRequest struct {
	InitialQuantity      *int             `json:"initial_quantity"`
	PurchaseWeight       *decimal.Decimal `json:"purchase_weight"`
	CarcassYieldPercent  *decimal.Decimal `json:"carcass_yield_percent"`
	PricePerStandardUnit *decimal.Decimal `json:"price_per_standard_unit"`
	FreightCost          *decimal.Decimal `json:"freight_cost"`
	Commission           *decimal.Decimal `json:"commission"`
	PrincipalDueDate     *time.Time       `json:"principal_due_date"`
	FreightDueDate       *time.Time       `json:"freight_due_date"`
	CommissionDueDate    *time.Time       `json:"commission_due_date"`
	Notes                *string          `json:"notes"`
}

// HasValuationChanges indica si toca peso, rendimiento, precio o cantidad inicial.
func (r UpdateLotTermsRequest) HasValuationChanges() bool {
	return r.InitialQuantity != nil || r.PurchaseWeight != nil || r.CarcassYieldPercent != nil || r.PricePerStandardUnit != nil
}

// PenQuantity cantidad de cabezas destinada a un corral.
type PenQuantity struct {
	PenID    string `json:"pen_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// ReceptionRequest llegada física del lote.
type ReceptionRequest struct {
	ReceivedWeight   decimal.Decimal  `json:"received_weight" validate:"required"`
	ReceivedQuantity int              `json:"received_quantity" validate:"min=1"`
	ReceivedDate     *time.Time       `json:"received_date"`
	FreightCost      *decimal.Decimal `json:"freight_cost"`
	Allocations      []PenQuantity    `json:"allocations"`
}

// AllocateRequest asignación de cabezas a corrales.
type AllocateRequest struct {
	Allocations []PenQuantity `json:"allocations" validate:"required,min=1"`
}

// ReallocateRequest traslado de cabezas de una asignación a otro corral.
type ReallocateRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	NewPenID     string `json:"new_pen_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1"`
}

// ReleaseRequest liberación de cabezas de una asignación.
type ReleaseRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1"`
}

// MortalityRequest registro de una baja. Sin corral solo se aceptan cabezas no asignadas.
type MortalityRequest struct {
	PenID      string     `json:"pen_id"`
	Quantity   int        `json:"quantity" validate:"min=1"`
	Cause      string     `json:"cause" validate:"required"`
	Notes      string     `json:"notes"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// WeightLossRequest corrección de peso (quiebra).
type WeightLossRequest struct {
	PenID       string          `json:"pen_id"`
	DeltaWeight decimal.Decimal `json:"delta_weight" validate:"required"`
	Reason      string          `json:"reason"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

// AllocationRelease asignación que se vacía por la venta.
type AllocationRelease struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1"`
}

// SaleRequest venta total o parcial.
type SaleRequest struct {
	Quantity int                 `json:"quantity" validate:"min=1"`
	Releases []AllocationRelease `json:"releases"`
	SoldAt   *time.Time          `json:"sold_at"`
}

// CancelRequest cancelación; Force libera corrales y anula obligaciones pendientes.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
	Force  bool   `json:"force"`
}

// LotListRequest filtros de listado.
type LotListRequest struct {
	PageRequest
	Stage string `query:"stage"`
}

// LotResponse salida de un lote.
type LotResponse struct {
	ID                   string            `json:"id"`
	Code                 string            `json:"code"`
	VendorID             string            `json:"vendor_id,omitempty"`
	BrokerID             string            `json:"broker_id,omitempty"`
	Stage                string            `json:"stage"`
	Status               string            `json:"status"`
	InitialQuantity      int               `json:"initial_quantity"`
	CurrentQuantity      int               `json:"current_quantity"`
	DeathCount           int               `json:"death_count"`
	SoldQuantity         int               `json:"sold_quantity"`
	PurchaseWeight       decimal.Decimal   `json:"purchase_weight"`
	ReceivedWeight       decimal.Decimal   `json:"received_weight"`
	CurrentWeight        decimal.Decimal   `json:"current_weight"`
	AverageWeight        decimal.Decimal   `json:"average_weight"`
	WeightBreakPercent   decimal.Decimal   `json:"weight_break_percent"`
	CarcassYieldPercent  *decimal.Decimal  `json:"carcass_yield_percent"`
	PricePerStandardUnit decimal.Decimal   `json:"price_per_standard_unit"`
	PurchaseValue        decimal.Decimal   `json:"purchase_value"`
	FreightCost          *decimal.Decimal  `json:"freight_cost"`
	Commission           *decimal.Decimal  `json:"commission"`
	TotalCost            decimal.Decimal   `json:"total_cost"`
	CurrentTotalCost     decimal.Decimal   `json:"current_total_cost"`
	CostPerHead          *decimal.Decimal  `json:"cost_per_head"`
	PurchaseDate         time.Time         `json:"purchase_date"`
	ReceivedDate         *time.Time        `json:"received_date,omitempty"`
	PrincipalDueDate     *time.Time        `json:"principal_due_date,omitempty"`
	FreightDueDate       *time.Time        `json:"freight_due_date,omitempty"`
	CommissionDueDate    *time.Time        `json:"commission_due_date,omitempty"`
	CancelReason         string            `json:"cancel_reason,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	SyncPending          bool              `json:"sync_pending"`
	Notes                string            `json:"notes,omitempty"`
	Version              int               `json:"version"`
	CreatedBy            string            `json:"created_by,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Warnings             []WarningResponse `json:"warnings,omitempty"`
}

// LotListResponse lista paginada de lotes.
type LotListResponse struct {
	Items []LotResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}

// ValuationResponse resultado de la verificación de valuación.
type ValuationResponse struct {
	LotID         string            `json:"lot_id"`
	StoredValue   decimal.Decimal   `json:"stored_value"`
	Recomputed    decimal.Decimal   `json:"recomputed_value"`
	Divergence    decimal.Decimal   `json:"divergence"`
	YieldUsed     decimal.Decimal   `json:"yield_used"`
	StandardUnits decimal.Decimal   `json:"standard_units"`
	Warnings      []WarningResponse `json:"warnings,omitempty"`
}

// AllocationResponse asignación con su peso relativo en el lote y en el corral.
type AllocationResponse struct {
	ID                 string          `json:"id"`
	PenID              string          `json:"pen_id"`
	PenNumber          string          `json:"pen_number,omitempty"`
	Quantity           int             `json:"quantity"`
	Status             string          `json:"status"`
	EntryDate          time.Time       `json:"entry_date"`
	ExitDate           *time.Time      `json:"exit_date,omitempty"`
	SourceAllocationID string          `json:"source_allocation_id,omitempty"`
	LotPercent         decimal.Decimal `json:"lot_percent"`
	PenPercent         decimal.Decimal `json:"pen_percent"`
}

// MortalityResponse baja registrada.
type MortalityResponse struct {
	ID           string          `json:"id"`
	PenID        string          `json:"pen_id,omitempty"`
	AllocationID string          `json:"allocation_id,omitempty"`
	Quantity     int             `json:"quantity"`
	Cause        string          `json:"cause"`
	Notes        string          `json:"notes,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LossAmount   decimal.Decimal `json:"loss_amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// WeightEventResponse corrección de peso registrada.
type WeightEventResponse struct {
	ID           string          `json:"id"`
	PenID        string          `json:"pen_id,omitempty"`
	DeltaWeight  decimal.Decimal `json:"delta_weight"`
	WeightBefore decimal.Decimal `json:"weight_before"`
	WeightAfter  decimal.Decimal `json:"weight_after"`
	Reason       string          `json:"reason,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// SaleResponse venta registrada.
type SaleResponse struct {
	ID         string          `json:"id"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	CostAmount decimal.Decimal `json:"cost_amount"`
	SoldAt     time.Time       `json:"sold_at"`
}

// LotStatsResponse indicadores del lote.
type LotStatsResponse struct {
	MortalityRate decimal.Decimal `json:"mortality_rate"`
	TotalLoss     decimal.Decimal `json:"total_loss"`
	TotalSoldCost decimal.Decimal `json:"total_sold_cost"`
	AllocatedNow  int             `json:"allocated_now"`
	Unallocated   int             `json:"unallocated"`
}

// LotHistoryResponse vista completa del lote.
type LotHistoryResponse struct {
	Lot         LotResponse              `json:"lot"`
	Allocations []AllocationResponse     `json:"allocations"`
	Mortality   []MortalityResponse      `json:"mortality"`
	Weights     []WeightEventResponse    `json:"weight_events"`
	Sales       []SaleResponse           `json:"sales"`
	Entries     []FinancialEntryResponse `json:"entries"`
	Stats       LotStatsResponse         `json:"stats"`
}

// MortalityRecordedResponse lote actualizado y baja registrada.
type MortalityRecordedResponse struct {
	Lot   LotResponse       `json:"lot"`
	Event MortalityResponse `json:"event"`
}
