package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeathCause categoría de una baja.
type DeathCause string

const (
	DeathCauseDisease   DeathCause = "DISEASE"
	DeathCauseAccident  DeathCause = "ACCIDENT"
	DeathCausePredation DeathCause = "PREDATION"
	DeathCausePoisoning DeathCause = "POISONING"
	DeathCauseStress    DeathCause = "STRESS"
	DeathCauseUnknown   DeathCause = "UNKNOWN"
	DeathCauseOther     DeathCause = "OTHER"
	DeathCauseInTransit DeathCause = "IN_TRANSIT" // diferencia entre cantidad comprada y recibida
)

// IsValid indica si la causa es conocida.
func (c DeathCause) IsValid() bool {
	switch c {
	case DeathCauseDisease, DeathCauseAccident, DeathCausePredation, DeathCausePoisoning,
		DeathCauseStress, DeathCauseUnknown, DeathCauseOther, DeathCauseInTransit:
		return true
	}
	return false
}

// MortalityEvent baja inmutable; LossAmount = UnitCost × Quantity al momento del evento.
type MortalityEvent struct {
	ID           string
	LotID        string
	PenID        string
	AllocationID string
	Quantity     int
	Cause        DeathCause
	Notes        string
	UnitCost     decimal.Decimal
	LossAmount   decimal.Decimal
	OccurredAt   time.Time
	CreatedBy    string
	CreatedAt    time.Time
}

// WeightEvent corrección de peso (quiebra) inmutable. DeltaWeight positivo = pérdida.
type WeightEvent struct {
	ID           string
	LotID        string
	PenID        string
	DeltaWeight  decimal.Decimal
	WeightBefore decimal.Decimal
	WeightAfter  decimal.Decimal
	Reason       string
	OccurredAt   time.Time
	CreatedBy    string
	CreatedAt    time.Time
}

// SaleRecord salida por venta; CostAmount es el costo promedio retirado del lote.
type SaleRecord struct {
	ID         string
	LotID      string
	Quantity   int
	UnitCost   decimal.Decimal
	CostAmount decimal.Decimal
	SoldAt     time.Time
	CreatedBy  string
	CreatedAt  time.Time
}

// Tipos de evento de ciclo de vida publicados hacia colaboradores externos.
const (
	LotEventCreated           = "lot.created"
	LotEventTermsUpdated      = "lot.terms_updated"
	LotEventConfirmed         = "lot.confirmed"
	LotEventReceived          = "lot.received"
	LotEventAllocated         = "lot.allocated"
	LotEventReallocated       = "lot.reallocated"
	LotEventReleased          = "lot.released"
	LotEventMortalityRecorded = "lot.mortality_recorded"
	LotEventWeightLoss        = "lot.weight_loss_recorded"
	LotEventSold              = "lot.sold"
	LotEventCancelled         = "lot.cancelled"
	LotEventValuationFixed    = "lot.valuation_reconciled"
	LotEventDeleted           = "lot.deleted"
)

// LotLifecycleEvent notificación emitida tras confirmar una mutación de lote.
type LotLifecycleEvent struct {
	Type            string    `json:"type"`
	LotID           string    `json:"lot_id"`
	LotCode         string    `json:"lot_code"`
	Stage           LotStage  `json:"stage"`
	CurrentQuantity int       `json:"current_quantity"`
	Actor           string    `json:"actor,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
