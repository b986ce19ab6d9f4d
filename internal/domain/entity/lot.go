package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotStage etapa del ciclo de vida de un lote.
type LotStage string

// Etapas del lote. SOLD y CANCELLED son terminales.
const (
	StageNegotiating LotStage = "NEGOTIATING"
	StageConfirmed   LotStage = "CONFIRMED"
	StageReceived    LotStage = "RECEIVED"
	StageConfined    LotStage = "CONFINED"
	StageSold        LotStage = "SOLD"
	StageCancelled   LotStage = "CANCELLED"
)

// LotStatus etiqueta gruesa, visible al usuario, derivada de la etapa.
type LotStatus string

const (
	LotStatusPending   LotStatus = "PENDING"
	LotStatusActive    LotStatus = "ACTIVE"
	LotStatusSold      LotStatus = "SOLD"
	LotStatusCancelled LotStatus = "CANCELLED"
)

var stageTransitions = map[LotStage][]LotStage{
	StageNegotiating: {StageConfirmed, StageCancelled},
	StageConfirmed:   {StageReceived, StageCancelled},
	StageReceived:    {StageConfined, StageCancelled},
	StageConfined:    {StageSold, StageCancelled},
}

// IsValid indica si la etapa es conocida.
func (s LotStage) IsValid() bool {
	switch s {
	case StageNegotiating, StageConfirmed, StageReceived, StageConfined, StageSold, StageCancelled:
		return true
	}
	return false
}

// IsTerminal SOLD y CANCELLED no admiten más transiciones.
func (s LotStage) IsTerminal() bool {
	return s == StageSold || s == StageCancelled
}

// CanTransitionTo valida el orden de la máquina de estados.
func (s LotStage) CanTransitionTo(next LotStage) bool {
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsHoldingAnimals RECEIVED y CONFINED: los animales están físicamente en la hacienda.
func (s LotStage) IsHoldingAnimals() bool {
	return s == StageReceived || s == StageConfined
}

// StatusFor devuelve la etiqueta de estado correspondiente a la etapa.
func StatusFor(stage LotStage) LotStatus {
	switch stage {
	case StageReceived, StageConfined:
		return LotStatusActive
	case StageSold:
		return LotStatusSold
	case StageCancelled:
		return LotStatusCancelled
	default:
		return LotStatusPending
	}
}

// Lot representa un lote de ganado comprado, seguido como unidad desde la negociación hasta la venta.
// PurchaseValue es derivado (peso × rendimiento × precio por arroba) y nunca se edita a mano.
type Lot struct {
	ID                   string
	Code                 string // LOT-YYMMnnn, único
	VendorID             string
	BrokerID             string
	InitialQuantity      int
	CurrentQuantity      int
	DeathCount           int
	SoldQuantity         int
	PurchaseWeight       decimal.Decimal // peso vivo declarado por el vendedor
	ReceivedWeight       decimal.Decimal
	CurrentWeight        decimal.Decimal
	WeightBreakPercent   decimal.Decimal
	CarcassYieldPercent  *decimal.Decimal // nil = usar el rendimiento por defecto de valuation
	PricePerStandardUnit decimal.Decimal  // precio por arroba
	PurchaseValue        decimal.Decimal
	FreightCost          *decimal.Decimal
	Commission           *decimal.Decimal
	CostWrittenOff       decimal.Decimal  // costo ya retirado por muertes y ventas
	CostPerHead          *decimal.Decimal // caché; nil = recalcular
	PurchaseDate         time.Time
	ReceivedDate         *time.Time
	PrincipalDueDate     *time.Time
	FreightDueDate       *time.Time
	CommissionDueDate    *time.Time
	Stage                LotStage
	Status               LotStatus
	CancelReason         string
	CancelledAt          *time.Time
	SyncPending          bool
	Notes                string
	Version              int
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SetStage cambia la etapa y mantiene Status alineado.
func (l *Lot) SetStage(stage LotStage) {
	l.Stage = stage
	l.Status = StatusFor(stage)
}

// TotalCost compra + flete + comisión.
func (l *Lot) TotalCost() decimal.Decimal {
	total := l.PurchaseValue
	if l.FreightCost != nil {
		total = total.Add(*l.FreightCost)
	}
	if l.Commission != nil {
		total = total.Add(*l.Commission)
	}
	return total
}

// CurrentTotalCost costo que permanece en las cabezas vivas del lote.
func (l *Lot) CurrentTotalCost() decimal.Decimal {
	return l.TotalCost().Sub(l.CostWrittenOff)
}

// UnaccountedQuantity cabezas iniciales no explicadas por existencias, muertes o ventas.
// Debe ser siempre cero.
func (l *Lot) UnaccountedQuantity() int {
	return l.InitialQuantity - l.CurrentQuantity - l.DeathCount - l.SoldQuantity
}

// Clone copia profunda (punteros incluidos).
func (l *Lot) Clone() *Lot {
	if l == nil {
		return nil
	}
	cp := *l
	cp.CarcassYieldPercent = cloneDecimal(l.CarcassYieldPercent)
	cp.FreightCost = cloneDecimal(l.FreightCost)
	cp.Commission = cloneDecimal(l.Commission)
	cp.CostPerHead = cloneDecimal(l.CostPerHead)
	cp.ReceivedDate = cloneTime(l.ReceivedDate)
	cp.PrincipalDueDate = cloneTime(l.PrincipalDueDate)
	cp.FreightDueDate = cloneTime(l.FreightDueDate)
	cp.CommissionDueDate = cloneTime(l.CommissionDueDate)
	cp.CancelledAt = cloneTime(l.CancelledAt)
	return &cp
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
