package entity

import "time"

// Estados de una asignación lote-corral.
const (
	AllocationStatusActive  = "ACTIVE"
	AllocationStatusRemoved = "REMOVED"
)

// PenAllocation cantidad de animales de un lote que ocupa un corral.
// Nunca se borra: al vaciarse queda REMOVED con ExitDate, preservando el historial.
type PenAllocation struct {
	ID                 string
	LotID              string
	PenID              string
	Quantity           int
	EntryDate          time.Time
	ExitDate           *time.Time
	Status             string
	SourceAllocationID string // asignación de origen cuando nace de una reasignación
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive indica si la asignación ocupa espacio.
func (a *PenAllocation) IsActive() bool {
	return a.Status == AllocationStatusActive
}

// Remove marca la asignación como retirada.
func (a *PenAllocation) Remove(at time.Time) {
	a.Status = AllocationStatusRemoved
	exit := at
	a.ExitDate = &exit
	a.UpdatedAt = at
}

// Clone copia profunda.
func (a *PenAllocation) Clone() *PenAllocation {
	if a == nil {
		return nil
	}
	cp := *a
	cp.ExitDate = cloneTime(a.ExitDate)
	return &cp
}
