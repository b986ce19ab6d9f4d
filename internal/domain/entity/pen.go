package entity

import "time"

// PenStatus estado operativo de un corral.
type PenStatus string

const (
	PenStatusActive      PenStatus = "ACTIVE"
	PenStatusMaintenance PenStatus = "MAINTENANCE"
	PenStatusInactive    PenStatus = "INACTIVE"
)

// IsValid indica si el estado es conocido.
func (s PenStatus) IsValid() bool {
	return s == PenStatusActive || s == PenStatusMaintenance || s == PenStatusInactive
}

// Pen representa un corral de capacidad finita. Occupancy es la suma de las asignaciones ACTIVE.
type Pen struct {
	ID        string
	Number    string // identificador visible, único
	Capacity  int
	Occupancy int
	Status    PenStatus
	Location  string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available cabezas que aún caben en el corral.
func (p *Pen) Available() int {
	if p.Occupancy >= p.Capacity {
		return 0
	}
	return p.Capacity - p.Occupancy
}

// AcceptsAnimals solo los corrales ACTIVE reciben animales nuevos.
func (p *Pen) AcceptsAnimals() bool {
	return p.Status == PenStatusActive
}

// Clone copia por valor.
func (p *Pen) Clone() *Pen {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
