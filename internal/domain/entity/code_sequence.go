package entity

import "time"

// CodeSequenceCounter contador mensual (periodo YYMM) usado para los códigos de lote.
type CodeSequenceCounter struct {
	Period    string
	Value     int
	UpdatedAt time.Time
}
