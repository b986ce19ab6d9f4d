package dto

import "time"

// CreatePenRequest entrada para crear un corral.
type CreatePenRequest struct {
	Number   string `json:"number" validate:"required,min=1,max=50"`
	Capacity int    `json:"capacity" validate:"min=1"`
	Location string `json:"location"`
}

// UpdatePenStatusRequest cambio de estado operativo.
type UpdatePenStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE MAINTENANCE INACTIVE"`
}

// PenResponse salida de un corral.
type PenResponse struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Capacity  int       `json:"capacity"`
	Occupancy int       `json:"occupancy"`
	Available int       `json:"available"`
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PenListResponse lista paginada de corrales.
type PenListResponse struct {
	Items []PenResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}
