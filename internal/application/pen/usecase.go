package pen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

var readCommitted = repository.TxOptions{Isolation: repository.IsolationReadCommitted}

// UseCase casos de uso de corrales.
type UseCase struct {
	tx  *txctl.Controller
	now func() time.Time
}

// NewUseCase construye el caso de uso. now nil usa time.Now.
func NewUseCase(tx *txctl.Controller, now func() time.Time) *UseCase {
	if now == nil {
		now = time.Now
	}
	return &UseCase{tx: tx, now: now}
}

// Create crea un corral ACTIVE vacío.
func (uc *UseCase) Create(ctx context.Context, in dto.CreatePenRequest) (*dto.PenResponse, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return nil, domain.Invalid("pen", "", "number", "requerido")
	}
	if in.Capacity <= 0 {
		return nil, &domain.ValidationError{Entity: "pen", Field: "capacity", Value: in.Capacity, Reason: "debe ser mayor a cero"}
	}
	now := uc.now()
	pen := &entity.Pen{
		ID:        uuid.New().String(),
		Number:    number,
		Capacity:  in.Capacity,
		Status:    entity.PenStatusActive,
		Location:  in.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.tx.Run(ctx, "pen.create", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		pen.Version = 0
		return repos.Pens.Create(ctx, pen)
	})
	if err != nil {
		return nil, err
	}
	return ToPenResponse(pen), nil
}

// GetByID obtiene un corral por ID.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.PenResponse, error) {
	var pen *entity.Pen
	err := uc.tx.Run(ctx, "pen.get", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		pen, err = repos.Pens.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToPenResponse(pen), nil
}

// List lista corrales con paginación.
func (uc *UseCase) List(ctx context.Context, limit, offset int) (*dto.PenListResponse, error) {
	var list []*entity.Pen
	err := uc.tx.Run(ctx, "pen.list", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		list, err = repos.Pens.List(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.PenResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *ToPenResponse(p))
	}
	return &dto.PenListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// SetStatus cambia el estado operativo. Un corral ocupado puede pasar a MAINTENANCE
// (no recibe animales nuevos) pero no a INACTIVE.
func (uc *UseCase) SetStatus(ctx context.Context, id string, in dto.UpdatePenStatusRequest) (*dto.PenResponse, error) {
	status := entity.PenStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !status.IsValid() {
		return nil, &domain.ValidationError{Entity: "pen", ID: id, Field: "status", Value: in.Status, Reason: "estado desconocido"}
	}
	var out *entity.Pen
	err := uc.tx.Run(ctx, "pen.set_status", readCommitted, func(ctx context.Context, repos repository.Repositories) error {
		pen, err := repos.Pens.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if status == entity.PenStatusInactive && pen.Occupancy > 0 {
			return fmt.Errorf("corral %s con %d cabezas: %w", pen.Number, pen.Occupancy, domain.ErrConflict)
		}
		pen.Status = status
		pen.UpdatedAt = uc.now()
		if err := repos.Pens.Update(ctx, pen); err != nil {
			return err
		}
		out = pen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToPenResponse(out), nil
}

// ToPenResponse convierte la entidad a su DTO.
func ToPenResponse(p *entity.Pen) *dto.PenResponse {
	if p == nil {
		return nil
	}
	return &dto.PenResponse{
		ID:        p.ID,
		Number:    p.Number,
		Capacity:  p.Capacity,
		Occupancy: p.Occupancy,
		Available: p.Available(),
		Status:    string(p.Status),
		Location:  p.Location,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
