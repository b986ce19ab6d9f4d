package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/domain"
)

// writeError traduce errores de dominio a status HTTP y dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Int("status", status).Msg("error en petición")
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var (
		validation *domain.ValidationError
		transition *domain.InvalidTransitionError
		capacity   *domain.CapacityExceededError
		timeout    *domain.TransactionTimeoutError
	)
	switch {
	case errors.As(err, &timeout):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TX_TIMEOUT", Message: err.Error(),
			Details: map[string]any{"operation": timeout.Operation, "timeout": timeout.Timeout.String()}}
	case errors.Is(err, domain.ErrConcurrentModification):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CONCURRENT_MODIFICATION", Message: err.Error()}
	case errors.Is(err, domain.ErrTransient):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "TRANSIENT", Message: "persistencia no disponible, reintente"}
	case errors.As(err, &validation):
		details := map[string]any{"entity": validation.Entity, "field": validation.Field}
		if validation.Value != nil {
			details["value"] = validation.Value
		}
		if validation.Limit != nil {
			details["limit"] = validation.Limit
		}
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error(), Details: details}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.As(err, &capacity):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CAPACITY_EXCEEDED", Message: err.Error(),
			Details: map[string]any{"pen_id": capacity.PenID, "requested": capacity.Requested, "available": capacity.Available, "capacity": capacity.Capacity}}
	case errors.As(err, &transition):
		details := map[string]any{"operation": transition.Operation, "from": transition.From}
		if transition.To != "" {
			details["to"] = transition.To
		}
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error(), Details: details}
	case errors.Is(err, domain.ErrLotHasDependents):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "HAS_DEPENDENTS", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func divergenceDetails(e *domain.ValuationDivergenceError) map[string]any {
	return map[string]any{
		"stored":     e.Stored.StringFixed(2),
		"recomputed": e.Recomputed.StringFixed(2),
		"divergence": e.Divergence.String(),
		"tolerance":  e.Tolerance.String(),
	}
}

// toWarnings convierte advertencias no bloqueantes en su DTO.
func toWarnings(errs []error) []dto.WarningResponse {
	if len(errs) == 0 {
		return nil
	}
	out := make([]dto.WarningResponse, 0, len(errs))
	for _, err := range errs {
		var (
			divergence *domain.ValuationDivergenceError
			pending    *domain.SyncPendingError
		)
		switch {
		case errors.As(err, &divergence):
			out = append(out, dto.WarningResponse{Code: "VALUATION_DIVERGENCE", Message: err.Error(), Details: divergenceDetails(divergence)})
		case errors.As(err, &pending):
			out = append(out, dto.WarningResponse{Code: "SYNC_PENDING", Message: err.Error(),
				Details: map[string]any{"lot_id": pending.LotID, "scope": pending.Scope}})
		default:
			out = append(out, dto.WarningResponse{Code: "WARNING", Message: err.Error()})
		}
	}
	return out
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
