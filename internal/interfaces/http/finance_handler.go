package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
)

// FinanceHandler entradas financieras derivadas de los lotes.
type FinanceHandler struct {
	sync *finance.Synchronizer
}

func NewFinanceHandler(s *finance.Synchronizer) *FinanceHandler {
	return &FinanceHandler{sync: s}
}

// EditEntry PATCH /api/entries/:id
func (h *FinanceHandler) EditEntry(c *fiber.Ctx) error {
	var in dto.EditEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.sync.EditEntry(c.UserContext(), c.Params("id"), GetUserID(c), in.Amount, in.DueDate, in.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEntryResponse(out))
}

// MarkPaid POST /api/entries/:id/pay. El cuerpo es opcional.
func (h *FinanceHandler) MarkPaid(c *fiber.Ctx) error {
	var in dto.PayEntryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.sync.MarkPaid(c.UserContext(), c.Params("id"), GetUserID(c), in.PaidAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEntryResponse(out))
}

// ReconcilePending POST /api/finance/reconcile
func (h *FinanceHandler) ReconcilePending(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if in.Limit <= 0 || in.Limit > 500 {
		in.Limit = 100
	}
	out, err := h.sync.ReconcilePending(c.UserContext(), in.Limit, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{Processed: out.Processed, Cleared: out.Cleared, Failed: out.Failed, Retained: out.Retained})
}
