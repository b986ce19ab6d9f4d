package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
)

// LotHandler maneja el ciclo de vida de los lotes (protegido).
type LotHandler struct {
	uc      *lot.UseCase
	finance *finance.Synchronizer
}

// NewLotHandler construye el handler.
func NewLotHandler(uc *lot.UseCase, fin *finance.Synchronizer) *LotHandler {
	return &LotHandler{uc: uc, finance: fin}
}

func pageParams(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Create godoc
// @Summary      Abrir lote en negociación
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLotRequest  true  "Condiciones de compra"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/lots [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toResultResponse(out))
}

// List godoc
// @Summary      Listar lotes
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        stage   query  string  false  "Etapa"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.LotListResponse
// @Router       /api/lots [get]
func (h *LotHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	stage := entity.LotStage(strings.ToUpper(strings.TrimSpace(c.Query("stage"))))
	lots, err := h.uc.List(c.UserContext(), repository.LotFilter{Stage: stage, Limit: limit, Offset: offset})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		items = append(items, toLotResponse(l, nil))
	}
	return c.JSON(dto.LotListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// GetByID godoc
// @Summary      Obtener lote por ID
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *LotHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toLotResponse(out, nil))
}

// UpdateTerms PATCH /api/lots/:id/terms
func (h *LotHandler) UpdateTerms(c *fiber.Ctx) error {
	var in dto.UpdateLotTermsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.UpdateTerms(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Confirm godoc
// @Summary      Confirmar negociación
// @Description  Pasa el lote a CONFIRMED y genera las obligaciones de compra, flete y comisión.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/confirm [post]
func (h *LotHandler) Confirm(c *fiber.Ctx) error {
	return h.result(c)(h.uc.Confirm(c.UserContext(), GetUserID(c), c.Params("id")))
}

// Reception godoc
// @Summary      Registrar recepción
// @Description  La diferencia entre cabezas compradas y recibidas queda como baja IN_TRANSIT.
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del lote"
// @Param        body  body  dto.ReceptionRequest  true  "Datos de llegada"
// @Success      200   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/reception [post]
func (h *LotHandler) Reception(c *fiber.Ctx) error {
	var in dto.ReceptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.RegisterReception(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Allocate POST /api/lots/:id/allocations
func (h *LotHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.Allocate(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Reallocate POST /api/lots/:id/reallocations
func (h *LotHandler) Reallocate(c *fiber.Ctx) error {
	var in dto.ReallocateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.Reallocate(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Release POST /api/lots/:id/releases
func (h *LotHandler) Release(c *fiber.Ctx) error {
	var in dto.ReleaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.Release(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// RecordMortality godoc
// @Summary      Registrar baja
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del lote"
// @Param        body  body  dto.MortalityRequest  true  "Baja"
// @Success      201   {object}  dto.MortalityRecordedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/mortalities [post]
func (h *LotHandler) RecordMortality(c *fiber.Ctx) error {
	var in dto.MortalityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RecordMortality(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MortalityRecordedResponse{
		Lot:   toResultResponse(&out.Result),
		Event: toMortalityResponse(out.Event),
	})
}

// RecordWeightLoss POST /api/lots/:id/weight-losses
func (h *LotHandler) RecordWeightLoss(c *fiber.Ctx) error {
	var in dto.WeightLossRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.RecordWeightLoss(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// MarkSold POST /api/lots/:id/sales
func (h *LotHandler) MarkSold(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.MarkSold(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Cancel POST /api/lots/:id/cancel
func (h *LotHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.result(c)(h.uc.Cancel(c.UserContext(), GetUserID(c), c.Params("id"), in))
}

// Valuation godoc
// @Summary      Verificar valuación
// @Description  Recalcula el valor de compra y reporta la divergencia sin corregirla.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.ValuationResponse
// @Router       /api/lots/{id}/valuation [get]
func (h *LotHandler) Valuation(c *fiber.Ctx) error {
	out, err := h.uc.CheckValuation(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ValuationResponse{
		LotID:         out.LotID,
		StoredValue:   out.Stored,
		Recomputed:    out.Recomputed,
		Divergence:    out.Divergence,
		YieldUsed:     out.YieldUsed,
		StandardUnits: out.StandardUnits,
		Warnings:      toWarnings(out.Warnings),
	})
}

// ReconcileValuation POST /api/lots/:id/valuation/reconcile
func (h *LotHandler) ReconcileValuation(c *fiber.Ctx) error {
	return h.result(c)(h.uc.ReconcileValuation(c.UserContext(), GetUserID(c), c.Params("id")))
}

// History GET /api/lots/:id/history
func (h *LotHandler) History(c *fiber.Ctx) error {
	out, err := h.uc.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toHistoryResponse(out))
}

// Delete godoc
// @Summary      Eliminar lote
// @Description  Solo lotes sin asignaciones, eventos, ventas ni entradas financieras.
// @Tags         lots
// @Security     Bearer
// @Param        id   path  string  true  "ID del lote"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [delete]
func (h *LotHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetUserID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sync POST /api/lots/:id/sync: sincronización financiera explícita del lote.
func (h *LotHandler) Sync(c *fiber.Ctx) error {
	out, err := h.finance.SyncLotCosts(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSyncReportResponse(out))
}

// Entries GET /api/lots/:id/entries
func (h *LotHandler) Entries(c *fiber.Ctx) error {
	entries, err := h.finance.ListByLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEntryResponses(entries))
}

// result responde 200 con el lote y sus advertencias, o el error mapeado.
func (h *LotHandler) result(c *fiber.Ctx) func(*lot.Result, error) error {
	return func(out *lot.Result, err error) error {
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(toResultResponse(out))
	}
}
