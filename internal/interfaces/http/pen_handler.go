package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Confinamiento-api/internal/application/dto"
	"github.com/jhoicas/Confinamiento-api/internal/application/pen"
)

// PenHandler maneja las peticiones HTTP para corrales (protegido).
type PenHandler struct {
	uc *pen.UseCase
}

// NewPenHandler construye el handler.
func NewPenHandler(uc *pen.UseCase) *PenHandler {
	return &PenHandler{uc: uc}
}

// Create godoc
// @Summary      Crear corral
// @Tags         pens
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePenRequest  true  "Datos del corral"
// @Success      201   {object}  dto.PenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pens [post]
func (h *PenHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePenRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener corral por ID
// @Tags         pens
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del corral"
// @Success      200  {object}  dto.PenResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pens/{id} [get]
func (h *PenHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar corrales
// @Tags         pens
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.PenListResponse
// @Router       /api/pens [get]
func (h *PenHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.uc.List(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetStatus PATCH /api/pens/:id/status
func (h *PenHandler) SetStatus(c *fiber.Ctx) error {
	var in dto.UpdatePenStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetStatus(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
