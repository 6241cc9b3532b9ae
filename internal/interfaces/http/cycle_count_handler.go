package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/cyclecount"
	"github.com/jhoicas/inventory-engine/internal/application/dto"
)

// CycleCountHandler conteos cíclicos.
type CycleCountHandler struct {
	uc *cyclecount.UseCase
}

// NewCycleCountHandler construye el handler.
func NewCycleCountHandler(uc *cyclecount.UseCase) *CycleCountHandler {
	return &CycleCountHandler{uc: uc}
}

// Schedule godoc
// @Summary      Programar conteo
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ScheduleCycleCountRequest  true  "Bodega, fecha e items"
// @Success      201   {object}  dto.CycleCountResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts [post]
func (h *CycleCountHandler) Schedule(c *fiber.Ctx) error {
	var in dto.ScheduleCycleCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Schedule(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener conteo
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CycleCountResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id} [get]
func (h *CycleCountHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar conteos
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        status        query  string  false  "SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.CycleCountListResponse
// @Router       /api/inventory/cycle-counts [get]
func (h *CycleCountHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), dto.CycleCountQuery{
		WarehouseID: c.Query("warehouse_id"),
		Status:      c.Query("status"),
		Page:        pageFrom(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Start godoc
// @Summary      Iniciar conteo
// @Description  Toma la foto de existencias esperadas por línea.
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CycleCountResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/start [post]
func (h *CycleCountHandler) Start(c *fiber.Ctx) error {
	out, err := h.uc.Start(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RecordCount godoc
// @Summary      Registrar cantidad contada
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del conteo"
// @Param        body  body  dto.RecordCountRequest  true  "Item y cantidad"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/counts [post]
func (h *CycleCountHandler) RecordCount(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RecordCount(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddItem godoc
// @Summary      Agregar una línea al conteo
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del conteo"
// @Param        body  body  dto.CountLineRequest  true  "Item"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/items [post]
func (h *CycleCountHandler) AddItem(c *fiber.Ctx) error {
	var in dto.CountLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddItem(c.UserContext(), c.Params("id"), in.ItemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RequestRecount godoc
// @Summary      Pedir reconteo de una línea
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del conteo"
// @Param        body  body  dto.CountLineRequest  true  "Item"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/recount [post]
func (h *CycleCountHandler) RequestRecount(c *fiber.Ctx) error {
	var in dto.CountLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RequestRecount(c.UserContext(), c.Params("id"), in.ItemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SkipItem godoc
// @Summary      Omitir una línea
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del conteo"
// @Param        body  body  dto.CountLineRequest  true  "Item"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/skip [post]
func (h *CycleCountHandler) SkipItem(c *fiber.Ctx) error {
	var in dto.CountLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SkipItem(c.UserContext(), c.Params("id"), in.ItemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Complete godoc
// @Summary      Completar conteo
// @Description  Con post_adjustments publica un ajuste por cada diferencia.
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true   "ID del conteo"
// @Param        body  body  dto.CompleteCycleCountRequest  false  "post_adjustments"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/complete [post]
func (h *CycleCountHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteCycleCountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.uc.Complete(c.UserContext(), GetUserID(c), c.Params("id"), in.PostAdjustments)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Publicar ajustes pendientes de un conteo completado
// @Tags         cycle-counts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CycleCountResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/reconcile [post]
func (h *CycleCountHandler) Reconcile(c *fiber.Ctx) error {
	out, err := h.uc.Reconcile(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar conteo
// @Tags         cycle-counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID del conteo"
// @Param        body  body  dto.ReasonRequest  false  "Motivo"
// @Success      200   {object}  dto.CycleCountResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/cycle-counts/{id}/cancel [post]
func (h *CycleCountHandler) Cancel(c *fiber.Ctx) error {
	in, err := reasonFrom(c)
	if err != nil {
		return badBody(c)
	}
	out, err := h.uc.Cancel(c.UserContext(), GetUserID(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
