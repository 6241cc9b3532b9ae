package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/reservation"
)

// ReservationHandler ciclo de vida de reservas.
type ReservationHandler struct {
	uc *reservation.UseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *reservation.UseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Create godoc
// @Summary      Crear reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "Clave, cantidad y expiración"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar reservas
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "Item"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        status        query  string  false  "ACTIVE, ALLOCATED, RELEASED, CANCELLED, EXPIRED"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ReservationListResponse
// @Router       /api/inventory/reservations [get]
func (h *ReservationHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), dto.ReservationQuery{
		ItemID:      c.Query("item_id"),
		WarehouseID: c.Query("warehouse_id"),
		Status:      c.Query("status"),
		Page:        pageFrom(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Allocate godoc
// @Summary      Asignar reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id}/allocate [post]
func (h *ReservationHandler) Allocate(c *fiber.Ctx) error {
	out, err := h.uc.Allocate(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID de la reserva"
// @Param        body  body  dto.ReasonRequest  false  "Motivo"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	in, err := reasonFrom(c)
	if err != nil {
		return badBody(c)
	}
	out, err := h.uc.Release(c.UserContext(), GetUserID(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID de la reserva"
// @Param        body  body  dto.ReasonRequest  false  "Motivo"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
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

// el cuerpo es opcional en liberar y cancelar
func reasonFrom(c *fiber.Ctx) (dto.ReasonRequest, error) {
	var in dto.ReasonRequest
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := c.BodyParser(&in)
	return in, err
}
