package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/transfer"
)

// TransferHandler traslados entre bodegas.
type TransferHandler struct {
	uc *transfer.UseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.UseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Create godoc
// @Summary      Crear traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Origen, destino y líneas"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
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
// @Summary      Obtener traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Modificar cabecera de un traslado en CREATED
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del traslado"
// @Param        body  body  dto.UpdateTransferRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id} [put]
func (h *TransferHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar traslados
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega origen o destino"
// @Param        status        query  string  false  "CREATED, APPROVED, IN_TRANSIT, COMPLETED, CANCELLED"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransferListResponse
// @Router       /api/inventory/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), dto.TransferQuery{
		WarehouseID: c.Query("warehouse_id"),
		Status:      c.Query("status"),
		Page:        pageFrom(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddItem godoc
// @Summary      Agregar línea
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del traslado"
// @Param        body  body  dto.TransferItemRequest  true  "Línea"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/items [post]
func (h *TransferHandler) AddItem(c *fiber.Ctx) error {
	var in dto.TransferItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddItem(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateItem godoc
// @Summary      Cambiar cantidad y precio de una línea
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string                         true  "ID del traslado"
// @Param        itemId  path  string                         true  "Item"
// @Param        body    body  dto.UpdateTransferItemRequest  true  "Cantidad y precio"
// @Success      200     {object}  dto.TransferResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/items/{itemId} [put]
func (h *TransferHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateTransferItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateItem(c.UserContext(), c.Params("id"), c.Params("itemId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RemoveItem godoc
// @Summary      Quitar línea
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID del traslado"
// @Param        itemId  path  string  true  "Item"
// @Success      200     {object}  dto.TransferResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/items/{itemId} [delete]
func (h *TransferHandler) RemoveItem(c *fiber.Ctx) error {
	out, err := h.uc.RemoveItem(c.UserContext(), c.Params("id"), c.Params("itemId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Approve godoc
// @Summary      Aprobar traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	out, err := h.uc.Approve(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Ship godoc
// @Summary      Despachar traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID del traslado"
// @Param        body  body  dto.ShipTransferRequest  false  "Guía"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/ship [post]
func (h *TransferHandler) Ship(c *fiber.Ctx) error {
	var in dto.ShipTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.uc.Ship(c.UserContext(), GetUserID(c), c.Params("id"), in.TrackingNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetTrackingNumber godoc
// @Summary      Actualizar guía
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del traslado"
// @Param        body  body  dto.TrackingRequest  true  "Guía"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/tracking [put]
func (h *TransferHandler) SetTrackingNumber(c *fiber.Ctx) error {
	var in dto.TrackingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetTrackingNumber(c.UserContext(), c.Params("id"), in.TrackingNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Complete godoc
// @Summary      Recibir traslado
// @Description  Registra la salida en origen y la entrada en destino por cada línea, en una sola transacción.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	out, err := h.uc.Complete(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar traslado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID del traslado"
// @Param        body  body  dto.ReasonRequest  false  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
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
