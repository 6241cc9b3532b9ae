package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

// InventoryHandler movimientos, existencias y libro.
type InventoryHandler struct {
	movements *inventory.RegisterMovementUseCase
	stock     *inventory.StockUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(movements *inventory.RegisterMovementUseCase, stock *inventory.StockUseCase) *InventoryHandler {
	return &InventoryHandler{movements: movements, stock: stock}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  RECEIPT (unit_cost obligatorio), ISSUE (opcionalmente contra una reserva asignada) o ADJUSTMENT (cantidad firmada).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "item_id, warehouse_id, type, quantity"
// @Success      201   {object}  dto.LedgerEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.movements.RegisterMovement(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetStockLevel godoc
// @Summary      Existencias de un item en una bodega
// @Description  Clave exacta. Sin location_id devuelve el nivel sin ubicar, el que usan reservas y traslados sin ubicación.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId       path   string  true   "Item"
// @Param        warehouseId  path   string  true   "Bodega"
// @Param        location_id  query  string  false  "Ubicación"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{itemId}/{warehouseId} [get]
func (h *InventoryHandler) GetStockLevel(c *fiber.Ctx) error {
	out, err := h.stock.GetStockLevel(c.UserContext(), c.Params("itemId"), c.Params("warehouseId"), c.Query("location_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SummarizeStock godoc
// @Summary      Total de un item en una bodega por ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId       path   string  true   "Item"
// @Param        warehouseId  path   string  true   "Bodega"
// @Success      200  {object}  dto.StockSummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{itemId}/{warehouseId}/summary [get]
func (h *InventoryHandler) SummarizeStock(c *fiber.Ctx) error {
	out, err := h.stock.SummarizeStock(c.UserContext(), c.Params("itemId"), c.Params("warehouseId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RebuildStockLevel godoc
// @Summary      Reconstruir la proyección desde el libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId       path   string  true   "Item"
// @Param        warehouseId  path   string  true   "Bodega"
// @Param        location_id  query  string  false  "Ubicación"
// @Success      200  {object}  dto.StockLevelResponse
// @Router       /api/inventory/stock/{itemId}/{warehouseId}/rebuild [post]
func (h *InventoryHandler) RebuildStockLevel(c *fiber.Ctx) error {
	key := entity.StockKey{ItemID: c.Params("itemId"), WarehouseID: c.Params("warehouseId"), LocationID: c.Query("location_id")}
	out, err := h.stock.RebuildStockLevel(c.UserContext(), key)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListLedgerEntries godoc
// @Summary      Entradas del libro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "Item"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        reference     query  string  false  "Documento de referencia"
// @Param        from          query  string  false  "RFC3339, inclusivo"
// @Param        to            query  string  false  "RFC3339, exclusivo"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LedgerListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger [get]
func (h *InventoryHandler) ListLedgerEntries(c *fiber.Ctx) error {
	q := dto.LedgerQuery{
		ItemID:      c.Query("item_id"),
		WarehouseID: c.Query("warehouse_id"),
		Reference:   c.Query("reference"),
		Page:        pageFrom(c),
	}
	var err error
	if q.From, err = queryTime(c, "from"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	if q.To, err = queryTime(c, "to"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	out, err := h.stock.ListLedgerEntries(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
