package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/cyclecount"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/application/reservation"
	"github.com/jhoicas/inventory-engine/internal/application/transfer"
	"github.com/jhoicas/inventory-engine/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName          string
	WarehouseUC      *usecase.WarehouseUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	Stock            *inventory.StockUseCase
	Reservations     *reservation.UseCase
	Transfers        *transfer.UseCase
	CycleCounts      *cyclecount.UseCase
	JWTSecret        string
	// RequireAuth exige token en todas las rutas de /api; si no, el token es opcional.
	RequireAuth bool
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	auth := OptionalAuth(deps.JWTSecret)
	if deps.RequireAuth {
		auth = AuthMiddleware(deps.JWTSecret)
	}
	api := app.Group("/api", Tracing(), auth)

	// Warehouses
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", warehouseHandler.Update)

	invGroup := api.Group("/inventory")

	// Movimientos, existencias y libro
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.Stock)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Get("/stock/:itemId/:warehouseId", inventoryHandler.GetStockLevel)
	invGroup.Get("/stock/:itemId/:warehouseId/summary", inventoryHandler.SummarizeStock)
	invGroup.Post("/stock/:itemId/:warehouseId/rebuild", inventoryHandler.RebuildStockLevel)
	invGroup.Get("/ledger", inventoryHandler.ListLedgerEntries)

	// Reservas
	reservations := invGroup.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.Reservations)
	reservations.Post("/", reservationHandler.Create)
	reservations.Get("/", reservationHandler.List)
	reservations.Get("/:id", reservationHandler.GetByID)
	reservations.Post("/:id/allocate", reservationHandler.Allocate)
	reservations.Post("/:id/release", reservationHandler.Release)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)

	// Traslados
	transfers := invGroup.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Put("/:id", transferHandler.Update)
	transfers.Post("/:id/items", transferHandler.AddItem)
	transfers.Put("/:id/items/:itemId", transferHandler.UpdateItem)
	transfers.Delete("/:id/items/:itemId", transferHandler.RemoveItem)
	transfers.Post("/:id/approve", transferHandler.Approve)
	transfers.Post("/:id/ship", transferHandler.Ship)
	transfers.Put("/:id/tracking", transferHandler.SetTrackingNumber)
	transfers.Post("/:id/complete", transferHandler.Complete)
	transfers.Post("/:id/cancel", transferHandler.Cancel)

	// Conteos cíclicos
	counts := invGroup.Group("/cycle-counts")
	countHandler := NewCycleCountHandler(deps.CycleCounts)
	counts.Post("/", countHandler.Schedule)
	counts.Get("/", countHandler.List)
	counts.Get("/:id", countHandler.GetByID)
	counts.Post("/:id/items", countHandler.AddItem)
	counts.Post("/:id/start", countHandler.Start)
	counts.Post("/:id/counts", countHandler.RecordCount)
	counts.Post("/:id/recount", countHandler.RequestRecount)
	counts.Post("/:id/skip", countHandler.SkipItem)
	counts.Post("/:id/complete", countHandler.Complete)
	counts.Post("/:id/reconcile", countHandler.Reconcile)
	counts.Post("/:id/cancel", countHandler.Cancel)
}
