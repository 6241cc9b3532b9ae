package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/inventory-engine/internal/app/apptest"
	"github.com/jhoicas/inventory-engine/internal/application/dto"
	apphttp "github.com/jhoicas/inventory-engine/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type api struct {
	t   *testing.T
	app *fiber.App
	h   *apptest.Harness
}

func newAPI(t *testing.T, requireAuth bool) *api {
	t.Helper()
	h := apptest.New(t)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AppName:          "inventory-engine-test",
		WarehouseUC:      h.Engine.Warehouses,
		RegisterMovement: h.Engine.Movements,
		Stock:            h.Engine.Stock,
		Reservations:     h.Engine.Reservations,
		Transfers:        h.Engine.Transfers,
		CycleCounts:      h.Engine.CycleCounts,
		JWTSecret:        testJWTSecret,
		RequireAuth:      requireAuth,
	})
	return &api{t: t, app: app, h: h}
}

// do envía la petición y decodifica el cuerpo en out si no es nil.
func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(a.t))
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *api) warehouse(code string) string {
	a.t.Helper()
	var w dto.WarehouseResponse
	status := a.do(http.MethodPost, "/api/warehouses", dto.CreateWarehouseRequest{Code: code, Name: "Bodega " + code}, &w)
	require.Equal(a.t, fiber.StatusCreated, status)
	return w.ID
}

func (a *api) receive(item, wh string, qty int64, cost string) {
	a.t.Helper()
	body := map[string]any{"item_id": item, "warehouse_id": wh, "type": "RECEIPT", "quantity": qty, "unit_cost": cost}
	require.Equal(a.t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/movements", body, nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Salud y autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	a := newAPI(t, false)
	var out map[string]string
	assert.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/health", nil, &out))
	assert.Equal(t, "ok", out["status"])
}

func TestAPI_TokenObligatorio(t *testing.T) {
	a := newAPI(t, true)
	req := httptest.NewRequest(http.MethodGet, "/api/warehouses", nil)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/warehouses", nil, nil))
}

func TestAPI_TrazaDeLaPeticion(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	a := newAPI(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/warehouses", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", resp.Header.Get(apphttp.HeaderTraceID))

	req = httptest.NewRequest(http.MethodGet, "/api/warehouses", nil)
	resp, err = a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(apphttp.HeaderTraceID), "sin traza entrante ni proveedor no hay trace_id")
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos y existencias
// ──────────────────────────────────────────────────────────────────────────────

func TestMovimientos_EntradaYConsultaDeExistencias(t *testing.T) {
	a := newAPI(t, false)
	wh := a.warehouse("BOG")
	a.receive("item-1", wh, 10, "25.50")

	var stock dto.StockLevelResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh, nil, &stock))
	assert.Equal(t, int64(10), stock.QuantityOnHand)
	assert.Equal(t, int64(10), stock.QuantityAvailable)
	assert.Equal(t, "25.5", stock.AverageCost.String())

	var ledger dto.LedgerListResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/ledger?item_id=item-1&warehouse_id="+wh, nil, &ledger))
	require.Len(t, ledger.Items, 1)
	assert.Equal(t, testUserID, ledger.Items[0].PerformedBy)
}

func TestExistencias_ResumenPorUbicacion(t *testing.T) {
	a := newAPI(t, false)
	wh := a.warehouse("BOG")
	a.receive("item-1", wh, 4, "1")
	body := map[string]any{"item_id": "item-1", "warehouse_id": wh, "location_id": "L1", "type": "RECEIPT", "quantity": 50, "unit_cost": "1"}
	require.Equal(t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/movements", body, nil))

	var stock dto.StockLevelResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh, nil, &stock))
	assert.Equal(t, int64(4), stock.QuantityAvailable)
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh+"?location_id=L1", nil, &stock))
	assert.Equal(t, int64(50), stock.QuantityAvailable)

	var summary dto.StockSummaryResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh+"/summary", nil, &summary))
	assert.Equal(t, int64(54), summary.Total.QuantityOnHand)
	assert.Len(t, summary.Locations, 2)
}

func TestMovimientos_SalidaInsuficienteDevuelve409ConRegla(t *testing.T) {
	a := newAPI(t, false)
	wh := a.warehouse("BOG")
	a.receive("item-1", wh, 2, "1")

	var errResp dto.ErrorResponse
	status := a.do(http.MethodPost, "/api/inventory/movements",
		map[string]any{"item_id": "item-1", "warehouse_id": wh, "type": "ISSUE", "quantity": 3}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.Equal(t, "stock.available_covers_issue", errResp.Rule)
}

func TestMovimientos_ErroresDeEntrada(t *testing.T) {
	a := newAPI(t, false)

	var errResp dto.ErrorResponse
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/movements", bytes.NewReader([]byte("{no-json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	status := a.do(http.MethodPost, "/api/inventory/movements",
		map[string]any{"item_id": "item-1", "warehouse_id": "no-existe", "type": "ISSUE", "quantity": 1}, &errResp)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "warehouse.exists", errResp.Rule)

	status = a.do(http.MethodPost, "/api/inventory/movements",
		map[string]any{"item_id": "item-1", "warehouse_id": "x", "type": "GIFT", "quantity": 1}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errResp.Code)

	status = a.do(http.MethodGet, "/api/inventory/ledger?from=ayer", nil, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reservas, traslados y conteos
// ──────────────────────────────────────────────────────────────────────────────

func TestReservas_CicloPorHTTP(t *testing.T) {
	a := newAPI(t, false)
	wh := a.warehouse("BOG")
	a.receive("item-1", wh, 10, "1")

	var res dto.ReservationResponse
	require.Equal(t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/reservations",
		dto.CreateReservationRequest{ItemID: "item-1", WarehouseID: wh, Quantity: 4}, &res))
	assert.Equal(t, "ACTIVE", res.Status)

	var stock dto.StockLevelResponse
	a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh, nil, &stock)
	assert.Equal(t, int64(6), stock.QuantityAvailable)

	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/reservations/"+res.ID+"/release",
		dto.ReasonRequest{Reason: "pedido anulado"}, &res))
	assert.Equal(t, "RELEASED", res.Status)
	assert.Equal(t, "pedido anulado", res.ReleaseReason)

	// sin cuerpo también es válido
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/reservations/"+res.ID+"/cancel", nil, &res))
	assert.Equal(t, "RELEASED", res.Status)

	var list dto.ReservationListResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/inventory/reservations?status=released", nil, &list))
	assert.Len(t, list.Items, 1)

	var errResp dto.ErrorResponse
	assert.Equal(t, fiber.StatusNotFound, a.do(http.MethodGet, "/api/inventory/reservations/no-existe", nil, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Code)
}

func TestTraslados_CancelarEnTransitoEsConflicto(t *testing.T) {
	a := newAPI(t, false)
	bog := a.warehouse("BOG")
	mde := a.warehouse("MDE")
	a.receive("item-1", bog, 10, "1")

	var tr dto.TransferResponse
	require.Equal(t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/transfers", dto.CreateTransferRequest{
		FromWarehouseID: bog, ToWarehouseID: mde,
		Items:           []dto.TransferItemRequest{{ItemID: "item-1", Quantity: 3}},
	}, &tr))
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/transfers/"+tr.ID+"/approve", nil, &tr))
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/transfers/"+tr.ID+"/ship",
		dto.ShipTransferRequest{TrackingNumber: "G-9"}, &tr))
	assert.Equal(t, "IN_TRANSIT", tr.Status)

	var errResp dto.ErrorResponse
	assert.Equal(t, fiber.StatusConflict, a.do(http.MethodPost, "/api/inventory/transfers/"+tr.ID+"/cancel",
		dto.ReasonRequest{Reason: "tarde"}, &errResp))
	assert.Equal(t, "INVALID_TRANSITION", errResp.Code)
	assert.Equal(t, "transfer.transition_not_allowed", errResp.Rule)

	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/transfers/"+tr.ID+"/complete", nil, &tr))
	var stock dto.StockLevelResponse
	a.do(http.MethodGet, "/api/inventory/stock/item-1/"+mde, nil, &stock)
	assert.Equal(t, int64(3), stock.QuantityOnHand)

	status := a.do(http.MethodPost, "/api/inventory/transfers", dto.CreateTransferRequest{
		FromWarehouseID: bog, ToWarehouseID: bog,
		Items:           []dto.TransferItemRequest{{ItemID: "item-1", Quantity: 1}},
	}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "transfer.distinct_warehouses", errResp.Rule)
}

func TestTraslados_EdicionDeCabeceraYLineas(t *testing.T) {
	a := newAPI(t, false)
	bog := a.warehouse("BOG")
	mde := a.warehouse("MDE")
	a.receive("item-1", bog, 10, "1")

	var tr dto.TransferResponse
	require.Equal(t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/transfers", dto.CreateTransferRequest{
		FromWarehouseID: bog, ToWarehouseID: mde,
		Items:           []dto.TransferItemRequest{{ItemID: "item-1", Quantity: 3, UnitPrice: decimal.NewFromInt(2)}},
	}, &tr))

	require.Equal(t, fiber.StatusOK, a.do(http.MethodPut, "/api/inventory/transfers/"+tr.ID,
		map[string]any{"priority": "urgent", "reason": "quiebre"}, &tr))
	assert.Equal(t, "URGENT", tr.Priority)
	assert.Equal(t, "quiebre", tr.Reason)

	require.Equal(t, fiber.StatusOK, a.do(http.MethodPut, "/api/inventory/transfers/"+tr.ID+"/items/item-1",
		map[string]any{"quantity": 4, "unit_price": "5"}, &tr))
	assert.True(t, decimal.NewFromInt(20).Equal(tr.TotalValue), "got %s", tr.TotalValue)

	var errResp dto.ErrorResponse
	assert.Equal(t, fiber.StatusBadRequest, a.do(http.MethodPut, "/api/inventory/transfers/"+tr.ID,
		map[string]any{"priority": "ya"}, &errResp))
	assert.Equal(t, "transfer.priority_invalid", errResp.Rule)
}

func TestConteos_CompletarIncompletoYAjuste(t *testing.T) {
	a := newAPI(t, false)
	wh := a.warehouse("BOG")
	a.receive("item-1", wh, 20, "1")

	var cc dto.CycleCountResponse
	require.Equal(t, fiber.StatusCreated, a.do(http.MethodPost, "/api/inventory/cycle-counts",
		dto.ScheduleCycleCountRequest{WarehouseID: wh, ItemIDs: []string{"item-1"}}, &cc))
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/items",
		dto.CountLineRequest{ItemID: "item-2"}, &cc))
	require.Len(t, cc.Items, 2)
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/start", nil, &cc))
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/skip",
		dto.CountLineRequest{ItemID: "item-2"}, &cc))

	var errResp dto.ErrorResponse
	assert.Equal(t, fiber.StatusConflict, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/complete",
		dto.CompleteCycleCountRequest{PostAdjustments: true}, &errResp))
	assert.Equal(t, "INCOMPLETE_COUNT", errResp.Code)

	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/counts",
		dto.RecordCountRequest{ItemID: "item-1", CountedQuantity: 18}, &cc))
	require.Equal(t, fiber.StatusOK, a.do(http.MethodPost, "/api/inventory/cycle-counts/"+cc.ID+"/complete",
		dto.CompleteCycleCountRequest{PostAdjustments: true}, &cc))
	assert.Equal(t, "COMPLETED", cc.Status)

	var stock dto.StockLevelResponse
	a.do(http.MethodGet, "/api/inventory/stock/item-1/"+wh, nil, &stock)
	assert.Equal(t, int64(18), stock.QuantityOnHand)
}

func TestBodegas_CodigoDuplicado(t *testing.T) {
	a := newAPI(t, false)
	a.warehouse("BOG")

	var errResp dto.ErrorResponse
	status := a.do(http.MethodPost, "/api/warehouses", dto.CreateWarehouseRequest{Code: "bog", Name: "Otra"}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", errResp.Code)

	var list dto.WarehouseListResponse
	require.Equal(t, fiber.StatusOK, a.do(http.MethodGet, "/api/warehouses?limit=5", nil, &list))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 5, list.Page.Limit)
}
