package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/export/xlsx"
	"github.com/mamadbah2/uniformstock/internal/repository/memory"
	"github.com/mamadbah2/uniformstock/internal/server/handlers"
	"github.com/mamadbah2/uniformstock/internal/service/barcode"
	"github.com/mamadbah2/uniformstock/internal/service/delivery"
	"github.com/mamadbah2/uniformstock/internal/service/ledger"
	"github.com/mamadbah2/uniformstock/internal/service/reporting"
)

func newEngine(t *testing.T, health func(context.Context) error) *gin.Engine {
	t.Helper()

	inventory := memory.NewInventoryRepository()
	users := memory.NewUserRepository(models.User{ID: "u-1", Username: "clerk", Role: models.RoleStaff})
	ledgerSvc := ledger.NewService(inventory, barcode.NewAllocator(inventory, nil), nil)
	deliverySvc := delivery.NewService(memory.NewDeliveryRepository(), inventory, users, nil)
	reportSvc := reporting.NewService(inventory, deliverySvc, nil, reporting.WithLocation(time.UTC))

	return New(Handlers{
		Inventory:  handlers.NewInventoryHandler(ledgerSvc, reportSvc.LowStockThreshold(), nil),
		Deliveries: handlers.NewDeliveryHandler(deliverySvc, time.UTC, nil),
		Reports:    handlers.NewReportHandler(reportSvc, time.UTC, nil),
		Health:     health,
	}, nil)
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func addShirt(t *testing.T, engine *gin.Engine, sizes ...map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, engine, http.MethodPost, "/api/inventory", map[string]any{
		"itemName":  "Shirt",
		"category":  "Uniform",
		"color":     "Blue",
		"unitPrice": 100,
		"sizes":     sizes,
	}, nil)
}

func TestAddStockCreatesThenReconciles(t *testing.T) {
	engine := newEngine(t, nil)

	rec := addShirt(t, engine, map[string]any{"size": "M", "quantity": 5}, map[string]any{"size": "L", "quantity": 0})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Successfully added 1 size(s) for Shirt", body["message"])

	result := body["result"].(map[string]any)
	created := result["created"].([]any)
	require.Len(t, created, 1)
	code := created[0].(map[string]any)["barcode"].(string)
	assert.Len(t, code, 12)

	rec = addShirt(t, engine, map[string]any{"size": "M", "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated quantities for 1 existing size(s) of Shirt", decode(t, rec)["message"])

	rec = do(t, engine, http.MethodGet, "/api/inventory", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	items := list["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 8, items[0].(map[string]any)["quantity"])
	assert.EqualValues(t, 1, list["pagination"].(map[string]any)["total"])

	rec = do(t, engine, http.MethodGet, "/api/inventory/barcode/"+code, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "M", decode(t, rec)["size"])
}

func TestInventoryErrorsMapToStatus(t *testing.T) {
	engine := newEngine(t, nil)

	rec := do(t, engine, http.MethodPost, "/api/inventory", map[string]any{
		"itemName": "Shirt", "category": "Socks", "color": "Blue",
		"sizes": []map[string]any{{"size": "M", "quantity": 1}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid_argument", body["kind"])
	assert.Equal(t, "category", body["field"])

	rec = do(t, engine, http.MethodGet, "/api/inventory/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, engine, http.MethodGet, "/api/inventory?page=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetQuantityAndDelete(t *testing.T) {
	engine := newEngine(t, nil)

	rec := addShirt(t, engine, map[string]any{"size": "M", "quantity": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["result"].(map[string]any)["created"].([]any)[0].(map[string]any)["id"].(string)

	rec = do(t, engine, http.MethodPatch, "/api/inventory/"+id+"/quantity", map[string]any{"quantity": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodPatch, "/api/inventory/"+id+"/quantity", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodPatch, "/api/inventory/"+id+"/quantity", map[string]any{"quantity": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["quantity"])

	rec = do(t, engine, http.MethodDelete, "/api/inventory/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, engine, http.MethodDelete, "/api/inventory/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordAndListDeliveries(t *testing.T) {
	engine := newEngine(t, nil)

	rec := addShirt(t, engine, map[string]any{"size": "M", "quantity": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["result"].(map[string]any)["created"].([]any)[0].(map[string]any)["id"].(string)

	payload := map[string]any{"variantId": id, "customerName": "Green School", "quantity": 2, "deliveryDate": "2026-05-02T10:00:00Z"}

	rec = do(t, engine, http.MethodPost, "/api/deliveries", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, engine, http.MethodPost, "/api/deliveries", payload, map[string]string{handlers.UserIDHeader: "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, engine, http.MethodPost, "/api/deliveries", payload, map[string]string{handlers.UserIDHeader: "u-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u-1", decode(t, rec)["deliveredBy"])

	payload["quantity"] = 0
	rec = do(t, engine, http.MethodPost, "/api/deliveries", payload, map[string]string{handlers.UserIDHeader: "u-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodGet, "/api/deliveries?startDate=2026-05-01&endDate=2026-05-02", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, engine, http.MethodGet, "/api/deliveries?startDate=2026-05-03", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = do(t, engine, http.MethodGet, "/api/deliveries?startDate=May", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports(t *testing.T) {
	engine := newEngine(t, nil)
	require.Equal(t, http.StatusCreated, addShirt(t, engine, map[string]any{"size": "M", "quantity": 5}, map[string]any{"size": "L", "quantity": 20}).Code)

	rec := do(t, engine, http.MethodGet, "/api/reports/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode(t, rec)
	assert.EqualValues(t, 2, dash["totalItems"])
	assert.EqualValues(t, 25, dash["totalStock"])
	assert.EqualValues(t, 1, dash["lowStockCount"])

	rec = do(t, engine, http.MethodGet, "/api/reports/inventory?lowStock=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := decode(t, rec)
	assert.Len(t, table["columns"], 12)
	assert.Len(t, table["rows"], 1+2)

	rec = do(t, engine, http.MethodGet, "/api/reports/inventory?format=xlsx", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsx.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inventory-report-")
	assert.NotZero(t, rec.Body.Len())

	rec = do(t, engine, http.MethodGet, "/api/reports/deliveries?format=pdf", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodGet, "/api/reports/deliveries?startDate=2026-05-03&endDate=2026-05-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	engine := newEngine(t, nil)
	rec := do(t, engine, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, engine, http.MethodGet, "/healthz", nil, map[string]string{requestIDHeader: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))

	down := newEngine(t, func(context.Context) error { return errors.New("mongo unreachable") })
	rec = do(t, down, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, engine, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
