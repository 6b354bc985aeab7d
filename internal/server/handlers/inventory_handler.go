package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/ledger"
)

// InventoryService is the stock ledger as seen by the HTTP layer.
type InventoryService interface {
	AddStock(ctx context.Context, req ledger.AddStockRequest) (*ledger.AddStockResult, error)
	UpdateVariant(ctx context.Context, id string, upd models.VariantUpdate) (*models.InventoryVariant, error)
	SetQuantity(ctx context.Context, id string, quantity int) (*models.InventoryVariant, error)
	DeleteVariant(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.InventoryVariant, error)
	FindByBarcode(ctx context.Context, code string) (*models.InventoryVariant, error)
	List(ctx context.Context, filter repository.InventoryFilter, page, pageSize int) ([]models.InventoryVariant, int64, error)
}

// InventoryHandler exposes the stock ledger over HTTP.
type InventoryHandler struct {
	svc               InventoryService
	lowStockThreshold int
	logger            *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(svc InventoryService, lowStockThreshold int, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, lowStockThreshold: lowStockThreshold, logger: logger}
}

type addStockResponse struct {
	Message string                 `json:"message"`
	Result  *ledger.AddStockResult `json:"result"`
	Error   string                 `json:"error,omitempty"`
}

// Create adds stock for several sizes of one item. A partial failure answers 207 with
// the sizes that were applied.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req ledger.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	result, err := h.svc.AddStock(c.Request.Context(), req)
	var partial *ledger.PartialFailureError
	switch {
	case errors.As(err, &partial):
		h.logger.Warn("stock addition partially applied", zap.Error(err))
		c.JSON(http.StatusMultiStatus, addStockResponse{Message: partial.Result.Message(), Result: partial.Result, Error: partial.Err.Error()})
		return
	case err != nil:
		writeError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if len(result.Created) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, addStockResponse{Message: result.Message(), Result: result})
}

type pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type listResponse struct {
	Items      []models.InventoryVariant `json:"items"`
	Pagination pagination                `json:"pagination"`
}

// List answers one page of variants filtered by category, search text and low stock.
func (h *InventoryHandler) List(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	pageSize, err := intQuery(c, "limit", ledger.DefaultPageSize)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = ledger.DefaultPageSize
	}
	if pageSize > ledger.MaxPageSize {
		pageSize = ledger.MaxPageSize
	}

	filter := repository.InventoryFilter{
		Category:   models.Category(c.Query("category")),
		SearchText: c.Query("search"),
	}
	if c.Query("lowStock") == "true" {
		threshold := h.lowStockThreshold
		filter.MaxQuantity = &threshold
	}

	items, total, err := h.svc.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Items: items,
		Pagination: pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}

func (h *InventoryHandler) Get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *InventoryHandler) ByBarcode(c *gin.Context) {
	v, err := h.svc.FindByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Update overwrites every mutable field of a variant.
func (h *InventoryHandler) Update(c *gin.Context) {
	var upd models.VariantUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	v, err := h.svc.UpdateVariant(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// SetQuantity corrects the stock count of a variant.
func (h *InventoryHandler) SetQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	if req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	v, err := h.svc.SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteVariant(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
