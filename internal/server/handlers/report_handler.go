package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/export/xlsx"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/reporting"
)

// ReportService is the report aggregator as seen by the HTTP layer.
type ReportService interface {
	DashboardSnapshot(ctx context.Context) models.DashboardSnapshot
	FlattenInventoryForExport(ctx context.Context, filter reporting.InventoryExportFilter) (*models.Table, error)
	FlattenDeliveriesForExport(ctx context.Context, filter repository.DeliveryFilter) (*models.Table, error)
}

// ReportHandler serves the dashboard and the export datasets.
type ReportHandler struct {
	svc      ReportService
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{svc: svc, location: loc, logger: logger, now: time.Now}
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.DashboardSnapshot(c.Request.Context()))
}

// Inventory answers the inventory export as JSON, or as a workbook with ?format=xlsx.
func (h *ReportHandler) Inventory(c *gin.Context) {
	table, err := h.svc.FlattenInventoryForExport(c.Request.Context(), reporting.InventoryExportFilter{
		Category:     models.Category(c.Query("category")),
		SearchText:   c.Query("search"),
		LowStockOnly: c.Query("lowStock") == "true",
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.render(c, table, "inventory-report")
}

// Deliveries answers the delivery export as JSON, or as a workbook with ?format=xlsx.
func (h *ReportHandler) Deliveries(c *gin.Context) {
	filter, err := deliveryFilterFromQuery(c, h.location)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	table, err := h.svc.FlattenDeliveriesForExport(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.render(c, table, "delivery-report")
}

func (h *ReportHandler) render(c *gin.Context, table *models.Table, basename string) {
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, table)
	case "xlsx":
		var buf bytes.Buffer
		if err := xlsx.Write(&buf, table); err != nil {
			writeError(c, h.logger, err)
			return
		}
		filename := fmt.Sprintf("%s-%s.xlsx", basename, h.now().In(h.location).Format(queryDateLayout))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, xlsx.ContentType, buf.Bytes())
	default:
		badRequest(c, "format must be json or xlsx")
	}
}
