package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/delivery"
)

const queryDateLayout = "2006-01-02"

// DeliveryService is the delivery recorder as seen by the HTTP layer.
type DeliveryService interface {
	RecordDelivery(ctx context.Context, req delivery.RecordDeliveryRequest) (*models.DeliveryRecord, error)
	ListDeliveries(ctx context.Context, filter repository.DeliveryFilter) ([]models.DeliveryView, error)
}

// DeliveryHandler exposes delivery recording and history over HTTP.
type DeliveryHandler struct {
	svc      DeliveryService
	location *time.Location
	logger   *zap.Logger
}

// NewDeliveryHandler constructs the HTTP handler adapter. Query dates are read in loc.
func NewDeliveryHandler(svc DeliveryService, loc *time.Location, logger *zap.Logger) *DeliveryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &DeliveryHandler{svc: svc, location: loc, logger: logger}
}

// Create records a delivery on behalf of the user named in the X-User-ID header.
func (h *DeliveryHandler) Create(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing " + UserIDHeader + " header"})
		return
	}

	var req delivery.RecordDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	req.DeliveredBy = userID

	record, err := h.svc.RecordDelivery(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// List answers the delivery history filtered by date range, customer and limit.
func (h *DeliveryHandler) List(c *gin.Context) {
	filter, err := deliveryFilterFromQuery(c, h.location)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	views, err := h.svc.ListDeliveries(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
}

// deliveryFilterFromQuery reads startDate/endDate (inclusive calendar dates), customer and limit.
func deliveryFilterFromQuery(c *gin.Context, loc *time.Location) (repository.DeliveryFilter, error) {
	var filter repository.DeliveryFilter

	start, err := dateQuery(c, "startDate", loc)
	if err != nil {
		return filter, err
	}
	end, err := dateQuery(c, "endDate", loc)
	if err != nil {
		return filter, err
	}

	switch {
	case start != nil && end != nil:
		from, to := delivery.DayRange(*start, *end, loc)
		filter.From, filter.To = &from, &to
	case start != nil:
		filter.From = start
	case end != nil:
		_, to := delivery.DayRange(*end, *end, loc)
		filter.To = &to
	}

	filter.CustomerName = c.Query("customer")
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		return filter, err
	}
	if limit < 0 {
		return filter, errors.New("limit must not be negative")
	}
	filter.Limit = limit
	return filter, nil
}

func dateQuery(c *gin.Context, key string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(queryDateLayout, raw, loc)
	if err != nil {
		return nil, errors.New(key + " must be formatted YYYY-MM-DD")
	}
	return &t, nil
}
