package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP adapters mounted under /api.
type Handlers struct {
	Inventory  *handlers.InventoryHandler
	Deliveries *handlers.DeliveryHandler
	Reports    *handlers.ReportHandler
	// Health, when set, backs /healthz with a storage ping.
	Health func(ctx context.Context) error
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")

	inventory := api.Group("/inventory")
	inventory.POST("", h.Inventory.Create)
	inventory.GET("", h.Inventory.List)
	inventory.GET("/barcode/:barcode", h.Inventory.ByBarcode)
	inventory.GET("/:id", h.Inventory.Get)
	inventory.PUT("/:id", h.Inventory.Update)
	inventory.PATCH("/:id/quantity", h.Inventory.SetQuantity)
	inventory.DELETE("/:id", h.Inventory.Delete)

	deliveries := api.Group("/deliveries")
	deliveries.POST("", h.Deliveries.Create)
	deliveries.GET("", h.Deliveries.List)

	reports := api.Group("/reports")
	reports.GET("/dashboard", h.Reports.Dashboard)
	reports.GET("/inventory", h.Reports.Inventory)
	reports.GET("/deliveries", h.Reports.Deliveries)

	r.GET("/healthz", healthHandler(h.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("router initialized")
	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
