package reporting

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/metrics"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/delivery"
)

const (
	dashboardListSize = 5
	snapshotCacheKey  = "dashboard:snapshot"
)

// DeliverySource is the read side of the delivery recorder.
type DeliverySource interface {
	ListDeliveries(ctx context.Context, filter repository.DeliveryFilter) ([]models.DeliveryView, error)
	CountInRange(ctx context.Context, start, end time.Time) (int64, error)
}

// SnapshotCache stores dashboard snapshots for a short time.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*models.DashboardSnapshot, bool, error)
	Set(ctx context.Context, key string, snapshot models.DashboardSnapshot, ttl time.Duration) error
}

// Service composes dashboard statistics and export tables. It never mutates state.
type Service struct {
	inventory  repository.InventoryRepository
	deliveries DeliverySource
	cache      SnapshotCache
	cacheTTL   time.Duration
	threshold  int
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLowStockThreshold overrides the inclusive upper bound of the low stock band.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) { s.threshold = threshold }
}

// WithLocation sets the calendar used for "today" and "this month" and for export dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithSnapshotCache caches dashboard snapshots for ttl.
func WithSnapshotCache(cache SnapshotCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// NewService wires a new reporting service instance.
func NewService(inventory repository.InventoryRepository, deliveries DeliverySource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		inventory:  inventory,
		deliveries: deliveries,
		threshold:  models.DefaultLowStockThreshold,
		location:   time.Local,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LowStockThreshold returns the configured low stock bound.
func (s *Service) LowStockThreshold() int {
	return s.threshold
}

// DashboardSnapshot gathers the dashboard statistics. Sub-queries run concurrently; one
// that fails leaves its fields at their zero value and is listed in Degraded. The
// snapshot itself never fails.
func (s *Service) DashboardSnapshot(ctx context.Context) models.DashboardSnapshot {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, snapshotCacheKey)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if ok {
			return *cached
		}
	}

	started := time.Now()
	now := s.now().In(s.location)
	snap := models.DashboardSnapshot{
		RecentDeliveries:  []models.DeliveryView{},
		LowStockList:      []models.InventoryVariant{},
		CategoryBreakdown: []models.CategoryStock{},
		GeneratedAt:       now,
	}

	var mu sync.Mutex
	degrade := func(field string, err error) {
		metrics.DashboardDegraded.WithLabelValues(field).Inc()
		s.logger.Warn("dashboard sub-query failed", zap.String("field", field), zap.Error(err))
		mu.Lock()
		snap.Degraded = append(snap.Degraded, field)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		n, err := s.inventory.CountVariants(ctx)
		if err != nil {
			degrade("totalItems", err)
			return nil
		}
		snap.TotalItems = n
		return nil
	})
	g.Go(func() error {
		n, err := s.inventory.SumQuantity(ctx)
		if err != nil {
			degrade("totalStock", err)
			return nil
		}
		snap.TotalStock = n
		return nil
	})
	g.Go(func() error {
		out, low, err := s.inventory.CountByQuantityBand(ctx, s.threshold)
		if err != nil {
			degrade("lowStockCount", err)
			degrade("outOfStockCount", err)
			return nil
		}
		snap.OutOfStockCount, snap.LowStockCount = out, low
		return nil
	})
	g.Go(func() error {
		start, end := delivery.TodayRange(now)
		n, err := s.deliveries.CountInRange(ctx, start, end)
		if err != nil {
			degrade("todayDeliveryCount", err)
			return nil
		}
		snap.TodayDeliveryCount = n
		return nil
	})
	g.Go(func() error {
		start, end := delivery.MonthRange(now)
		n, err := s.deliveries.CountInRange(ctx, start, end)
		if err != nil {
			degrade("thisMonthDeliveryCount", err)
			return nil
		}
		snap.ThisMonthDeliveryCount = n
		return nil
	})
	g.Go(func() error {
		views, err := s.deliveries.ListDeliveries(ctx, repository.DeliveryFilter{Limit: dashboardListSize})
		if err != nil {
			degrade("recentDeliveries", err)
			return nil
		}
		snap.RecentDeliveries = views
		return nil
	})
	g.Go(func() error {
		low, err := s.inventory.ListLowStock(ctx, s.threshold, dashboardListSize)
		if err != nil {
			degrade("lowStockList", err)
			return nil
		}
		if low != nil {
			snap.LowStockList = low
		}
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.inventory.SumByCategory(ctx)
		if err != nil {
			degrade("categoryBreakdown", err)
			return nil
		}
		if breakdown != nil {
			snap.CategoryBreakdown = breakdown
		}
		return nil
	})
	_ = g.Wait()

	sort.Strings(snap.Degraded)
	metrics.ReportDuration.WithLabelValues("dashboard").Observe(time.Since(started).Seconds())

	if s.cache != nil && len(snap.Degraded) == 0 {
		if err := s.cache.Set(ctx, snapshotCacheKey, snap, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return snap
}
