package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/delivery"
	"github.com/mamadbah2/uniformstock/internal/service/reporting"
)

const jobTimeout = 2 * time.Minute

// TableSource builds the export tables published to the spreadsheet.
type TableSource interface {
	FlattenInventoryForExport(ctx context.Context, filter reporting.InventoryExportFilter) (*models.Table, error)
	FlattenDeliveriesForExport(ctx context.Context, filter repository.DeliveryFilter) (*models.Table, error)
}

// TableSink receives published tables.
type TableSink interface {
	PublishTable(ctx context.Context, table *models.Table) error
}

// LowStockNotifier sends the low stock alert.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context) (bool, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time

	tables TableSource
	sink   TableSink
	alerts LowStockNotifier
}

// NewScheduler creates a new scheduler instance running in loc.
func NewScheduler(loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleSheetsSync publishes the inventory table and this month's deliveries on the cron schedule.
func (s *Scheduler) ScheduleSheetsSync(spec string, tables TableSource, sink TableSink) error {
	s.tables, s.sink = tables, sink
	if _, err := s.cron.AddFunc(spec, s.runSheetsSync); err != nil {
		return fmt.Errorf("schedule sheets sync %q: %w", spec, err)
	}
	s.logger.Info("sheets sync scheduled", zap.String("spec", spec))
	return nil
}

// ScheduleLowStockAlert runs the low stock notifier on the cron schedule.
func (s *Scheduler) ScheduleLowStockAlert(spec string, alerts LowStockNotifier) error {
	s.alerts = alerts
	if _, err := s.cron.AddFunc(spec, s.runLowStockAlert); err != nil {
		return fmt.Errorf("schedule low stock alert %q: %w", spec, err)
	}
	s.logger.Info("low stock alert scheduled", zap.String("spec", spec))
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSheetsSync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.syncSheets(ctx); err != nil {
		s.logger.Error("sheets sync failed", zap.Error(err))
		return
	}
	s.logger.Info("sheets sync completed")
}

func (s *Scheduler) syncSheets(ctx context.Context) error {
	inventory, err := s.tables.FlattenInventoryForExport(ctx, reporting.InventoryExportFilter{})
	if err != nil {
		return fmt.Errorf("build inventory table: %w", err)
	}
	if err := s.sink.PublishTable(ctx, inventory); err != nil {
		return fmt.Errorf("publish inventory table: %w", err)
	}

	from, to := delivery.MonthRange(s.now().In(s.location))
	deliveries, err := s.tables.FlattenDeliveriesForExport(ctx, repository.DeliveryFilter{From: &from, To: &to})
	if err != nil {
		return fmt.Errorf("build delivery table: %w", err)
	}
	if err := s.sink.PublishTable(ctx, deliveries); err != nil {
		return fmt.Errorf("publish delivery table: %w", err)
	}
	return nil
}

func (s *Scheduler) runLowStockAlert() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.alerts.NotifyLowStock(ctx)
	if err != nil {
		s.logger.Error("low stock alert failed", zap.Error(err))
		return
	}
	s.logger.Info("low stock check completed", zap.Bool("sent", sent))
}
