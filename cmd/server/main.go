package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/config"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/repository/cache"
	"github.com/mamadbah2/uniformstock/internal/repository/memory"
	"github.com/mamadbah2/uniformstock/internal/repository/mongodb"
	"github.com/mamadbah2/uniformstock/internal/repository/sheets"
	"github.com/mamadbah2/uniformstock/internal/scheduler"
	"github.com/mamadbah2/uniformstock/internal/server/handlers"
	"github.com/mamadbah2/uniformstock/internal/server/router"
	"github.com/mamadbah2/uniformstock/internal/service/barcode"
	deliverysvc "github.com/mamadbah2/uniformstock/internal/service/delivery"
	"github.com/mamadbah2/uniformstock/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/uniformstock/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/uniformstock/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/uniformstock/pkg/clients/whatsapp"
	"github.com/mamadbah2/uniformstock/pkg/logger"
)

// memorySeedUser is the account deliveries can be recorded under with the memory driver.
var memorySeedUser = models.User{ID: "admin", Username: "admin", Role: models.RoleAdmin}

type stores struct {
	inventory  repository.InventoryRepository
	deliveries repository.DeliveryRepository
	users      repository.UserRepository
	health     func(ctx context.Context) error
	close      func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	loc := cfg.Location()

	allocator := barcode.NewAllocator(st.inventory, baseLogger.Named("svc.barcode"))
	ledgerSvc := ledger.NewService(st.inventory, allocator, baseLogger.Named("svc.ledger"))
	deliverySvc := deliverysvc.NewService(st.deliveries, st.inventory, st.users, baseLogger.Named("svc.delivery"))

	reportOpts := []reportingsvc.Option{
		reportingsvc.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
		reportingsvc.WithLocation(loc),
	}
	if cfg.Redis.Addr != "" && cfg.Reporting.CacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			baseLogger.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			reportOpts = append(reportOpts, reportingsvc.WithSnapshotCache(cache.NewRedisSnapshotCache(rdb), cfg.Reporting.CacheTTL))
			baseLogger.Info("dashboard cache enabled", zap.Duration("ttl", cfg.Reporting.CacheTTL))
		}
	}
	reportingSvc := reportingsvc.NewService(st.inventory, deliverySvc, baseLogger.Named("svc.reporting"), reportOpts...)

	sched := scheduler.NewScheduler(loc, baseLogger.Named("scheduler"))
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		if err := sched.ScheduleSheetsSync(cfg.Reporting.SheetsSyncCron, reportingSvc, sheetsRepo); err != nil {
			baseLogger.Fatal("failed to schedule sheets sync", zap.Error(err))
		}
	} else {
		baseLogger.Warn("google sheets not configured, export sync disabled")
	}
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		notifier := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, reportingSvc, baseLogger.Named("svc.whatsapp"))
		if err := sched.ScheduleLowStockAlert(cfg.Reporting.LowStockAlertCron, notifier); err != nil {
			baseLogger.Fatal("failed to schedule low stock alert", zap.Error(err))
		}
	} else {
		baseLogger.Warn("whatsapp not configured, low stock alerts disabled")
	}
	sched.Start()
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Inventory:  handlers.NewInventoryHandler(ledgerSvc, cfg.Inventory.LowStockThreshold, baseLogger.Named("handlers.inventory")),
		Deliveries: handlers.NewDeliveryHandler(deliverySvc, loc, baseLogger.Named("handlers.deliveries")),
		Reports:    handlers.NewReportHandler(reportingSvc, loc, baseLogger.Named("handlers.reports")),
		Health:     st.health,
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, base *zap.Logger) (*stores, error) {
	if cfg.Store.Driver == config.DriverMemory {
		base.Warn("using in-memory store, data is lost on restart", zap.String("seed_user", memorySeedUser.ID))
		return &stores{
			inventory:  memory.NewInventoryRepository(),
			deliveries: memory.NewDeliveryRepository(),
			users:      memory.NewUserRepository(memorySeedUser),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := mongodb.NewStore(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, base.Named("repo.mongodb"))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return &stores{
		inventory:  store.Inventory(),
		deliveries: store.Deliveries(),
		users:      store.Users(),
		health:     store.Ping,
		close:      store.Close,
	}, nil
}
