package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository/memory"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository/mongodb"
	"github.com/chung140204/TKPM-BTL-sub000/internal/scheduler"
	"github.com/chung140204/TKPM-BTL-sub000/internal/server/handlers"
	"github.com/chung140204/TKPM-BTL-sub000/internal/server/router"
	inventorysvc "github.com/chung140204/TKPM-BTL-sub000/internal/service/inventory"
	notificationsvc "github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
	scopesvc "github.com/chung140204/TKPM-BTL-sub000/internal/service/scope"
	shoppingsvc "github.com/chung140204/TKPM-BTL-sub000/internal/service/shopping"
	sweepsvc "github.com/chung140204/TKPM-BTL-sub000/internal/service/sweep"
	"github.com/chung140204/TKPM-BTL-sub000/pkg/clients/mailer"
	"github.com/chung140204/TKPM-BTL-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	store, err := openStore(cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init repository", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close repository", zap.Error(err))
		}
	}()

	metrics := observability.NewMetrics()

	emailQueue := notificationsvc.NewEmailQueue(store, mailer.New(cfg.Mail, baseLogger.Named("mailer")), cfg.Email, metrics, baseLogger.Named("svc.email"))
	emailQueue.Start()
	defer emailQueue.Stop()

	resolver := scopesvc.NewResolver(store, baseLogger.Named("svc.scope"))
	notifier := notificationsvc.NewService(store, store, store, resolver, emailQueue, metrics, baseLogger.Named("svc.notification"))
	inventory := inventorysvc.NewService(store, store, store, store, notifier, metrics, baseLogger.Named("svc.inventory"))
	reconciler := shoppingsvc.NewReconciler(store, store, store, inventory, notifier, resolver, metrics, baseLogger.Named("svc.shopping"))
	jobs := sweepsvc.NewJobs(store, store, notifier, loc, metrics, baseLogger.Named("svc.sweep"))

	for _, svc := range []interface{ SetClock(func() time.Time) }{notifier, inventory, reconciler, jobs} {
		svc.SetClock(func() time.Time { return time.Now().In(loc) })
	}

	engine := router.New(router.Handlers{
		Users:         store,
		Inventory:     handlers.NewInventoryHandler(inventory, resolver, loc, baseLogger.Named("handlers.inventory")),
		Shopping:      handlers.NewShoppingHandler(reconciler, resolver, baseLogger.Named("handlers.shopping")),
		Notifications: handlers.NewNotificationHandler(notifier, jobs, baseLogger.Named("handlers.notifications")),
		Metrics:       metrics.Handler(),
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Scheduler, jobs, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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

func openStore(cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
