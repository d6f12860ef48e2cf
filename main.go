package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pharmapos/m/internal/api"
	"pharmapos/m/internal/backend"
	"pharmapos/m/internal/config"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/logging"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/sale"
	"pharmapos/m/internal/scheduler"
	"pharmapos/m/internal/seed"
	"pharmapos/m/internal/session"
	"pharmapos/m/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("unable to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.App.Mode)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	db := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
	defer db.Close()

	migrations.Run(db)
	st := store.New(db, cfg.App.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed.LoadProducts(ctx, st, cfg.Database.SeedCSV, logger)
	if err := seed.EnsureAdmin(ctx, st, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("unable to create administrator", zap.Error(err))
	}

	deps := api.Deps{
		Store:           st,
		Logger:          logger,
		Secret:          cfg.App.Secret,
		AllowedOrigins:  cfg.AllowedOrigins(),
		ExpiryAlertDays: cfg.Scheduler.ExpiryAlertDays,
	}
	var orders sale.OrderAPI = st
	if cfg.Backend.URL != "" {
		remote := backend.New(cfg.Backend.URL, cfg.BackendTimeout(), logger)
		deps.Catalog = remote
		deps.Clients = remote
		orders = remote
		logger.Info("sales use the remote backend", zap.String("url", cfg.Backend.URL))
	}

	deps.Sessions = session.NewRegistry(orders, logger)
	deps.Metrics = metrics.New(deps.Sessions.Len)

	jobs := scheduler.New(scheduler.Config{
		ExpiryAlertDays: cfg.Scheduler.ExpiryAlertDays,
		SessionIdle:     cfg.SessionIdle(),
	}, st, deps.Sessions, deps.Metrics, logger)
	if err := jobs.Start(); err != nil {
		logger.Fatal("unable to start scheduler", zap.Error(err))
	}
	defer jobs.Stop()

	handler := api.New(deps)
	server := &http.Server{
		Addr:              ":" + cfg.App.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("pharmacy POS server starting", zap.String("port", cfg.App.HTTPPort), zap.String("driver", cfg.Database.Driver))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
