package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tracking-sentinel/internal/core/cache"
	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/core/database"
	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/core/scheduler"
	"tracking-sentinel/internal/core/server"
	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	anomalysvc "tracking-sentinel/internal/features/anomalies/service"
	claimadapters "tracking-sentinel/internal/features/claims/adapters"
	claimsvc "tracking-sentinel/internal/features/claims/service"
	diradapters "tracking-sentinel/internal/features/directory/adapters"
	notifyadapters "tracking-sentinel/internal/features/notify/adapters"
	reportsvc "tracking-sentinel/internal/features/reports/service"
	runadapters "tracking-sentinel/internal/features/runs/adapters"
	runhandler "tracking-sentinel/internal/features/runs/handler"
	runsvc "tracking-sentinel/internal/features/runs/service"
	shipadapters "tracking-sentinel/internal/features/shipments/adapters"
	shiphandler "tracking-sentinel/internal/features/shipments/handler"
	trackadapters "tracking-sentinel/internal/features/tracking/adapters"
)

// @title Tracking Sentinel API
// @version 1.0
// @description Daily shipment reconciliation and anomaly detection service.
// @contact.name API Support
// @contact.email support@trackingsentinel.com
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx := context.Background()
	loc := cfg.Location()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.Migrate(pool); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to connect to cache", zap.Error(err))
	}
	defer redisCache.Close()

	ledgerClient, err := shipadapters.NewLedgerClient(ctx, cfg.Ledger)
	if err != nil {
		l.Fatal("Failed to build ledger client", zap.Error(err))
	}
	ledger := shipadapters.NewLedgerAdapter(ledgerClient, cfg.Ledger.Table)

	store := shipadapters.NewPostgresStore(pool)
	clients := shipadapters.NewPostgresClients(pool)
	claimRepo := claimadapters.NewPostgresRepository(pool)
	runRepo := runadapters.NewPostgresRepository(pool)

	tracker := trackadapters.NewFedExAdapter(cfg.FedEx)
	directory := diradapters.NewOdooAdapter(cfg.Odoo)
	notifier := notifyadapters.NewAgentAdapter(cfg.Agent)

	detector := anomalysvc.NewDetector(loc)
	registrar := claimsvc.NewRegistrar(claimRepo, notifier, cfg.AdminWhatsApp)
	textReports := reportsvc.NewTextReportGenerator(loc)
	excelReports := reportsvc.NewExcelGenerator(cfg.ReportsDir, loc)

	orchestrator := runsvc.NewOrchestrator(runsvc.Deps{
		Source:    ledger,
		Store:     store,
		Clients:   clients,
		Tracker:   tracker,
		Directory: directory,
		Notifier:  notifier,
		Registrar: registrar,
		Detector:  detector,
		Runs:      runRepo,
		Cache:     redisCache,
		Text:      textReports,
		Excel:     excelReports,
		Thresholds: anomalies.Thresholds{
			TransitDays:         cfg.Detection.TransitDays,
			CustomsDays:         cfg.Detection.CustomsDays,
			DeliveryAttemptDays: cfg.Detection.DeliveryAttemptDays,
			LabelNoMovementDays: cfg.Detection.LabelNoMovementDays,
		},
		AdminPhone: cfg.AdminWhatsApp,
		Location:   loc,
	})

	sched := scheduler.New(loc)
	err = sched.ScheduleDaily(cfg.RunHour, cfg.RunMinute, "daily_reconciliation", func() {
		if _, err := orchestrator.RunDaily(context.Background()); err != nil {
			l.Error("Scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		l.Fatal("Failed to schedule daily run", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(cfg)
	runhandler.NewHandler(orchestrator, runRepo, store, ledger, claimRepo, pool, redisCache).RegisterRoutes(srv.App)
	shiphandler.NewHandler(store).RegisterRoutes(srv.App)

	go func() {
		if err := srv.Run(); err != nil {
			l.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down")
	if err := srv.Shutdown(); err != nil {
		l.Error("Failed to stop server", zap.Error(err))
	}
}
