package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	api "fleetrent-backend/internal/api/grpc"
	"fleetrent-backend/internal/api/grpc/interceptor"
	httpapi "fleetrent-backend/internal/api/http"
	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/database"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
	"fleetrent-backend/internal/repository/memory"
	"fleetrent-backend/internal/repository/postgres"
	"fleetrent-backend/internal/security"
	"fleetrent-backend/internal/service"

	"golang.org/x/time/rate"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Fleet Lifecycle Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var (
		store  repository.Store
		health func(ctx context.Context) error
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if cfg.ShouldMigrate() {
			if err := database.Migrate(cfg.GetDatabaseConnectionString()); err != nil {
				logger.Error("Failed to migrate database", "error", err)
				log.Fatalf("Failed to migrate database: %v", err)
			}
		}
		pg := postgres.NewStore(db)
		store, health = pg, pg.Ping
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
	)

	// Initialize Services
	settings := service.Settings{
		MaintenanceIntervalHours: cfg.Lifecycle.MaintenanceIntervalHours,
		HistoryPageSize:          cfg.Lifecycle.HistoryPageSize,
	}
	services := httpapi.Services{
		Equipment:   service.NewEquipmentService(store),
		Lifecycle:   service.NewLifecycleService(store, settings),
		Contracts:   service.NewContractService(store, settings),
		Ledger:      service.NewLedgerService(store, settings),
		Maintenance: service.NewMaintenanceService(store, settings),
		// read side only; the cronjob binary delivers alerts
		Alerts: service.NewAlertDispatcher(store, service.NewLogNotifier()),
	}

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Observability(),
			interceptor.NewAuthInterceptor(tokenManager).Unary(),
		),
	)
	api.RegisterLifecycleServiceServer(grpcServer, api.NewLifecycleHandler(
		services.Equipment,
		services.Lifecycle,
		services.Contracts,
		services.Ledger,
		services.Maintenance,
	))

	// Set up HTTP server
	limiter := httpapi.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(httpapi.NewHandler(services, health), tokenManager, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
	logger.Info("Server stopped")
}
