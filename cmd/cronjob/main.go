package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/database"
	"fleetrent-backend/internal/jobs"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository/postgres"
	"fleetrent-backend/internal/scheduler"
	"fleetrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'scan-maintenance-due', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("The cronjob runner needs the postgres driver, got %q", cfg.Database.Driver)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Fleet Cronjob Runner...", "log_level", cfg.Log.Level, "notifier", cfg.Notifier.Type)

	ctx := context.Background()

	// Initialize Database
	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)

	// Initialize Services
	notifier, err := buildNotifier(ctx, cfg.Notifier)
	if err != nil {
		logger.Error("Failed to initialize notifier", "error", err)
		log.Fatalf("Failed to initialize notifier: %v", err)
	}
	settings := service.Settings{
		MaintenanceIntervalHours: cfg.Lifecycle.MaintenanceIntervalHours,
		HistoryPageSize:          cfg.Lifecycle.HistoryPageSize,
	}
	jobServices := &jobs.Services{
		Maintenance: service.NewMaintenanceService(store, settings),
		Contracts:   service.NewContractService(store, settings),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, service.NewAlertDispatcher(store, notifier), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case "scan-maintenance-due":
		return jobRunner.ScanMaintenanceDue()
	case "schedule-expired-collections":
		return jobRunner.ScheduleExpiredCollections()
	case "all":
		return jobRunner.RunAll()
	default:
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - scan-maintenance-due\n")
		fmt.Printf("  - schedule-expired-collections\n")
		fmt.Printf("  - all\n")
		return fmt.Errorf("unknown job name %q", jobName)
	}
}

// buildNotifier selects the alert channels named by notifier.type.
func buildNotifier(ctx context.Context, cfg config.NotifierConfig) (service.AlertNotifier, error) {
	email := func() service.AlertNotifier {
		sg := cfg.SendGrid
		return service.NewEmailNotifier(sg.APIKey, sg.FromName, sg.FromEmail, sg.To)
	}
	switch cfg.Type {
	case "sendgrid":
		return email(), nil
	case "firebase":
		return service.NewPushNotifier(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.Topic)
	case "all":
		push, err := service.NewPushNotifier(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.Topic)
		if err != nil {
			return nil, err
		}
		return service.NewMultiNotifier(service.NewLogNotifier(), email(), push), nil
	default:
		return service.NewLogNotifier(), nil
	}
}
