package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/monitoring"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/notifications"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/scheduler"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/sources"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	logrus.Info("Starting Tacticus Codes Bot")
	logMonitoringRules(cfg)

	// Optional off-host ledger backup
	var backup monitoring.LedgerBackup
	var blobBackup *storage.BlobBackup
	if cfg.StorageAccount != "" {
		blobBackup, err = storage.NewBlobBackup(cfg.StorageAccount, cfg.StorageContainer, "notified_codes.txt")
		if err != nil {
			logrus.Errorf("Ledger backup disabled, failed to initialize blob storage: %v", err)
		} else {
			backup = blobBackup
			restoreLedgerIfMissing(cfg, blobBackup)
		}
	}

	// The ledger must load before the first cycle; re-notifying every code
	// ever seen is worse than refusing to start.
	ledger, err := storage.OpenFileLedger(cfg.Application.CodesFile)
	if err != nil {
		logrus.Fatalf("Failed to load ledger: %v", err)
	}

	notificationService := notifications.NewService(cfg)

	fetcher := sources.NewFallbackFetcher(
		sources.NewRedditSource(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent),
		sources.NewPublicSource(cfg.Reddit.UserAgent),
	)

	monitoringService := monitoring.NewService(cfg, fetcher, ledger, notificationService, backup)

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// First cycle runs immediately; the schedule covers the rest.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := monitoringService.RunCycle(ctx); err != nil {
			logrus.Errorf("Initial cycle failed: %v", err)
		}
	}()

	// HTTP server for health checks, metrics and manual triggering
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(monitoringService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(monitoringService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Application.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Application.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Tacticus Codes Bot stopped")
}

func setupLogging(cfg *config.Config) {
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Application.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Application.LogFile == "" {
		return
	}
	logFile, err := os.OpenFile(cfg.Application.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.Warnf("Cannot open log file %s, logging to console only: %v", cfg.Application.LogFile, err)
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
}

func logMonitoringRules(cfg *config.Config) {
	var names []string
	for subreddit := range cfg.Reddit.Subreddits {
		names = append(names, subreddit)
	}
	logrus.Infof("Monitoring subreddits: r/%s", strings.Join(names, ", r/"))

	if len(cfg.Filtering.TrustedUsers) > 0 {
		logrus.Infof("Trusted users: %s", strings.Join(cfg.Filtering.TrustedUsers, ", "))
	} else {
		logrus.Info("Trusted users: none")
	}

	for subreddit, rule := range cfg.Reddit.Subreddits {
		if len(rule.AllowedFlairs) > 0 {
			logrus.Infof("r/%s - allowed flairs: %v", subreddit, rule.AllowedFlairs)
		} else {
			logrus.Infof("r/%s - all flairs allowed", subreddit)
		}
	}
}

// restoreLedgerIfMissing pulls the ledger snapshot from blob storage when no
// local ledger file exists, so a fresh host does not re-notify everything.
func restoreLedgerIfMissing(cfg *config.Config, backup *storage.BlobBackup) {
	if _, err := os.Stat(cfg.Application.CodesFile); err == nil || !os.IsNotExist(err) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := backup.Restore(ctx)
	if err != nil {
		logrus.Warnf("No ledger backup restored: %v", err)
		return
	}
	if err := os.WriteFile(cfg.Application.CodesFile, data, 0o644); err != nil {
		logrus.Errorf("Failed to write restored ledger %s: %v", cfg.Application.CodesFile, err)
		return
	}
	logrus.Infof("Restored ledger (%d bytes) from blob backup", len(data))
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(monitoringService.GetMetrics()))
	}
}

func triggerHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := monitoringService.RunCycle(ctx); err != nil {
				logrus.Errorf("Manual cycle trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Cycle triggered successfully"}`))
	}
}
