package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georankers/visibility-agent/internal/api"
	"github.com/georankers/visibility-agent/internal/config"
	"github.com/georankers/visibility-agent/internal/notifications"
	"github.com/georankers/visibility-agent/internal/scheduler"
	"github.com/georankers/visibility-agent/internal/session"
	"github.com/georankers/visibility-agent/internal/storage"
	"github.com/georankers/visibility-agent/internal/watcher"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting GeoRankers Visibility Agent")

	// Open the persistent session store
	sess, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		logrus.Fatalf("Failed to open session store: %v", err)
	}
	defer sess.Close()

	// Initialize archive storage: Azure when configured, local otherwise
	var archive storage.Interface
	if cfg.StorageAccount != "" {
		archive, err = storage.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive storage: %v", err)
		}
	} else {
		archive, err = storage.NewLocalArchive(cfg.ArchiveDir)
		if err != nil {
			logrus.Fatalf("Failed to initialize local archive: %v", err)
		}
		logrus.Infof("Using local archive at %s", cfg.ArchiveDir)
	}

	// Initialize the API gateway client
	gateway := api.NewClient(cfg.BaseURL, sess)

	// Initialize notification services
	notificationService := notifications.NewService(cfg)

	// Initialize the watcher service
	watcherService := watcher.NewService(cfg, gateway, sess, archive, notificationService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run the watch loop in the background
	go func() {
		if err := watcherService.Run(ctx); err != nil && err != context.Canceled {
			logrus.Errorf("Watcher stopped: %v", err)
		}
	}()

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, watcherService)

	// Start scheduler
	if err := schedulerService.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and report access
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(watcherService)).Methods("GET")

	// Latest derived report
	router.HandleFunc("/report", reportHandler(watcherService)).Methods("GET")

	// Manual re-analysis trigger endpoint
	router.HandleFunc("/trigger", triggerHandler(ctx, watcherService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	cancel()

	// Create a deadline for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(watcherService *watcher.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := watcherService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func reportHandler(watcherService *watcher.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := watcherService.LatestReport()
		w.Header().Set("Content-Type", "application/json")
		if report == nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"no completed analysis yet"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(report)
	}
}

func triggerHandler(ctx context.Context, watcherService *watcher.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := watcherService.TriggerReanalysis(ctx); err != nil {
				logrus.Errorf("Manual re-analysis trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Re-analysis triggered successfully"}`))
	}
}
