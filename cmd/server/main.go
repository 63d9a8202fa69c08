package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yishak-cs/bundle-miner/internal/database"
	"github.com/yishak-cs/bundle-miner/internal/handlers"
	"github.com/yishak-cs/bundle-miner/internal/services"
	"github.com/yishak-cs/bundle-miner/internal/store"
	"github.com/yishak-cs/bundle-miner/pkg/helper"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg, err := helper.LoadAppConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	// The graph is optional; without it analyses rely on uploaded history only.
	var (
		history   services.HistorySource
		publisher services.RulePublisher
		graph     handlers.HealthChecker
	)
	if cfg.Neo4j.Enabled() {
		neo4jClient, err := database.NewNeo4jClient(cfg.Neo4j, logg)
		if err != nil {
			logg.Fatal("Failed to connect to Neo4j", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := neo4jClient.Close(ctx); err != nil {
				logg.Warn("Error closing Neo4j connection", "error", err)
			}
		}()

		graphStore := database.NewGraphStore(neo4jClient, logg)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := graphStore.EnsureSchema(ctx); err != nil {
			logg.Warn("Failed to ensure graph schema", "error", err)
		}
		if status, err := graphStore.ImportStatus(ctx); err == nil {
			logg.Info("Graph import status", "counts", status)
		}
		cancel()

		history, graph = graphStore, neo4jClient
		if cfg.PublishRules {
			publisher = graphStore
		}
	} else {
		logg.Info("NEO4J_URI not set, running without graph history")
	}

	results := store.NewResultStore(cfg.ResultStoreCapacity)
	restoreResults(logg, results, cfg.ResultSnapshotPath)

	// Initialize services
	bundlingService := services.NewBundlingService(logg, services.Config{
		Miner:      cfg.Miner,
		Publish:    cfg.PublishRules,
		HistoryTag: cfg.HistorySource,
	}, history, publisher)
	recommendationService := services.NewRecommendationService(logg)

	// Initialize API handlers
	apiHandler := handlers.NewAPIHandler(logg, handlers.Config{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		AnalysisTimeout: cfg.AnalysisTimeout,
	}, bundlingService, recommendationService, results, graph)

	// Setup Gin router
	router := gin.Default()
	router.Use(handlers.CORS(), handlers.RequestMetrics())

	// Setup API routes
	apiHandler.SetupRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, http.StatusNotFound, "not_found",
			fmt.Errorf("endpoint %s %s not found", c.Request.Method, c.Request.URL.Path))
	})

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := runServer(srv, logg, quit); err != nil {
		logg.Error("Server failed", "error", err)
	}

	saveResults(logg, results, cfg.ResultSnapshotPath)
	logg.Info("Server exited properly")
}

// runServer serves until stop fires or the listener fails, then shuts down gracefully.
// A listen failure is returned instead of exiting so callers still run their cleanup.
func runServer(srv *http.Server, logg *logger.Logger, stop <-chan os.Signal) error {
	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var failure error
	select {
	case <-stop:
		logg.Info("Shutting down server...")
	case failure = <-serveErr:
	}

	// Gracefully shutdown with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("Server forced to shutdown", "error", err)
	}
	return failure
}

func restoreResults(logg *logger.Logger, results *store.ResultStore, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logg.Warn("Failed to open result snapshot", "path", path, "error", err)
		return
	}
	defer f.Close()

	n, err := results.Restore(f)
	if err != nil {
		logg.Warn("Failed to restore result snapshot", "path", path, "error", err)
		return
	}
	logg.Info("Restored analysis results", "count", n, "path", path)
}

func saveResults(logg *logger.Logger, results *store.ResultStore, path string) {
	if path == "" || results.Len() == 0 {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logg.Warn("Failed to create result snapshot", "path", path, "error", err)
		return
	}
	defer f.Close()

	if err := results.Snapshot(f); err != nil {
		logg.Warn("Failed to write result snapshot", "path", path, "error", err)
		return
	}
	logg.Info("Saved analysis results", "count", results.Len(), "path", path)
}
