package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ambergate/sellerops/internal/api"
	"github.com/ambergate/sellerops/internal/api/middleware"
	"github.com/ambergate/sellerops/internal/config"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/processor"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/service"
	"github.com/ambergate/sellerops/internal/spapi"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "sellerops-api",
	})
	logger.SetDefaultLogger(appLogger)

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	jobRepo := repository.NewReportJobRepository(db)
	listingRepo := repository.NewListingRepository(db)
	inventoryRepo := repository.NewFcInventoryRepository(db)
	locationRepo := repository.NewFcLocationRepository(db)
	feeRepo := repository.NewFeeRepository(db)

	// The API only reads jobs and requeues terminal ones; the requeue path
	// never touches the upstream API, so the orchestrator here gets a client
	// for the default region only.
	regionCfg, err := cfg.SpApi.Region("")
	if err != nil {
		appLogger.WithError(err).Fatal("No default SP-API region configured")
	}
	spClient := spapi.NewClient(&spapi.Config{
		Endpoint:     regionCfg.Endpoint,
		TokenURL:     cfg.SpApi.TokenURL,
		ClientID:     cfg.SpApi.ClientID,
		ClientSecret: cfg.SpApi.ClientSecret,
		RefreshToken: regionCfg.RefreshToken,
	})

	registry := processor.NewRegistry(map[string]processor.Processor{
		"marketplace_listings": processor.NewListingsProcessor(listingRepo, nil, appLogger),
		"us_fc_inventory":      processor.NewFcInventoryProcessor(inventoryRepo, locationRepo, appLogger),
	})

	orchestrator := service.NewOrchestrator(jobRepo, spClient, registry, nil, nil, service.OrchestratorConfig{
		DefaultRegion:  cfg.SpApi.DefaultRegion,
		BackoffBase:    cfg.Reports.BackoffBase,
		BackoffCap:     cfg.Reports.BackoffCap,
		StuckThreshold: cfg.Reports.StuckThreshold,
	}, appLogger)

	// Setup router
	router := api.SetupRouter(api.Deps{
		Jobs:         jobRepo,
		Listings:     listingRepo,
		Inventory:    inventoryRepo,
		Locations:    locationRepo,
		Fees:         feeRepo,
		Orchestrator: orchestrator,
		Logger:       appLogger,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}, cfg.Server.Mode)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
