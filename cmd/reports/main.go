package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ambergate/sellerops/internal/adsapi"
	"github.com/ambergate/sellerops/internal/archive"
	"github.com/ambergate/sellerops/internal/config"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/processor"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/service"
	"github.com/ambergate/sellerops/internal/spapi"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "sellerops-reports",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	command := flag.String("cmd", "poll", "Command to run: queue, poll, ads-queue, ads-poll, fee-sync")
	provider := flag.String("provider", "sp_api_seller", "Upstream provider")
	processorKey := flag.String("processor", "", "Report job family (marketplace_listings, us_fc_inventory)")
	region := flag.String("region", "", "SP-API region; empty uses the configured default")
	marketplaces := flag.String("marketplaces", "", "Comma-separated marketplace IDs; empty means account-wide")
	reportType := flag.String("report-type", "", "Upstream report type")
	reportOptions := flag.String("report-options", "", "Comma-separated key=value report options")
	startDate := flag.String("start", "", "Data window start (RFC3339 or YYYY-MM-DD)")
	endDate := flag.String("end", "", "Data window end (RFC3339 or YYYY-MM-DD)")
	externalReportID := flag.String("external-report-id", "", "Seed an already-created upstream report")
	externalDocumentID := flag.String("external-document-id", "", "Seed an already-known upstream document")
	pollAfter := flag.Int("poll-after", 60, "Seconds before the first poll of a queued job")
	limit := flag.Int("limit", 0, "Maximum jobs per poll; 0 uses the configured default")
	profileID := flag.String("profile", "", "Ads profile ID (ads commands)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Repositories
	jobRepo := repository.NewReportJobRepository(db)
	listingRepo := repository.NewListingRepository(db)
	inventoryRepo := repository.NewFcInventoryRepository(db)
	locationRepo := repository.NewFcLocationRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	adsReportRepo := repository.NewAdsReportRepository(db)
	adSpendRepo := repository.NewAdSpendRepository(db)

	// Regional SP-API client
	regionCfg, err := cfg.SpApi.Region(*region)
	if err != nil {
		appLogger.WithError(err).Fatal("Unknown region")
	}
	spClient := spapi.NewClient(&spapi.Config{
		Endpoint:     regionCfg.Endpoint,
		TokenURL:     cfg.SpApi.TokenURL,
		ClientID:     cfg.SpApi.ClientID,
		ClientSecret: cfg.SpApi.ClientSecret,
		RefreshToken: regionCfg.RefreshToken,
	})

	// Optional debug capture archive
	var archiver service.DebugArchiver
	if cfg.Archive.Enabled {
		store, err := archive.NewStore(&archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize debug archive")
		}
		archiver = store
	}

	// Processor registry, fixed at startup
	registry := processor.NewRegistry(map[string]processor.Processor{
		"marketplace_listings": processor.NewListingsProcessor(listingRepo, nil, appLogger),
		"us_fc_inventory":      processor.NewFcInventoryProcessor(inventoryRepo, locationRepo, appLogger),
	})

	orchestratorCfg := service.OrchestratorConfig{
		Provider:       *provider,
		DefaultRegion:  cfg.SpApi.DefaultRegion,
		BackoffBase:    cfg.Reports.BackoffBase,
		BackoffCap:     cfg.Reports.BackoffCap,
		StuckThreshold: cfg.Reports.StuckThreshold,
	}
	orchestrator := service.NewOrchestrator(jobRepo, spClient, registry, nil, archiver, orchestratorCfg, appLogger)

	adsClient := adsapi.NewClient(&adsapi.Config{
		Endpoint:     cfg.Ads.Endpoint,
		TokenURL:     cfg.Ads.TokenURL,
		ClientID:     cfg.Ads.ClientID,
		ClientSecret: cfg.Ads.ClientSecret,
		RefreshToken: cfg.Ads.RefreshToken,
	})
	adSpend := service.NewAdSpendService(adsReportRepo, adSpendRepo, adsClient, orchestratorCfg, appLogger)
	feeSync := service.NewFeeSyncService(feeRepo, spClient, appLogger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	pollLimit := *limit
	if pollLimit <= 0 {
		pollLimit = cfg.Reports.PollLimit
	}

	switch *command {
	case "queue":
		if *provider != "sp_api_seller" {
			appLogger.WithField("provider", *provider).Fatal("Unrecognized provider")
		}
		result, err := orchestrator.Queue(ctx, service.QueueParams{
			ReportType:         *reportType,
			Marketplaces:       splitCSV(*marketplaces),
			Region:             *region,
			ReportOptions:      parseOptions(*reportOptions),
			Processor:          *processorKey,
			Start:              parseTime(*startDate, appLogger),
			End:                parseTime(*endDate, appLogger),
			ExternalReportID:   *externalReportID,
			ExternalDocumentID: *externalDocumentID,
			PollAfter:          time.Duration(*pollAfter) * time.Second,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Queue failed")
		}
		appLogger.WithFields(logger.Fields{
			"created":  result.Created,
			"existing": result.Existing,
			"failed":   result.Failed,
		}).Info("Queue completed")

	case "poll":
		if *provider != "sp_api_seller" {
			appLogger.WithField("provider", *provider).Fatal("Unrecognized provider")
		}
		result, err := orchestrator.Poll(ctx, pollLimit, repository.PollFilter{
			Processor:     *processorKey,
			Region:        *region,
			MarketplaceID: firstCSV(*marketplaces),
			ReportType:    *reportType,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Poll failed")
		}
		appLogger.WithFields(logger.Fields{
			"checked":     result.Checked,
			"processed":   result.Processed,
			"failed":      result.Failed,
			"outstanding": result.Outstanding,
		}).Info("Poll completed")

	case "ads-queue":
		start, end := *startDate, *endDate
		if start == "" || end == "" {
			// Default to yesterday's spend
			yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
			start, end = yesterday, yesterday
		}
		req, created, err := adSpend.QueueSpendReport(ctx, service.QueueSpendParams{
			ProfileID: *profileID,
			Region:    *region,
			StartDate: start,
			EndDate:   end,
			PollAfter: time.Duration(*pollAfter) * time.Second,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Ads queue failed")
		}
		appLogger.WithFields(logger.Fields{
			"request_id": req.ID,
			"created":    created,
		}).Info("Ads queue completed")

	case "ads-poll":
		result, err := adSpend.PollSpendReports(ctx, pollLimit)
		if err != nil {
			appLogger.WithError(err).Fatal("Ads poll failed")
		}
		appLogger.WithFields(logger.Fields{
			"checked":     result.Checked,
			"processed":   result.Processed,
			"failed":      result.Failed,
			"outstanding": result.Outstanding,
		}).Info("Ads poll completed")

	case "fee-sync":
		start := parseTime(*startDate, appLogger)
		end := parseTime(*endDate, appLogger)
		if start == nil || end == nil {
			appLogger.Fatal("fee-sync requires -start and -end")
		}
		stats, err := feeSync.Sync(ctx, *start, *end)
		if err != nil {
			appLogger.WithError(err).Fatal("Fee sync failed")
		}
		appLogger.WithFields(logger.Fields{
			"fetched":    stats.Fetched,
			"ingested":   stats.Ingested,
			"duplicates": stats.Duplicates,
		}).Info("Fee sync completed")

	default:
		appLogger.WithField("cmd", *command).Fatal("Unknown command")
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstCSV(raw string) string {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func parseOptions(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	options := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		if k, v, ok := strings.Cut(strings.TrimSpace(pair), "="); ok {
			options[k] = v
		}
	}
	return options
}

func parseTime(raw string, log *logger.Logger) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	log.WithField("value", raw).Fatal("Unparseable time")
	return nil
}
