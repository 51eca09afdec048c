package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imoscraper/config"
	"imoscraper/models"
	"imoscraper/scraper/imovirtual"
	"imoscraper/services"
	"imoscraper/storage"
	"imoscraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Verbose)

	logger.Info("=== Imovirtual crawler starting ===")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("Config — locations: %v | %s | pages/location: %d | delays: %d–%dms",
		cfg.Locations, cfg.Transaction, cfg.PagesPerLocation, cfg.MinDelayMs, cfg.MaxDelayMs)

	// Ctrl-C stops the run between pages; accumulated records are still
	// persisted below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is up: docker compose up -d")
		os.Exit(1)
	}
	defer pgWriter.Close()

	browser, err := imovirtual.NewBrowser(cfg.ChromeBin, time.Duration(cfg.NavTimeoutSec)*time.Second, logger)
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		os.Exit(1)
	}
	defer browser.Close()

	fetcher := imovirtual.NewFetcher(browser, imovirtual.NewEvasionCoordinator(logger), logger)
	crawler := imovirtual.NewCrawler(fetcher, services.NewNormalizer(), cfg, logger)

	jobs := make([]models.CrawlJob, 0, len(cfg.Locations))
	for _, location := range cfg.Locations {
		jobs = append(jobs, models.CrawlJob{
			Location:    location,
			Transaction: models.TransactionKind(cfg.Transaction),
			PageLimit:   cfg.PagesPerLocation,
		})
	}

	outcomes, runReason, err := crawler.Run(ctx, jobs)
	if err != nil {
		logger.Error("Crawl failed: %v", err)
		os.Exit(1)
	}

	var records []*models.Listing
	for _, outcome := range outcomes {
		records = append(records, outcome.Records...)
	}
	logger.Info("Run finished (%s): %d records across %d locations", runReason, len(records), len(outcomes))

	if len(records) == 0 {
		logger.Warn("No records collected. Exiting.")
		return
	}

	if err := csvWriter.Persist(records); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Records exported to %s", cfg.CSVOutputPath)
	}

	if err := pgWriter.Persist(records); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
	} else {
		logger.Info("Records stored in PostgreSQL (table: listings)")
	}

	dbListings, err := pgWriter.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch listings from DB for insights: %v", err)
		dbListings = records
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(dbListings))
}
