package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jmorrell/tyrescraper/config"
	"jmorrell/tyrescraper/internal/browser"
	"jmorrell/tyrescraper/internal/scraper"
	"jmorrell/tyrescraper/logger"
	"jmorrell/tyrescraper/services/store"
	"jmorrell/tyrescraper/services/worker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("scrapers", cfg.Scrapers).
		Int("sizes", len(cfg.TyreSizes)).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	metrics := scraper.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics)
	}

	scrapers := createScrapers(&cfg, services, metrics)
	if len(scrapers) == 0 {
		log.Fatal().Msg("No scrapers were created")
	}

	// Run the worker in a goroutine so shutdown signals interrupt the crawl
	w := worker.NewWorker(ctx, scrapers, cfg.TyreSizes)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- w.Run()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store   store.Store
	Browser browser.Browser
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Browser != nil {
		s.Browser.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes the store and, when a browser-driven scraper
// is enabled, the browser runtime.
func initializeServices(cfg *config.Config) (*Services, error) {
	services := &Services{}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	services.Store = st
	logger.Info("Opened observation store at %s", cfg.DBPath)

	if cfg.ScraperEnabled("dexel") {
		b, err := browser.Launch(cfg.Headless, cfg.NavTimeout)
		if err != nil {
			st.Close()
			return nil, err
		}
		services.Browser = b
	}

	return services, nil
}

// createScrapers builds the enabled site engines.
func createScrapers(cfg *config.Config, services *Services, metrics *scraper.Metrics) []scraper.Scraper {
	var scrapers []scraper.Scraper

	if cfg.ScraperEnabled("dexel") {
		scrapers = append(scrapers, scraper.NewDexelScraper(
			services.Browser,
			services.Store,
			scraper.DexelConfig{
				URL:            cfg.DexelURL,
				DropdownSettle: cfg.DropdownSettle,
				BranchSettle:   cfg.BranchSettle,
			},
			metrics,
		))
	}

	if cfg.ScraperEnabled("national") {
		fetcher := scraper.NewRateLimitedFetcher(cfg.FetchInterval, nil, metrics)
		scrapers = append(scrapers, scraper.NewNationalScraper(
			fetcher,
			services.Store,
			scraper.NationalConfig{
				BranchesURL:    cfg.NationalBranchesURL,
				SearchURL:      cfg.NationalSearchURL,
				PostcodesPath:  cfg.PostcodesPath,
				ReusePostcodes: cfg.ReusePostcodes,
			},
			metrics,
		))
	}

	return scrapers
}

// serveMetrics exposes the crawl counters for scraping.
func serveMetrics(addr string, metrics *scraper.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped: %v", err)
	}
}
