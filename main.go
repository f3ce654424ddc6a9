package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dealmungchi/saleharvester/config"
	"github.com/dealmungchi/saleharvester/helpers"
	"github.com/dealmungchi/saleharvester/internal"
	"github.com/dealmungchi/saleharvester/internal/api"
	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/internal/monitoring"
	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/services/cache"
	"github.com/dealmungchi/saleharvester/services/exporter"
	"github.com/dealmungchi/saleharvester/services/publisher"
	"github.com/dealmungchi/saleharvester/services/store"
	"github.com/dealmungchi/saleharvester/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := run(); err != nil {
		logger.Default.Fatal().Err(err).Msg("Harvester stopped")
	}
}

// run wires and runs the harvester until the worker exits or a signal arrives.
// Every resource it opens is closed before it returns.
func run() error {
	log := logger.ForComponent("main")

	// Load and validate configuration
	cfg := config.LoadConfig()
	if cfg.CategoriesFile != "" {
		if err := cfg.LoadCategoriesFile(cfg.CategoriesFile); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("backend", cfg.RenderBackend).
		Int("categories", len(cfg.CategoryURLs)).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	page, err := openPage(cfg)
	if err != nil {
		return err
	}
	defer page.Close()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()
	services.Deps.Recorder = metrics

	w := worker.NewWorker(
		ctx,
		buildPipeline(cfg, page, metrics),
		cfg.CategoryURLs,
		services.Deps,
		cfg.CrawlInterval,
	)

	var server *api.Server
	if cfg.MetricsAddr != "" {
		server = api.NewServer(cfg.MetricsAddr, reg, w)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting sale harvester")
		workerDone <- w.Start()
	}()

	// Wait for shutdown signal or worker exit
	var runErr error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case runErr = <-workerDone:
		if runErr != nil {
			log.Error().Err(runErr).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		server.Shutdown(shutdownCtx)
	}
	return runErr
}

// openPage starts the configured rendering backend
func openPage(cfg *config.Config) (browser.Page, error) {
	if cfg.RenderBackend == "static" {
		return browser.NewStaticPage(cfg.Locale), nil
	}
	session, err := browser.NewChromeSession(browser.ChromeOptions{
		Headless:    cfg.Headless,
		Locale:      cfg.Locale,
		Timezone:    cfg.Timezone,
		Geolocation: cfg.Geolocation,
		UserAgent:   helpers.RandomUserAgent(),
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// buildPipeline wires the per-category components over page.
// cfg must already be validated.
func buildPipeline(cfg *config.Config, page browser.Page, recorder crawler.Recorder) *crawler.Pipeline {
	log := logger.ForComponent("pipeline")

	navigator := crawler.NewNavigator(page, crawler.NavigatorConfig{
		Attempts:        cfg.NavAttempts,
		NavTimeout:      cfg.NavTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		RetryDelay:      cfg.RetryDelay,
		ConsentPatterns: cfg.ConsentButtonPatterns,
		GatePattern:     regexp.MustCompile(cfg.GatePattern),
	}, log)
	loader := crawler.NewLoader(page, cfg.ItemSelector, cfg.SettleDelay, log)
	extractor := crawler.NewExtractor(crawler.ExtractorConfig{
		MinSalePrice:       cfg.MinSalePrice,
		MinDiscountPercent: cfg.MinDiscountPercent,
	}, log)

	return crawler.NewPipeline(
		page,
		navigator,
		loader,
		extractor,
		crawler.NewDiagnostics(cfg.DebugDir, page, log),
		recorder,
		crawler.PipelineConfig{
			TargetCount:  cfg.MaxItemsPerCategory,
			MaxSteps:     cfg.ScrollSteps,
			ItemSelector: cfg.ItemSelector,
		},
		log,
	)
}

// Services holds all the initialized services
type Services struct {
	Deps    internal.Dependencies
	closers []func() error
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			logger.LogError("cleanup", err, "Failed to close service")
		}
	}
}

// initializeServices initializes the optional cache, stream and stores
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Gate cooldown: memcached when configured, process memory otherwise
	var cacheService cache.CacheService = cache.NewMemoryCache()
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, gate cooldown kept in memory: %v", cfg.MemcacheAddr, err)
		} else {
			cacheService = mc
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}
	services.Deps.Cooldown = cache.NewCooldown(cacheService, cfg.GateCooldown)

	if cfg.RedisAddr != "" {
		// records harvested before a shutdown signal are still published
		redisPublisher := publisher.NewRedisPublisher(context.WithoutCancel(ctx), cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, 0)
		if err := redisPublisher.Ping(); err != nil {
			redisPublisher.Close()
			return nil, err
		}
		services.Deps.Publisher = redisPublisher
		services.closers = append(services.closers, redisPublisher.Close)

		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.SQLitePath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			services.Cleanup()
			return nil, err
		}
		services.Deps.Sinks = append(services.Deps.Sinks, sqliteStore)
		services.closers = append(services.closers, sqliteStore.Close)
	}

	services.Deps.Sinks = append(services.Deps.Sinks, exporter.NewJSONExporter(cfg.OutputPath))

	return services, nil
}
