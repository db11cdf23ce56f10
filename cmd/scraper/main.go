package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/config"
	"go-actuarylist-ingest/internal/database"
	"go-actuarylist-ingest/internal/dedup"
	"go-actuarylist-ingest/internal/events"
	"go-actuarylist-ingest/internal/ingest"
	"go-actuarylist-ingest/internal/reporter"
	"go-actuarylist-ingest/internal/scraper"
	"go-actuarylist-ingest/internal/scraper/actuarylist"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	logDir        = "logs"
	screenshotDir = "logs/screenshots"
	runTimeout    = 30 * time.Minute
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "path to the YAML config file")
	limit := fs.Int("limit", -1, "maximum number of detail pages to scrape (default from config, 100)")
	headless := fs.Bool("headless", true, "run the browser without a window (default from config)")
	delay := fs.Float64("delay", -1, "seconds to wait on each detail page before extracting (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", zap.String("path", *configPath), zap.Error(err))
		return 1
	}

	params := ingest.Params{Limit: cfg.Limit, Headless: cfg.Headless, PaceDelay: cfg.PaceDelay}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			params.Headless = *headless
		}
	})
	if *limit >= 0 {
		params.Limit = *limit
	}
	if *delay >= 0 {
		cfg.SetPaceDelaySeconds(*delay)
		params.PaceDelay = cfg.PaceDelay
	}

	//one run per host at a time
	if err := os.MkdirAll(filepath.Dir(cfg.LockPath), 0755); err != nil {
		logger.Error("failed to create lock directory", zap.Error(err))
		return 1
	}
	lock := flock.New(cfg.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire run lock", zap.String("path", cfg.LockPath), zap.Error(err))
		return 1
	}
	if !locked {
		logger.Error("another ingestion run is in progress", zap.String("path", cfg.LockPath))
		return 1
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	store, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return 1
	}
	defer func() { _ = store.Close() }()

	seen := newSeenCache(ctx, cfg, logger)
	if seen != nil {
		defer func() { _ = seen.Close() }()
	}

	var screenshots *browser.ScreenshotDebugger
	if cfg.DebugScreenshots {
		screenshots = browser.NewScreenshotDebugger(screenshotDir, logger)
	}

	newScraper := func(runCfg *config.Config) scraper.Scraper {
		s := actuarylist.NewActuaryListScraper(runCfg, logger).WithScreenshots(screenshots)
		if seen != nil {
			s.WithSeenCache(seen)
		}
		return s
	}

	runner := ingest.NewRunner(cfg, ingest.NewLauncher(logger), newScraper, ingest.NewSaver(store, logger), logger).
		WithResultsDir(logDir)

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("NATS unavailable, new jobs will not be published", zap.Error(err))
		} else {
			defer pub.Close()
			runner.WithPublisher(pub)
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID, cfg.ListingsURL)
		if err != nil {
			logger.Warn("telegram unavailable, summary and alerts will not be sent", zap.Error(err))
		} else {
			runner.WithNotifier(tg)
		}
	}

	logger.Info("starting ingestion",
		zap.Int("limit", params.Limit),
		zap.Bool("headless", params.Headless),
		zap.Duration("pace_delay", params.PaceDelay),
		zap.String("renderer", cfg.Renderer))

	summary := runner.Run(ctx, params)

	out, _ := json.Marshal(summary)
	fmt.Println(string(out))
	return 0
}

// newSeenCache returns nil when skipping is off. Redis wins over the file cache when configured.
func newSeenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) dedup.Cache {
	if !cfg.SkipSeen {
		return nil
	}
	if cfg.RedisAddr != "" {
		rc, err := dedup.NewRedisCache(ctx, dedup.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SeenTTL,
		}, logger)
		if err == nil {
			logger.Info("using redis seen-link cache", zap.String("addr", cfg.RedisAddr))
			return rc
		}
		logger.Warn("redis unavailable, falling back to file cache", zap.Error(err))
	}
	return dedup.NewJobCache(cfg.CachePath, cfg.SeenTTL, logger)
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_FORMAT") == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
