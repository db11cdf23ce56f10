// Renders one detail page and prints what the extractor reads off it.
// Handy when the site markup changes: go run ./cmd/test/browser -url https://www.actuarylist.com/actuarial-jobs/...

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/config"
	"go-actuarylist-ingest/internal/ingest"
	"go-actuarylist-ingest/internal/scraper/actuarylist"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	target := flag.String("url", "", "detail page to render")
	renderer := flag.String("renderer", "", "playwright or static (default from config)")
	shot := flag.Bool("screenshot", false, "save a screenshot under logs/screenshots")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *target == "" {
		logger.Fatal("-url is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *renderer != "" {
		cfg.Renderer = *renderer
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session, err := ingest.NewLauncher(logger)(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to start renderer", zap.Error(err))
	}
	defer func() { _ = session.Close() }()

	page, err := session.NewPage()
	if err != nil {
		logger.Fatal("failed to create page", zap.Error(err))
	}
	defer func() { _ = page.Close() }()

	if err := page.Navigate(ctx, *target); err != nil {
		logger.Fatal("failed to navigate", zap.String("url", *target), zap.Error(err))
	}

	title, _ := page.Title()
	logger.Info("page loaded", zap.String("title", title), zap.String("url", page.URL()))

	if *shot {
		path, _ := browser.NewScreenshotDebugger("logs/screenshots", logger).Capture(page, "single-page")
		if path == "" {
			logger.Info("no screenshot taken", zap.String("renderer", cfg.Renderer))
		}
	}

	job := actuarylist.NewExtractor(logger).Extract(page)
	job.SourceLink = *target

	out, _ := json.MarshalIndent(job, "", "  ")
	fmt.Println(string(out))
}
