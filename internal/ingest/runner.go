package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-actuarylist-ingest/internal/config"
	"go-actuarylist-ingest/internal/events"
	"go-actuarylist-ingest/internal/scraper"

	goerrors "github.com/go-errors/errors"
	"go.uber.org/zap"
)

// Params are the per-run knobs exposed to callers.
type Params struct {
	Limit     int
	Headless  bool
	PaceDelay time.Duration
}

type Summary struct {
	Scraped  int `json:"scraped"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Notifier reports a finished run, and anything that stopped it, somewhere a human will see it.
type Notifier interface {
	SendSummary(ctx context.Context, s Summary) error
	SendError(ctx context.Context, err error) error
}

// ScraperFactory builds the site scraper for one run's settings.
type ScraperFactory func(cfg *config.Config) scraper.Scraper

// Runner drives one ingestion run: render, scrape, save, then fan out the results.
type Runner struct {
	cfg        *config.Config
	launch     Launcher
	newScraper ScraperFactory
	saver      *Saver
	publisher  events.Publisher
	notifier   Notifier
	resultsDir string
	logger     *zap.Logger
	now        func() time.Time
}

func NewRunner(cfg *config.Config, launch Launcher, newScraper ScraperFactory, saver *Saver, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		launch:     launch,
		newScraper: newScraper,
		saver:      saver,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *Runner) WithPublisher(p events.Publisher) *Runner {
	r.publisher = p
	return r
}

func (r *Runner) WithNotifier(n Notifier) *Runner {
	r.notifier = n
	return r
}

// WithResultsDir makes each run write its postings to dir/scrape-YYYY-MM-DD.json.
func (r *Runner) WithResultsDir(dir string) *Runner {
	r.resultsDir = dir
	return r
}

// Run never fails. Every problem is logged and shows up as smaller counts in the summary.
func (r *Runner) Run(ctx context.Context, p Params) Summary {
	runCfg := *r.cfg
	runCfg.Headless = p.Headless
	runCfg.PaceDelay = p.PaceDelay

	start := r.now()
	jobs := r.scrape(ctx, &runCfg, p.Limit)

	//save what was collected even if the run was interrupted
	saveCtx := context.WithoutCancel(ctx)
	result := r.saver.Save(saveCtx, jobs)
	if result.Err != nil {
		r.alert(saveCtx, fmt.Errorf("saving %d jobs failed, batch rolled back: %w", len(jobs), result.Err))
	}

	summary := Summary{Scraped: len(jobs), Inserted: result.Inserted, Skipped: result.Skipped}

	r.writeResults(jobs)
	r.publish(saveCtx, result)
	r.notify(saveCtx, summary)

	r.logger.Info("ingestion finished",
		zap.Int("scraped", summary.Scraped),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("took", r.now().Sub(start)))
	return summary
}

// scrape owns the browser session; it is closed on every way out, panics included.
func (r *Runner) scrape(ctx context.Context, cfg *config.Config, limit int) (jobs []scraper.JobPosting) {
	defer func() {
		if rec := recover(); rec != nil {
			err := goerrors.Wrap(rec, 2)
			r.logger.Error("scrape aborted", zap.Error(err), zap.String("stack", string(err.Stack())))
			r.alert(context.WithoutCancel(ctx), fmt.Errorf("scrape aborted: %w", err))
		}
	}()

	session, err := r.launch(ctx, cfg)
	if err != nil {
		r.logger.Error("could not start browser", zap.Error(err))
		r.alert(context.WithoutCancel(ctx), fmt.Errorf("could not start browser: %w", err))
		return nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("failed to close browser", zap.Error(err))
		}
	}()

	page, err := session.NewPage()
	if err != nil {
		r.logger.Error("could not open page", zap.Error(err))
		return nil
	}
	defer func() { _ = page.Close() }()

	s := r.newScraper(cfg)
	r.logger.Info("starting scraper", zap.String("scraper", s.Name()), zap.Int("limit", limit))
	jobs, err = s.Scrape(ctx, page, limit)
	if err != nil {
		r.logger.Warn("scrape interrupted", zap.String("scraper", s.Name()), zap.Int("collected", len(jobs)), zap.Error(err))
	}
	return jobs
}

func (r *Runner) publish(ctx context.Context, result SaveResult) {
	if r.publisher == nil || len(result.Stored) == 0 {
		return
	}
	if err := r.publisher.PublishJobs(ctx, result.Stored); err != nil {
		r.logger.Warn("failed to publish new jobs", zap.Error(err))
	}
}

func (r *Runner) notify(ctx context.Context, s Summary) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.SendSummary(ctx, s); err != nil {
		r.logger.Warn("failed to send run summary", zap.Error(err))
	}
}

func (r *Runner) alert(ctx context.Context, err error) {
	if r.notifier == nil {
		return
	}
	if sendErr := r.notifier.SendError(ctx, err); sendErr != nil {
		r.logger.Warn("failed to send error alert", zap.Error(sendErr))
	}
}

func (r *Runner) writeResults(jobs []scraper.JobPosting) {
	if r.resultsDir == "" {
		return
	}
	if len(jobs) == 0 {
		r.logger.Info("no jobs to write")
		return
	}

	if err := os.MkdirAll(r.resultsDir, 0755); err != nil {
		r.logger.Warn("failed to create results directory", zap.String("dir", r.resultsDir), zap.Error(err))
		return
	}

	filePath := filepath.Join(r.resultsDir, fmt.Sprintf("scrape-%s.json", r.now().Format(time.DateOnly)))
	data, err := json.MarshalIndent(jobs, "", " ")
	if err != nil {
		r.logger.Warn("failed to marshal jobs", zap.Error(err))
		return
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		r.logger.Warn("failed to write results file", zap.String("path", filePath), zap.Error(err))
		return
	}
	r.logger.Info("results saved", zap.String("path", filePath))
}
