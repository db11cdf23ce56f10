package actuarylist

import (
	"context"
	"fmt"
	"time"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/config"
	"go-actuarylist-ingest/internal/dedup"
	"go-actuarylist-ingest/internal/scraper"

	goerrors "github.com/go-errors/errors"
	"go.uber.org/zap"
)

type ActuaryListScraper struct {
	cfg         *config.Config
	discoverer  *Discoverer
	extractor   *Extractor
	seen        dedup.Cache
	screenshots *browser.ScreenshotDebugger
	logger      *zap.Logger
	sleep       func(time.Duration)
}

func NewActuaryListScraper(cfg *config.Config, logger *zap.Logger) *ActuaryListScraper {
	return &ActuaryListScraper{
		cfg:        cfg,
		discoverer: NewDiscoverer(cfg.WaitTimeout, cfg.ScrollDelay, cfg.MaxScrolls, logger),
		extractor:  NewExtractor(logger),
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// WithSeenCache skips links recorded by earlier runs and records the ones scraped now.
func (s *ActuaryListScraper) WithSeenCache(c dedup.Cache) *ActuaryListScraper {
	s.seen = c
	return s
}

// WithScreenshots captures failed detail pages.
func (s *ActuaryListScraper) WithScreenshots(d *browser.ScreenshotDebugger) *ActuaryListScraper {
	s.screenshots = d
	return s
}

func (s *ActuaryListScraper) Name() string {
	return "ActuaryList"
}

// Scrape visits the listings page, then each discovered detail page one at a time. A failing
// detail page is logged and skipped. The only error returned is the context's, together with
// whatever was collected before cancellation.
func (s *ActuaryListScraper) Scrape(ctx context.Context, page browser.Page, limit int) ([]scraper.JobPosting, error) {
	s.logger.Info("opening listings page", zap.String("url", s.cfg.ListingsURL))
	if err := page.Navigate(ctx, s.cfg.ListingsURL); err != nil {
		s.logger.Error("could not open listings page", zap.String("url", s.cfg.ListingsURL), zap.Error(err))
	}

	links := s.unseen(ctx, s.discoverer.Discover(ctx, page, limit))

	jobs := make([]scraper.JobPosting, 0, len(links))
	scraped := make([]string, 0, len(links))
	for idx, link := range links {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run canceled", zap.Int("processed", idx), zap.Int("total", len(links)))
			s.remember(context.WithoutCancel(ctx), scraped)
			return jobs, err
		}

		s.logger.Info("opening detail page",
			zap.Int("index", idx+1), zap.Int("total", len(links)), zap.String("link", link))

		job, err := s.scrapeDetail(ctx, page, link)
		if err != nil {
			fields := []zap.Field{zap.String("link", link), zap.Error(err)}
			if ge, ok := err.(*goerrors.Error); ok {
				fields = append(fields, zap.String("stack", string(ge.Stack())))
			}
			s.logger.Error("error scraping link", fields...)
			s.capture(page, idx+1)
		} else {
			s.logger.Info("scraped job",
				zap.Int("index", idx+1),
				zap.String("title", job.Title),
				zap.String("company", job.Company),
				zap.String("location", job.Location),
				zap.String("posting_date", job.PostingDate.Format(time.DateOnly)),
				zap.String("job_type", string(job.JobType)),
				zap.Strings("tags", job.Tags))
			jobs = append(jobs, job)
			scraped = append(scraped, link)
		}

		//politeness pause, success or not
		s.sleep(s.cfg.PoliteDelay)
	}

	s.remember(ctx, scraped)
	s.logger.Info("done", zap.Int("collected", len(jobs)), zap.Int("links", len(links)))
	return jobs, nil
}

// scrapeDetail turns a panic anywhere in navigation or extraction into an error for this link.
func (s *ActuaryListScraper) scrapeDetail(ctx context.Context, page browser.Page, link string) (job scraper.JobPosting, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.Wrap(r, 2)
		}
	}()

	if err := page.Navigate(ctx, link); err != nil {
		return job, err
	}
	if err := page.WaitForElement(contentMarkerSelector, s.cfg.WaitTimeout); err != nil {
		//keep going, try to parse anyway
		s.logger.Debug("content marker not found", zap.String("link", link), zap.Error(err))
	}

	s.sleep(s.cfg.PaceDelay)

	job = s.extractor.Extract(page)
	job.SourceLink = link
	return job, nil
}

func (s *ActuaryListScraper) unseen(ctx context.Context, links []string) []string {
	if s.seen == nil {
		return links
	}
	out := make([]string, 0, len(links))
	for _, link := range links {
		if s.seen.IsSeen(ctx, link) {
			continue
		}
		out = append(out, link)
	}
	if skipped := len(links) - len(out); skipped > 0 {
		s.logger.Info("skipping links seen in earlier runs", zap.Int("skipped", skipped), zap.Int("remaining", len(out)))
	}
	return out
}

func (s *ActuaryListScraper) remember(ctx context.Context, links []string) {
	if s.seen == nil || len(links) == 0 {
		return
	}
	if err := s.seen.Add(ctx, links); err != nil {
		s.logger.Warn("failed to record seen links", zap.Int("count", len(links)), zap.Error(err))
	}
}

func (s *ActuaryListScraper) capture(page browser.Page, idx int) {
	if s.screenshots == nil {
		return
	}
	_, _ = s.screenshots.Capture(page, fmt.Sprintf("actuarylist-detail-%d", idx))
}
