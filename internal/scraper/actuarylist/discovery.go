package actuarylist

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go-actuarylist-ingest/internal/browser"

	"go.uber.org/zap"
)

// Discoverer scrolls the listings page until the number of job links stops growing, then collects
// the links.
type Discoverer struct {
	waitTimeout time.Duration
	scrollDelay time.Duration
	maxScrolls  int
	logger      *zap.Logger
	sleep       func(time.Duration)
}

func NewDiscoverer(waitTimeout, scrollDelay time.Duration, maxScrolls int, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		waitTimeout: waitTimeout,
		scrollDelay: scrollDelay,
		maxScrolls:  maxScrolls,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// Discover returns up to limit unique detail links in page order. It never fails: a missing
// container or a broken scroll only means fewer links.
func (d *Discoverer) Discover(ctx context.Context, page browser.Page, limit int) []string {
	if limit <= 0 {
		return nil
	}

	if err := page.WaitForElement(jobsContainerSelector, d.waitTimeout); err != nil {
		d.logger.Warn("jobs-list container not found, the page may have changed; continuing anyway",
			zap.String("url", page.URL()), zap.Error(err))
	} else {
		d.logger.Info("jobs-list container visible")
	}

	prev := 0
	for i := 0; i < d.maxScrolls; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := page.ExecuteScript(revealScript); err != nil {
			d.logger.Warn("scroll failed", zap.Int("scroll", i+1), zap.Error(err))
		}
		d.sleep(d.scrollDelay)

		anchors, err := page.FindElements(jobLinkSelector)
		if err != nil {
			d.logger.Warn("counting job links failed", zap.Int("scroll", i+1), zap.Error(err))
		}
		count := len(anchors)
		d.logger.Info("scrolled listings", zap.Int("scroll", i+1), zap.Int("anchors", count))
		if count == prev {
			break
		}
		prev = count
	}

	links := d.collect(page, limit)
	d.logger.Info("collected job detail links", zap.Int("count", len(links)), zap.Int("limit", limit))
	return links
}

func (d *Discoverer) collect(page browser.Page, limit int) []string {
	anchors, err := page.FindElements(jobLinkSelector)
	if err != nil {
		d.logger.Warn("collecting job links failed", zap.Error(err))
		return nil
	}

	base, _ := url.Parse(page.URL())
	links := make([]string, 0, min(limit, len(anchors)))
	seen := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		href, ok, err := a.Attribute("href")
		if err != nil || !ok {
			continue
		}
		link, err := absolute(base, href)
		if err != nil {
			d.logger.Debug("skipping malformed link", zap.String("href", href), zap.Error(err))
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
		if len(links) >= limit {
			break
		}
	}
	return links
}

// absolute resolves href against the listings page, the way a browser reports anchor.href.
func absolute(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil || ref.IsAbs() {
		return href, nil
	}
	return base.ResolveReference(ref).String(), nil
}
