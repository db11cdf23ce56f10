package actuarylist

import (
	"strings"
	"time"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/dates"
	"go-actuarylist-ingest/internal/scraper"

	"go.uber.org/zap"
)

// strategy is one way of reading a field off a page. ok is false when it found nothing usable.
type strategy func(page browser.Page) (value string, ok bool)

// Extractor reads a JobPosting off a rendered detail page. A field that no strategy can read
// falls back to its default instead of failing the page.
type Extractor struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Extract fills every field except SourceLink.
func (e *Extractor) Extract(page browser.Page) scraper.JobPosting {
	titleStrategies := append(e.textsOf(titleSelectors), e.pageTitle)
	locationStrategies := append(e.textsOf(locationSelectors), e.firstMatching(smallTextSelector, looksLikeLocation))

	tags := scraper.UniqueTags(e.texts(page, tagSelector))

	return scraper.JobPosting{
		Title:       firstOf(page, titleStrategies...),
		Company:     firstOf(page, e.textsOf(companySelectors)...),
		Location:    firstOf(page, locationStrategies...),
		PostingDate: e.postingDate(page),
		JobType:     e.jobType(page, tags),
		Tags:        tags,
	}
}

// firstOf runs strategies left to right and returns the first hit, or "".
func firstOf(page browser.Page, strategies ...strategy) string {
	for _, s := range strategies {
		if v, ok := s(page); ok {
			return v
		}
	}
	return ""
}

func (e *Extractor) textsOf(selectors []string) []strategy {
	out := make([]strategy, 0, len(selectors))
	for _, sel := range selectors {
		out = append(out, e.textOf(sel))
	}
	return out
}

// textOf reads the first element matching selector.
func (e *Extractor) textOf(selector string) strategy {
	return func(page browser.Page) (string, bool) {
		el, found, err := page.FindElement(selector)
		if err != nil {
			e.logger.Debug("selector failed", zap.String("selector", selector), zap.Error(err))
			return "", false
		}
		if !found {
			return "", false
		}
		return e.elementText(el, selector)
	}
}

// firstMatching reads the first element matching selector whose text satisfies accept.
func (e *Extractor) firstMatching(selector string, accept func(string) bool) strategy {
	return func(page browser.Page) (string, bool) {
		for _, text := range e.texts(page, selector) {
			if accept(text) {
				return text, true
			}
		}
		return "", false
	}
}

func (e *Extractor) pageTitle(page browser.Page) (string, bool) {
	title, err := page.Title()
	if err != nil {
		e.logger.Debug("page title unavailable", zap.Error(err))
		return "", false
	}
	title = strings.TrimSpace(title)
	return title, title != ""
}

// texts returns the non-empty trimmed text of every element matching selector, in order.
func (e *Extractor) texts(page browser.Page, selector string) []string {
	els, err := page.FindElements(selector)
	if err != nil {
		e.logger.Debug("selector failed", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		if text, ok := e.elementText(el, selector); ok {
			out = append(out, text)
		}
	}
	return out
}

func (e *Extractor) elementText(el browser.Element, selector string) (string, bool) {
	text, err := el.Text()
	if err != nil {
		e.logger.Debug("element text unavailable", zap.String("selector", selector), zap.Error(err))
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (e *Extractor) postingDate(page browser.Page) time.Time {
	now := e.now()
	raw, ok := e.firstMatching(postedSelector, looksLikePostingDate)(page)
	if !ok {
		return dates.Day(now)
	}
	return dates.Resolve(raw, now)
}

func (e *Extractor) jobType(page browser.Page, tags []string) scraper.JobType {
	if jt, ok := jobTypeFromTags(tags); ok {
		return jt
	}
	body, _ := e.textOf(bodySelector)(page)
	return jobTypeFromBody(body)
}

// jobTypeFromTags checks each tag for intern, part, contract (in that order); the first tag that
// matches anything decides.
func jobTypeFromTags(tags []string) (scraper.JobType, bool) {
	for _, t := range tags {
		lower := normalizeText(t)
		switch {
		case strings.Contains(lower, "intern"):
			return scraper.Internship, true
		case strings.Contains(lower, "part"):
			return scraper.PartTime, true
		case strings.Contains(lower, "contract"):
			return scraper.Contract, true
		}
	}
	return "", false
}

func jobTypeFromBody(body string) scraper.JobType {
	lower := normalizeText(body)
	switch {
	case strings.Contains(lower, "part-time"):
		return scraper.PartTime
	case strings.Contains(lower, "contract"):
		return scraper.Contract
	case strings.Contains(lower, "intern"):
		return scraper.Internship
	}
	return scraper.FullTime
}
