// Canonical job record shared by every site scraper

package scraper

import (
	"context"
	"time"

	"go-actuarylist-ingest/internal/browser"
)

// JobType is the employment type inferred for a posting.
type JobType string

const (
	FullTime   JobType = "Full-time"
	PartTime   JobType = "Part-time"
	Contract   JobType = "Contract"
	Internship JobType = "Internship"
)

// JobPosting is one extracted detail page. PostingDate is a date at midnight UTC.
type JobPosting struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	PostingDate time.Time `json:"posting_date"`
	JobType     JobType   `json:"job_type"`
	Tags        []string  `json:"tags"`
	SourceLink  string    `json:"link"`
}

// Scraper defines the interface that all site scrapers must implement
type Scraper interface {
	//Scrape discovers up to limit detail pages and extracts one posting per page
	Scrape(ctx context.Context, page browser.Page, limit int) ([]JobPosting, error)

	//Name is the site name
	Name() string
}

// UniqueTags drops empty entries and repeats, keeping first-seen order. Matching is exact.
func UniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
