package actuarylist

import (
	"testing"
	"time"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var extractNow = time.Date(2025, 3, 20, 15, 30, 0, 0, time.UTC)

func extractFrom(t *testing.T, markup string) scraper.JobPosting {
	t.Helper()
	page, err := browser.NewStaticPage("https://www.actuarylist.com/actuarial-jobs/1", markup)
	require.NoError(t, err)

	e := NewExtractor(zap.NewNop())
	e.now = func() time.Time { return extractNow }
	return e.Extract(page)
}

func TestExtract_FullPage(t *testing.T) {
	job := extractFrom(t, `<html><head><title>Pricing Actuary - Actuary List</title></head><body><main>
		<h1>Senior Pricing Actuary</h1>
		<a href="/actuarial-employers/acme">Acme Re</a>
		<span class="location">London, UK</span>
		<p class="date">Posted 3 days ago</p>
		<div>
			<a href="/tags/pricing" class="tag"><span>Pricing</span></a>
			<a href="/tags/pricing" class="tag"><span>Pricing</span></a>
			<span class="badge">Part-time</span>
		</div>
	</main></body></html>`)

	assert.Equal(t, "Senior Pricing Actuary", job.Title)
	assert.Equal(t, "Acme Re", job.Company)
	assert.Equal(t, "London, UK", job.Location)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), job.PostingDate)
	assert.Equal(t, []string{"Pricing", "Part-time"}, job.Tags)
	assert.Equal(t, scraper.PartTime, job.JobType)
	assert.Empty(t, job.SourceLink)
}

func TestExtract_Defaults(t *testing.T) {
	job := extractFrom(t, `<html><head><title>Only The Tab Title</title></head><body><p>Nothing useful</p></body></html>`)

	assert.Equal(t, "Only The Tab Title", job.Title)
	assert.Empty(t, job.Company)
	assert.Empty(t, job.Location)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), job.PostingDate)
	assert.Equal(t, scraper.FullTime, job.JobType)
	assert.Empty(t, job.Tags)
}

func TestExtract_TagsDedupedInOrder(t *testing.T) {
	job := extractFrom(t, `<html><body><h1>Actuary</h1>
		<span class="tag">Remote</span>
		<span class="tag">Remote</span>
		<span class="tag">Full-Time</span>
		<span class="tag">   </span>
	</body></html>`)

	assert.Equal(t, []string{"Remote", "Full-Time"}, job.Tags)
	assert.Equal(t, scraper.FullTime, job.JobType)
}

func TestExtract_TagJobTypeBeatsBody(t *testing.T) {
	job := extractFrom(t, `<html><body><h1>Actuarial Intern</h1>
		<span class="tag">Internship Program</span>
		<p>This is a contract role with an option to extend.</p>
	</body></html>`)

	assert.Equal(t, scraper.Internship, job.JobType)
}

func TestExtract_BodyJobType(t *testing.T) {
	job := extractFrom(t, `<html><body><h1>Reserving Actuary</h1>
		<p>Twelve month contract, renewable.</p>
	</body></html>`)

	assert.Equal(t, scraper.Contract, job.JobType)
}

func TestExtract_LocationFallsBackToSmallText(t *testing.T) {
	job := extractFrom(t, `<html><body><h1>Actuary</h1>
		<small>Full-time</small>
		<small>Remote</small>
	</body></html>`)

	assert.Equal(t, "Remote", job.Location)
}

func TestExtract_CascadeFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		title    string
		company  string
		location string
	}{
		{
			name: "every field falls through",
			markup: `<html><head><title>Tab Title</title></head><body>
				<h1></h1>
				<h1 class="job-title">Real Title</h1>
				<a href="/actuarial-employers/beta">   </a>
				<div class="company-name">Beta Life</div>
				<p>Location</p><span>Toronto, ON</span>
			</body></html>`,
			title:    "Real Title",
			company:  "Beta Life",
			location: "Toronto, ON",
		},
		{
			name: "blank first heading uses titled heading",
			markup: `<html><body>
				<h1>  </h1>
				<h1 class="posting-title">Capital Actuary</h1>
			</body></html>`,
			title: "Capital Actuary",
		},
		{
			name: "empty headings fall back to the tab title",
			markup: `<html><head><title>Tab Title</title></head><body>
				<h1></h1>
				<h1 class="job-title"> </h1>
			</body></html>`,
			title: "Tab Title",
		},
		{
			name: "employer link missing uses company span",
			markup: `<html><body><h1>Actuary</h1>
				<span class="company">Gamma Re</span>
			</body></html>`,
			title:   "Actuary",
			company: "Gamma Re",
		},
		{
			name: "empty company hint falls to grey paragraph",
			markup: `<html><body><h1>Actuary</h1>
				<div class="company"></div>
				<p class="text-gray-600">Delta Mutual</p>
			</body></html>`,
			title:   "Actuary",
			company: "Delta Mutual",
		},
		{
			name: "location label sibling",
			markup: `<html><body><h1>Actuary</h1>
				<p>Location</p><div>Dublin, Ireland</div>
			</body></html>`,
			title:    "Actuary",
			location: "Dublin, Ireland",
		},
		{
			name: "empty location hint uses label sibling",
			markup: `<html><body><h1>Actuary</h1>
				<span class="location"> </span>
				<p>Location</p><span>Remote</span>
			</body></html>`,
			title:    "Actuary",
			location: "Remote",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := extractFrom(t, tt.markup)
			assert.Equal(t, tt.title, job.Title)
			assert.Equal(t, tt.company, job.Company)
			assert.Equal(t, tt.location, job.Location)
		})
	}
}

func TestExtract_IsoPostingDate(t *testing.T) {
	job := extractFrom(t, `<html><body><h1>Actuary</h1><time>2024-01-15</time></body></html>`)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), job.PostingDate)
}

func TestJobTypeFromTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want scraper.JobType
		ok   bool
	}{
		{"no tags", nil, "", false},
		{"no signal", []string{"Remote", "Life"}, "", false},
		{"intern before part in one tag", []string{"Part-time internship"}, scraper.Internship, true},
		{"first matching tag wins", []string{"Contract", "Internship"}, scraper.Contract, true},
		{"accents folded", []string{"Párt-time"}, scraper.PartTime, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := jobTypeFromTags(tt.tags)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
