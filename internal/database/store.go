package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrConstraintViolation is returned when an insert or commit breaks the natural-key index.
	ErrConstraintViolation = errors.New("unique constraint violated")
	ErrNotFound            = errors.New("job not found")
	ErrUnsupportedURL      = errors.New("unsupported database url")
)

// StoredJob is one row of the jobs table.
type StoredJob struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	PostingDate string    `json:"posting_date"` // YYYY-MM-DD
	JobType     *string   `json:"job_type"`
	Tags        string    `json:"tags"` // "a, b"
	CreatedAt   time.Time `json:"created_at"`
}

// NaturalKey identifies a posting across runs. Matching is exact.
type NaturalKey struct {
	Title    string
	Company  string
	Location string
}

func (j StoredJob) Key() NaturalKey {
	return NaturalKey{Title: j.Title, Company: j.Company, Location: j.Location}
}

type SortOrder string

const (
	SortTitleAsc        SortOrder = "title_asc"
	SortTitleDesc       SortOrder = "title_desc"
	SortPostingDateAsc  SortOrder = "posting_date_asc"
	SortPostingDateDesc SortOrder = "posting_date_desc"
)

var orderClauses = map[SortOrder]string{
	SortTitleAsc:        "title ASC, id ASC",
	SortTitleDesc:       "title DESC, id ASC",
	SortPostingDateAsc:  "posting_date ASC, id ASC",
	SortPostingDateDesc: "posting_date DESC, id ASC",
}

// ParseSort accepts the empty string as the default, newest first.
func ParseSort(s string) (SortOrder, error) {
	if s == "" {
		return SortPostingDateDesc, nil
	}
	order := SortOrder(s)
	if _, ok := orderClauses[order]; !ok {
		return "", fmt.Errorf("invalid sort %q", s)
	}
	return order, nil
}

func (o SortOrder) clause() string {
	if c, ok := orderClauses[o]; ok {
		return c
	}
	return orderClauses[SortPostingDateDesc]
}

// JobQuery filters ListJobs. Empty fields do not filter.
type JobQuery struct {
	JobType  string // exact
	Location string // case-insensitive substring
	Tag      string // case-insensitive substring of the tags column
	Sort     SortOrder
}

// Store is the durable job table.
type Store interface {
	Begin(ctx context.Context) (Session, error)
	ListJobs(ctx context.Context, q JobQuery) ([]StoredJob, error)
	GetJob(ctx context.Context, id int64) (*StoredJob, error)
	// FindJobByName matches title, and company when non-empty, ignoring case. The lowest id wins.
	FindJobByName(ctx context.Context, title, company string) (*StoredJob, error)
	CreateJob(ctx context.Context, job StoredJob) (*StoredJob, error)
	// UpdateJob overwrites every column of the row with job.ID.
	UpdateJob(ctx context.Context, job StoredJob) (*StoredJob, error)
	DeleteJob(ctx context.Context, id int64) error
	Close() error
}

// Session is one write transaction. Rows inserted are visible to FindJob in the same session.
type Session interface {
	FindJob(ctx context.Context, key NaturalKey) (bool, error)
	InsertJob(ctx context.Context, job StoredJob) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Open picks the backend from the URL scheme: postgres:// or postgresql:// for Postgres,
// sqlite://path for a SQLite file.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return ConnectPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
}
