package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-actuarylist-ingest/internal/database"
	"go-actuarylist-ingest/internal/scraper"

	"go.uber.org/zap"
)

const (
	defaultTitle = "Untitled"
	unknown      = "Unknown"
	tagSeparator = ", "
)

// SaveResult counts one batch. Stored holds the rows that were committed. Err is set when the
// batch was not written.
type SaveResult struct {
	Inserted int
	Skipped  int
	Stored   []database.StoredJob
	Err      error
}

// Saver writes postings that are not stored yet, keyed on title, company and location.
type Saver struct {
	store  database.Store
	logger *zap.Logger
}

func NewSaver(store database.Store, logger *zap.Logger) *Saver {
	return &Saver{store: store, logger: logger}
}

// Save runs the whole batch in one transaction. Any failure rolls everything back and reports
// zero inserts; Skipped keeps what was counted before the failure.
func (s *Saver) Save(ctx context.Context, postings []scraper.JobPosting) SaveResult {
	var result SaveResult
	if len(postings) == 0 {
		return result
	}

	sess, err := s.store.Begin(ctx)
	if err != nil {
		s.logger.Error("could not open storage session", zap.Error(err))
		return SaveResult{Err: err}
	}

	staged := make([]database.StoredJob, 0, len(postings))
	for _, p := range postings {
		row := ToRow(p)

		found, err := sess.FindJob(ctx, row.Key())
		if err != nil {
			s.rollback(ctx, sess, err)
			return SaveResult{Skipped: result.Skipped, Err: err}
		}
		if found {
			result.Skipped++
			s.logger.Debug("already stored", zap.String("title", row.Title), zap.String("company", row.Company))
			continue
		}

		if err := sess.InsertJob(ctx, row); err != nil {
			s.rollback(ctx, sess, err)
			return SaveResult{Skipped: result.Skipped, Err: err}
		}
		staged = append(staged, row)
	}

	if err := sess.Commit(ctx); err != nil {
		s.rollback(ctx, sess, err)
		return SaveResult{Skipped: result.Skipped, Err: err}
	}

	result.Inserted = len(staged)
	result.Stored = staged
	s.logger.Info("saved jobs", zap.Int("inserted", result.Inserted), zap.Int("skipped", result.Skipped))
	return result
}

func (s *Saver) rollback(ctx context.Context, sess database.Session, cause error) {
	if errors.Is(cause, database.ErrConstraintViolation) {
		s.logger.Error("integrity error while saving jobs, batch rolled back", zap.Error(cause))
	} else {
		s.logger.Error("failed to save jobs, batch rolled back", zap.Error(cause))
	}
	if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("rollback failed", zap.Error(err))
	}
}

// ToRow applies storage defaults: empty title is "Untitled", empty company or location is
// "Unknown", empty job type is NULL.
func ToRow(p scraper.JobPosting) database.StoredJob {
	row := database.StoredJob{
		Title:       orDefault(p.Title, defaultTitle),
		Company:     orDefault(p.Company, unknown),
		Location:    orDefault(p.Location, unknown),
		PostingDate: postingDate(p.PostingDate),
		Tags:        strings.Join(p.Tags, tagSeparator),
	}
	if p.JobType != "" {
		jt := string(p.JobType)
		row.JobType = &jt
	}
	return row
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func postingDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.Format(time.DateOnly)
}
