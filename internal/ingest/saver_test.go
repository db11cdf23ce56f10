package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go-actuarylist-ingest/internal/database"
	"go-actuarylist-ingest/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openSQLite(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func samplePosting() scraper.JobPosting {
	return scraper.JobPosting{
		Title:       "Pricing Actuary",
		Company:     "Acme Re",
		Location:    "London, UK",
		PostingDate: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		JobType:     scraper.FullTime,
		Tags:        []string{"Pricing", "Life"},
		SourceLink:  "https://www.actuarylist.com/actuarial-jobs/1",
	}
}

func TestSave_IdempotentByNaturalKey(t *testing.T) {
	store := openSQLite(t)
	saver := NewSaver(store, zap.NewNop())
	ctx := context.Background()

	first := saver.Save(ctx, []scraper.JobPosting{samplePosting()})
	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	require.Len(t, first.Stored, 1)

	second := saver.Save(ctx, []scraper.JobPosting{samplePosting()})
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Skipped)
	assert.Empty(t, second.Stored)

	jobs, err := store.ListJobs(ctx, database.JobQuery{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "2025-03-17", jobs[0].PostingDate)
	assert.Equal(t, "Pricing, Life", jobs[0].Tags)
	require.NotNil(t, jobs[0].JobType)
	assert.Equal(t, "Full-time", *jobs[0].JobType)
}

func TestSave_BackfillsDefaults(t *testing.T) {
	store := openSQLite(t)
	saver := NewSaver(store, zap.NewNop())
	ctx := context.Background()

	res := saver.Save(ctx, []scraper.JobPosting{{
		PostingDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		SourceLink:  "https://www.actuarylist.com/actuarial-jobs/2",
	}})
	require.Equal(t, 1, res.Inserted)

	jobs, err := store.ListJobs(ctx, database.JobQuery{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Untitled", jobs[0].Title)
	assert.Equal(t, "Unknown", jobs[0].Company)
	assert.Equal(t, "Unknown", jobs[0].Location)
	assert.Nil(t, jobs[0].JobType)
	assert.Equal(t, "", jobs[0].Tags)

	again := saver.Save(ctx, []scraper.JobPosting{{PostingDate: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)}})
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 1, again.Skipped)
}

func TestSave_DuplicatesWithinBatch(t *testing.T) {
	saver := NewSaver(openSQLite(t), zap.NewNop())

	other := samplePosting()
	other.Title = "Reserving Actuary"

	res := saver.Save(context.Background(), []scraper.JobPosting{samplePosting(), other, samplePosting()})
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
}

func TestSave_Empty(t *testing.T) {
	res := NewSaver(&fakeStore{}, zap.NewNop()).Save(context.Background(), nil)
	assert.Equal(t, SaveResult{}, res)
}

type fakeStore struct {
	beginErr error
	sess     *fakeSession
}

func (s *fakeStore) Begin(context.Context) (database.Session, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.sess, nil
}

func (s *fakeStore) ListJobs(context.Context, database.JobQuery) ([]database.StoredJob, error) {
	return nil, nil
}

func (s *fakeStore) GetJob(context.Context, int64) (*database.StoredJob, error) {
	return nil, database.ErrNotFound
}

func (s *fakeStore) FindJobByName(context.Context, string, string) (*database.StoredJob, error) {
	return nil, database.ErrNotFound
}

func (s *fakeStore) CreateJob(context.Context, database.StoredJob) (*database.StoredJob, error) {
	return nil, errors.New("not supported")
}

func (s *fakeStore) UpdateJob(context.Context, database.StoredJob) (*database.StoredJob, error) {
	return nil, database.ErrNotFound
}

func (s *fakeStore) DeleteJob(context.Context, int64) error { return database.ErrNotFound }

func (s *fakeStore) Close() error { return nil }

type fakeSession struct {
	existing   map[database.NaturalKey]bool
	findErr    error
	insertErr  error
	commitErr  error
	inserted   []database.StoredJob
	committed  bool
	rolledBack bool
}

func (s *fakeSession) FindJob(_ context.Context, key database.NaturalKey) (bool, error) {
	if s.findErr != nil {
		return false, s.findErr
	}
	return s.existing[key], nil
}

func (s *fakeSession) InsertJob(_ context.Context, job database.StoredJob) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, job)
	return nil
}

func (s *fakeSession) Commit(context.Context) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	return nil
}

func (s *fakeSession) Rollback(context.Context) error {
	s.rolledBack = true
	return nil
}

func TestSave_FailuresRollBack(t *testing.T) {
	existingKey := ToRow(samplePosting()).Key()
	fresh := samplePosting()
	fresh.Title = "Fresh"

	tests := []struct {
		name         string
		sess         *fakeSession
		wantSkipped  int
		wantRollback bool
	}{
		{
			name:         "constraint violation at commit",
			sess:         &fakeSession{existing: map[database.NaturalKey]bool{existingKey: true}, commitErr: fmt.Errorf("commit: %w", database.ErrConstraintViolation)},
			wantSkipped:  1,
			wantRollback: true,
		},
		{
			name:         "constraint violation at insert",
			sess:         &fakeSession{existing: map[database.NaturalKey]bool{existingKey: true}, insertErr: database.ErrConstraintViolation},
			wantSkipped:  1,
			wantRollback: true,
		},
		{
			name:         "lookup failure",
			sess:         &fakeSession{findErr: errors.New("connection reset")},
			wantRollback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := NewSaver(&fakeStore{sess: tt.sess}, zap.NewNop())
			res := saver.Save(context.Background(), []scraper.JobPosting{samplePosting(), fresh})

			assert.Equal(t, 0, res.Inserted)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
			assert.Empty(t, res.Stored)
			assert.Equal(t, tt.wantRollback, tt.sess.rolledBack)
			assert.False(t, tt.sess.committed)
			assert.Error(t, res.Err)
		})
	}
}

func TestSave_BeginFailure(t *testing.T) {
	saver := NewSaver(&fakeStore{beginErr: errors.New("database unreachable")}, zap.NewNop())
	res := saver.Save(context.Background(), []scraper.JobPosting{samplePosting()})
	assert.Zero(t, res.Inserted)
	assert.Zero(t, res.Skipped)
	assert.EqualError(t, res.Err, "database unreachable")
}

func TestToRow(t *testing.T) {
	row := ToRow(scraper.JobPosting{
		Title:       "  ",
		Company:     "Acme",
		PostingDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		JobType:     scraper.Internship,
		Tags:        []string{"a", "b", "c"},
	})
	assert.Equal(t, "Untitled", row.Title)
	assert.Equal(t, "Acme", row.Company)
	assert.Equal(t, "Unknown", row.Location)
	assert.Equal(t, "2024-01-15", row.PostingDate)
	require.NotNil(t, row.JobType)
	assert.Equal(t, "Internship", *row.JobType)
	assert.Equal(t, "a, b, c", row.Tags)
}
