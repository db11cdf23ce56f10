package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL,
	location     TEXT NOT NULL,
	posting_date TEXT NOT NULL,
	job_type     TEXT,
	tags         TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS jobs_natural_key ON jobs (title, company, location);
`

const sqliteSelectColumns = `id, title, company, location, posting_date, job_type, tags, created_at`

// SQLiteStore keeps jobs in a local file. LIKE is case-insensitive for ASCII only.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// one writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Begin(ctx context.Context) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteSession{tx: tx, now: s.now}, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, q JobQuery) ([]StoredJob, error) {
	query := `SELECT ` + sqliteSelectColumns + ` FROM jobs
		WHERE (?1 = '' OR job_type = ?1)
		  AND (?2 = '' OR location LIKE '%' || ?2 || '%')
		  AND (?3 = '' OR tags LIKE '%' || ?3 || '%')
		ORDER BY ` + q.Sort.clause()

	rows, err := s.db.QueryContext(ctx, query, q.JobType, q.Location, q.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []StoredJob{}
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (*StoredJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSelectColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (s *SQLiteStore) FindJobByName(ctx context.Context, title, company string) (*StoredJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSelectColumns+` FROM jobs
		WHERE lower(title) = lower(?1) AND (?2 = '' OR lower(company) = lower(?2))
		ORDER BY id ASC LIMIT 1`, title, company)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job StoredJob) (*StoredJob, error) {
	res, err := insertSQLiteJob(ctx, s.db, job, s.now())
	if err != nil {
		return nil, sqliteError("create job", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new job id: %w", err)
	}
	return s.GetJob(ctx, id)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job StoredJob) (*StoredJob, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET title = ?, company = ?, location = ?, posting_date = ?, job_type = ?, tags = ?
		WHERE id = ?`,
		job.Title, job.Company, job.Location, job.PostingDate, nullableString(job.JobType), job.Tags, job.ID)
	if err != nil {
		return nil, sqliteError("update job", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetJob(ctx, job.ID)
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return sqliteError("delete job", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSQLiteJob(ctx context.Context, db execer, job StoredJob, now time.Time) (sql.Result, error) {
	return db.ExecContext(ctx, `
		INSERT INTO jobs (title, company, location, posting_date, job_type, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.Title, job.Company, job.Location, job.PostingDate, nullableString(job.JobType), job.Tags,
		now.UTC().Format(time.RFC3339Nano))
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*StoredJob, error) {
	var (
		j       StoredJob
		jobType sql.NullString
		created string
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostingDate, &jobType, &j.Tags, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	if jobType.Valid {
		j.JobType = &jobType.String
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		j.CreatedAt = t
	}
	return &j, nil
}

type sqliteSession struct {
	tx  *sql.Tx
	now func() time.Time
}

func (s *sqliteSession) FindJob(ctx context.Context, key NaturalKey) (bool, error) {
	var one int
	err := s.tx.QueryRowContext(ctx,
		`SELECT 1 FROM jobs WHERE title = ? AND company = ? AND location = ? LIMIT 1`,
		key.Title, key.Company, key.Location).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up job: %w", err)
	}
	return true, nil
}

func (s *sqliteSession) InsertJob(ctx context.Context, job StoredJob) error {
	_, err := insertSQLiteJob(ctx, s.tx, job, s.now())
	return sqliteError("insert job", err)
}

func (s *sqliteSession) Commit(context.Context) error {
	return sqliteError("commit", s.tx.Commit())
}

func (s *sqliteSession) Rollback(context.Context) error {
	err := s.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func sqliteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s: %w: %s", op, ErrConstraintViolation, se.Error())
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
