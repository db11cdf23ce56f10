package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL,
	location     TEXT NOT NULL,
	posting_date DATE NOT NULL,
	job_type     TEXT,
	tags         TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS jobs_natural_key ON jobs (title, company, location);
`

const pgSelectColumns = `id, title, company, location, to_char(posting_date, 'YYYY-MM-DD'), job_type, tags, created_at`

const pgInsertJob = `
	INSERT INTO jobs (title, company, location, posting_date, job_type, tags)
	VALUES ($1, $2, $3, $4::date, $5, $6)`

type PostgresStore struct {
	db *pgxpool.Pool
}

func ConnectPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// PgBouncer in transaction mode does not support prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgSession{tx: tx}, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, q JobQuery) ([]StoredJob, error) {
	query := `SELECT ` + pgSelectColumns + ` FROM jobs
		WHERE ($1::text = '' OR job_type = $1::text)
		  AND ($2::text = '' OR location ILIKE '%' || $2::text || '%')
		  AND ($3::text = '' OR tags ILIKE '%' || $3::text || '%')
		ORDER BY ` + q.Sort.clause()

	rows, err := s.db.Query(ctx, query, q.JobType, q.Location, q.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []StoredJob{}
	for rows.Next() {
		var j StoredJob
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostingDate, &j.JobType, &j.Tags, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*StoredJob, error) {
	var j StoredJob
	err := s.db.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM jobs WHERE id = $1`, id).
		Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostingDate, &j.JobType, &j.Tags, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) FindJobByName(ctx context.Context, title, company string) (*StoredJob, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM jobs
		WHERE lower(title) = lower($1) AND ($2::text = '' OR lower(company) = lower($2::text))
		ORDER BY id ASC LIMIT 1`, title, company)
	return scanPgJob(row, "find job by name")
}

func (s *PostgresStore) CreateJob(ctx context.Context, job StoredJob) (*StoredJob, error) {
	row := s.db.QueryRow(ctx, pgInsertJob+` RETURNING `+pgSelectColumns,
		job.Title, job.Company, job.Location, job.PostingDate, job.JobType, job.Tags)
	return scanPgJob(row, "create job")
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job StoredJob) (*StoredJob, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE jobs SET title = $1, company = $2, location = $3, posting_date = $4::date, job_type = $5, tags = $6
		WHERE id = $7
		RETURNING `+pgSelectColumns,
		job.Title, job.Company, job.Location, job.PostingDate, job.JobType, job.Tags, job.ID)
	return scanPgJob(row, "update job")
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgJob(row pgx.Row, op string) (*StoredJob, error) {
	var j StoredJob
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostingDate, &j.JobType, &j.Tags, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pgError(op, err)
	}
	return &j, nil
}

type pgSession struct {
	tx pgx.Tx
}

func (s *pgSession) FindJob(ctx context.Context, key NaturalKey) (bool, error) {
	var one int
	err := s.tx.QueryRow(ctx,
		`SELECT 1 FROM jobs WHERE title = $1 AND company = $2 AND location = $3 LIMIT 1`,
		key.Title, key.Company, key.Location).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up job: %w", err)
	}
	return true, nil
}

func (s *pgSession) InsertJob(ctx context.Context, job StoredJob) error {
	_, err := s.tx.Exec(ctx, pgInsertJob,
		job.Title, job.Company, job.Location, job.PostingDate, job.JobType, job.Tags)
	return pgError("insert job", err)
}

func (s *pgSession) Commit(ctx context.Context) error {
	return pgError("commit", s.tx.Commit(ctx))
}

func (s *pgSession) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func pgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrConstraintViolation, pgErr.ConstraintName)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
