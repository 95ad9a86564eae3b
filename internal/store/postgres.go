package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id                 TEXT PRIMARY KEY,
	company            TEXT NOT NULL,
	product            TEXT NOT NULL,
	search_query       TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at       TIMESTAMPTZ,
	videos_found       INTEGER NOT NULL DEFAULT 0,
	comments_collected INTEGER NOT NULL DEFAULT 0,
	videos_analyzed    INTEGER NOT NULL DEFAULT 0,
	error              TEXT,
	report_file        TEXT
);

CREATE TABLE IF NOT EXISTS results (
	id           BIGINT PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
	job_id       TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	video_id     TEXT NOT NULL,
	video_title  TEXT NOT NULL DEFAULT '',
	channel_name TEXT NOT NULL DEFAULT '',
	sentiment    TEXT NOT NULL DEFAULT '',
	strengths    TEXT NOT NULL DEFAULT '',
	weaknesses   TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_results_job_id ON results(job_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, company, product, search_query, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.Company, job.Product, job.SearchQuery, string(job.Status), job.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) TransitionToRunning(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1 WHERE id = $2 AND status = $3`,
		string(model.JobStatusRunning), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition job %s to running", jobID)
	}
	return s.checkTransition(ctx, tag, jobID)
}

func (s *PostgresStore) RecordProgress(ctx context.Context, jobID string, p model.Progress) error {
	var sets []string
	var args []any
	add := func(col string, v int) {
		args = append(args, v)
		sets = append(sets, col+" = $"+itoa(len(args)))
	}
	if p.VideosFound != nil {
		add("videos_found", *p.VideosFound)
	}
	if p.CommentsCollected != nil {
		add("comments_collected", *p.CommentsCollected)
	}
	if p.VideosAnalyzed != nil {
		add("videos_analyzed", *p.VideosAnalyzed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, jobID)
	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + itoa(len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: record progress for job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, reportFile string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2, report_file = $3 WHERE id = $4 AND status = $5`,
		string(model.JobStatusCompleted), time.Now().UTC(), reportFile, jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	return s.checkTransition(ctx, tag, jobID)
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2, error = $3 WHERE id = $4 AND status IN ($5, $6)`,
		string(model.JobStatusFailed), time.Now().UTC(), errMsg, jobID,
		string(model.JobStatusPending), string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	return s.checkTransition(ctx, tag, jobID)
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company, product, search_query, status, created_at, completed_at,
		        videos_found, comments_collected, videos_analyzed, error, report_file
		 FROM jobs WHERE id = $1`,
		jobID,
	)
	j, err := scanPgJob(row)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get job")
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, company, product, search_query, status, created_at, completed_at,
	                 videos_found, comments_collected, videos_analyzed, error, report_file
	          FROM jobs`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list jobs scan")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) MarkInterrupted(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2, error = $3 WHERE status IN ($4, $5)`,
		string(model.JobStatusFailed), time.Now().UTC(), InterruptedMessage,
		string(model.JobStatusPending), string(model.JobStatusRunning),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: mark interrupted")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, jobID string, results []model.AnalysisResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save results")
	}
	defer tx.Rollback(ctx)

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO results (job_id, video_id, video_title, channel_name, sentiment, strengths, weaknesses, summary)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			jobID, r.VideoID, r.VideoTitle, r.ChannelName, r.Sentiment, r.Strengths, r.Weaknesses, r.Summary,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result for job %s", jobID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save results")
}

func (s *PostgresStore) ResultsForJob(ctx context.Context, jobID string) ([]model.AnalysisResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, video_id, video_title, channel_name, sentiment, strengths, weaknesses, summary
		 FROM results WHERE job_id = $1 ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: results for job %s", jobID)
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var r model.AnalysisResult
		if err := rows.Scan(&r.ID, &r.JobID, &r.VideoID, &r.VideoTitle, &r.ChannelName,
			&r.Sentiment, &r.Strengths, &r.Weaknesses, &r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: results iterate")
}

func (s *PostgresStore) checkTransition(ctx context.Context, tag pgconn.CommandTag, jobID string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM jobs WHERE id = $1`, jobID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: check job %s", jobID)
	}
	return eris.Wrapf(ErrInvalidTransition, "job %s", jobID)
}

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var status string
	var completedAt *time.Time
	var errMsg, reportFile *string

	err := row.Scan(&j.ID, &j.Company, &j.Product, &j.SearchQuery, &status, &j.CreatedAt, &completedAt,
		&j.VideosFound, &j.CommentsCollected, &j.VideosAnalyzed, &errMsg, &reportFile)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	j.Status = model.JobStatus(status)
	j.CompletedAt = completedAt
	if errMsg != nil {
		j.Error = *errMsg
	}
	if reportFile != nil {
		j.ReportFile = *reportFile
	}
	return &j, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
