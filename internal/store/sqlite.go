package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id                 TEXT PRIMARY KEY,
	company            TEXT NOT NULL,
	product            TEXT NOT NULL,
	search_query       TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at       DATETIME,
	videos_found       INTEGER NOT NULL DEFAULT 0,
	comments_collected INTEGER NOT NULL DEFAULT 0,
	videos_analyzed    INTEGER NOT NULL DEFAULT 0,
	error              TEXT,
	report_file        TEXT
);

CREATE TABLE IF NOT EXISTS results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, company, product, search_query, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.Company, job.Product, job.SearchQuery, string(job.Status), job.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

func (s *SQLiteStore) TransitionToRunning(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusRunning), jobID, string(model.JobStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition job %s to running", jobID)
	}
	return s.checkTransition(ctx, res, jobID)
}

func (s *SQLiteStore) RecordProgress(ctx context.Context, jobID string, p model.Progress) error {
	var sets []string
	var args []any
	if p.VideosFound != nil {
		sets = append(sets, "videos_found = ?")
		args = append(args, *p.VideosFound)
	}
	if p.CommentsCollected != nil {
		sets = append(sets, "comments_collected = ?")
		args = append(args, *p.CommentsCollected)
	}
	if p.VideosAnalyzed != nil {
		sets = append(sets, "videos_analyzed = ?")
		args = append(args, *p.VideosAnalyzed)
	}
	if len(sets) == 0 {
		return nil
	}
	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, jobID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record progress for job %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, reportFile string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, report_file = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusCompleted), time.Now().UTC(), reportFile, jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return s.checkTransition(ctx, res, jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, error = ? WHERE id = ? AND status IN (?, ?)`,
		string(model.JobStatusFailed), time.Now().UTC(), errMsg, jobID,
		string(model.JobStatusPending), string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return s.checkTransition(ctx, res, jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company, product, search_query, status, created_at, completed_at,
		        videos_found, comments_collected, videos_analyzed, error, report_file
		 FROM jobs WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, company, product, search_query, status, created_at, completed_at,
	                 videos_found, comments_collected, videos_analyzed, error, report_file
	          FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	// ON DELETE CASCADE removes the job's result rows.
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) MarkInterrupted(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, error = ? WHERE status IN (?, ?)`,
		string(model.JobStatusFailed), time.Now().UTC(), InterruptedMessage,
		string(model.JobStatusPending), string(model.JobStatusRunning),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: mark interrupted")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, jobID string, results []model.AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	for _, r := range results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO results (job_id, video_id, video_title, channel_name, sentiment, strengths, weaknesses, summary)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID, r.VideoID, r.VideoTitle, r.ChannelName, r.Sentiment, r.Strengths, r.Weaknesses, r.Summary,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result for job %s", jobID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) ResultsForJob(ctx context.Context, jobID string) ([]model.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, video_id, video_title, channel_name, sentiment, strengths, weaknesses, summary
		 FROM results WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: results for job %s", jobID)
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var r model.AnalysisResult
		if err := rows.Scan(&r.ID, &r.JobID, &r.VideoID, &r.VideoTitle, &r.ChannelName,
			&r.Sentiment, &r.Strengths, &r.Weaknesses, &r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: results iterate")
}

// checkTransition distinguishes a missing job from a guarded transition that
// matched no rows because the job was in the wrong state.
func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&exists)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check job %s", jobID)
	}
	return eris.Wrapf(ErrInvalidTransition, "job %s", jobID)
}

// helpers

func checkRowsAffected(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var status string
	var completedAt sql.NullTime
	var errMsg, reportFile sql.NullString

	err := row.Scan(&j.ID, &j.Company, &j.Product, &j.SearchQuery, &status, &j.CreatedAt, &completedAt,
		&j.VideosFound, &j.CommentsCollected, &j.VideosAnalyzed, &errMsg, &reportFile)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "sqlite: get job")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	j.Status = model.JobStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	j.Error = errMsg.String
	j.ReportFile = reportFile.String
	return &j, nil
}
