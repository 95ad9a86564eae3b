package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresCreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs("job-1", "Acme", "Widget", "widget review", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateJob(context.Background(), &model.Job{
		ID:          "job-1",
		Company:     "Acme",
		Product:     "Widget",
		SearchQuery: "widget review",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJobNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, company, product`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionToRunning(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs("running", "job-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.TransitionToRunning(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionGuarded(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Zero rows updated: the store checks whether the job exists at all.
	mock.ExpectExec(`UPDATE jobs SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs("running", "job-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	err := s.TransitionToRunning(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionMissingJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs("running", "missing", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err := s.TransitionToRunning(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET videos_found = \$1, videos_analyzed = \$2 WHERE id = \$3`).
		WithArgs(5, 3, "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.RecordProgress(context.Background(), "job-1", model.Progress{
		VideosFound:    model.IntPtr(5),
		VideosAnalyzed: model.IntPtr(3),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordProgressEmptyNoop(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.RecordProgress(context.Background(), "job-1", model.Progress{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkInterrupted(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1, completed_at = \$2, error = \$3 WHERE status IN \(\$4, \$5\)`).
		WithArgs("failed", pgxmock.AnyArg(), InterruptedMessage, "pending", "running").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := s.MarkInterrupted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteJobNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteJob(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO results`).
		WithArgs("job-1", "v1", "Title", "Channel", "positive", "battery", "price", "good").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveResults(context.Background(), "job-1", []model.AnalysisResult{
		{VideoID: "v1", VideoTitle: "Title", ChannelName: "Channel", Sentiment: "positive", Strengths: "battery", Weaknesses: "price", Summary: "good"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResultsForJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "job_id", "video_id", "video_title", "channel_name", "sentiment", "strengths", "weaknesses", "summary"}).
		AddRow(int64(1), "job-1", "v1", "Title", "Channel", "positive", "battery", "price", "good")
	mock.ExpectQuery(`SELECT id, job_id, video_id`).
		WithArgs("job-1").
		WillReturnRows(rows)

	results, err := s.ResultsForJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].VideoID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
