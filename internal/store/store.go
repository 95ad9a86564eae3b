package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// ErrNotFound is returned when the requested job does not exist.
var ErrNotFound = eris.New("store: job not found")

// ErrInvalidTransition is returned when a status change is requested from a
// state that does not allow it. Jobs move pending -> running and
// running -> completed/failed only.
var ErrInvalidTransition = eris.New("store: invalid status transition")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis job lifecycle.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, job *model.Job) error
	TransitionToRunning(ctx context.Context, jobID string) error
	RecordProgress(ctx context.Context, jobID string, p model.Progress) error
	CompleteJob(ctx context.Context, jobID string, reportFile string) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	DeleteJob(ctx context.Context, jobID string) error

	// MarkInterrupted fails every job still marked pending or running. It
	// is called once at startup so jobs orphaned by a crash do not stay
	// stuck forever. Returns the number of jobs updated.
	MarkInterrupted(ctx context.Context) (int, error)

	// Results
	SaveResults(ctx context.Context, jobID string, results []model.AnalysisResult) error
	ResultsForJob(ctx context.Context, jobID string) ([]model.AnalysisResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// InterruptedMessage is the error recorded on jobs failed by MarkInterrupted.
const InterruptedMessage = "interrupted by restart"
