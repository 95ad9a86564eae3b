package model

import "time"

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one durable, user-triggered execution of the pipeline for a target.
// CompletedAt is set exactly when the job reaches a terminal status; Error is
// set exactly when the status is failed.
type Job struct {
	ID                string     `json:"id"`
	Company           string     `json:"company"`
	Product           string     `json:"product"`
	SearchQuery       string     `json:"search_query"`
	Status            JobStatus  `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	VideosFound       int        `json:"videos_found"`
	CommentsCollected int        `json:"comments_collected"`
	VideosAnalyzed    int        `json:"videos_analyzed"`
	Error             string     `json:"error,omitempty"`
	ReportFile        string     `json:"report_file,omitempty"`
}

// Progress is a partial update to a job's counters. Nil fields are left
// untouched so concurrent stage updates don't clobber each other.
type Progress struct {
	VideosFound       *int
	CommentsCollected *int
	VideosAnalyzed    *int
}

// IntPtr is a convenience for building Progress values.
func IntPtr(n int) *int { return &n }
