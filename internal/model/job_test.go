package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestPlaceholderVideoAnalysis(t *testing.T) {
	p := PlaceholderVideoAnalysis("https://www.youtube.com/watch?v=x", "not json")
	assert.Equal(t, SentimentNA, p.Sentiment)
	assert.Equal(t, 50, p.SentimentScore)
	assert.Empty(t, p.Strengths)
	assert.Equal(t, "not json", p.Raw)

	// Two placeholder records for the same input are identical apart from Raw.
	q := PlaceholderVideoAnalysis("https://www.youtube.com/watch?v=x", "other")
	q.Raw = p.Raw
	assert.Equal(t, p, q)
}
