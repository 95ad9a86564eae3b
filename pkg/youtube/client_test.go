package youtube

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewpulse/reviewpulse/internal/resilience"
)

func TestParseTimestamp(t *testing.T) {
	got := parseTimestamp("2024-03-15T10:30:00Z")
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), got)
}

func TestParseTimestampMalformed(t *testing.T) {
	assert.True(t, parseTimestamp("not a timestamp").IsZero())
	assert.True(t, parseTimestamp("").IsZero())
}

func TestClassifyAPIErrorQuota(t *testing.T) {
	err := classifyAPIError(errors.New("googleapi: Error 403: quotaExceeded"))
	assert.True(t, resilience.IsTransient(err))
}

func TestClassifyAPIErrorPassthrough(t *testing.T) {
	base := errors.New("googleapi: Error 400: invalid argument")
	assert.False(t, resilience.IsTransient(classifyAPIError(base)))
	assert.Nil(t, classifyAPIError(nil))
}

func TestCommentsDisabled(t *testing.T) {
	assert.True(t, commentsDisabled(errors.New("googleapi: Error 403: commentsDisabled")))
	assert.False(t, commentsDisabled(errors.New("googleapi: Error 403: forbidden")))
	assert.False(t, commentsDisabled(nil))
}
