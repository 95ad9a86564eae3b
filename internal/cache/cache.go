// Package cache holds in-memory intermediate results keyed by target
// identifier, so individual pipeline stages can be re-run without repeating
// the stages before them.
package cache

import (
	"sync"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// Entry accumulates the intermediate outputs for one target. Fields are
// filled in stage order; a stage re-run overwrites its own field and leaves
// the rest untouched.
type Entry struct {
	Videos          []model.Video
	Comments        map[string][]model.Comment
	Transcripts     map[string]string
	VideoAnalyses   []model.VideoAnalysis
	CommentAnalyses []model.CommentAnalysis
	Summary         string
}

// Cache is a concurrency-safe map of target identifier to Entry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// entry returns the Entry for id, creating it on first access.
// Callers must hold c.mu.
func (c *Cache) entry(id string) *Entry {
	e, ok := c.entries[id]
	if !ok {
		e = &Entry{
			Comments:    make(map[string][]model.Comment),
			Transcripts: make(map[string]string),
		}
		c.entries[id] = e
	}
	return e
}

// Get returns a snapshot copy of the entry for id. The second return is
// false when no stage has written anything for id yet.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// PutVideos stores the discovery output for id.
func (c *Cache) PutVideos(id string, videos []model.Video) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).Videos = videos
}

// PutComments stores the collected comments for id, keyed by video ID.
func (c *Cache) PutComments(id string, comments map[string][]model.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).Comments = comments
}

// PutTranscripts stores the transcription output for id, keyed by video URL.
func (c *Cache) PutTranscripts(id string, transcripts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).Transcripts = transcripts
}

// PutVideoAnalyses stores the per-video analysis output for id.
func (c *Cache) PutVideoAnalyses(id string, analyses []model.VideoAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).VideoAnalyses = analyses
}

// PutCommentAnalyses stores the per-video comment analysis output for id.
func (c *Cache) PutCommentAnalyses(id string, analyses []model.CommentAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).CommentAnalyses = analyses
}

// PutSummary stores the cross-video summary for id.
func (c *Cache) PutSummary(id string, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).Summary = summary
}

// Delete drops the entry for id.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
