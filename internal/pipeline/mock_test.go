package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/cache"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/report"
	"github.com/reviewpulse/reviewpulse/internal/store"
	"github.com/reviewpulse/reviewpulse/pkg/anthropic"
	"github.com/reviewpulse/reviewpulse/pkg/youtube"
)

// mockYouTube returns canned search hits and comments.
type mockYouTube struct {
	mu          sync.Mutex
	searchCalls []string
	videos      map[string][]model.Video // query -> hits
	comments    map[string][]model.Comment
	searchErr   error
	commentsErr error
}

func (m *mockYouTube) SearchVideos(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, query)
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.videos[query], nil
}

func (m *mockYouTube) TopComments(ctx context.Context, videoID string, max int) ([]model.Comment, error) {
	if m.commentsErr != nil {
		return nil, m.commentsErr
	}
	return m.comments[videoID], nil
}

// mockAI returns a fixed response body, optionally keyed by a substring of
// the prompt.
type mockAI struct {
	mu        sync.Mutex
	calls     int
	response  string
	responses map[string]string // prompt substring -> response
	err       error
}

func (m *mockAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	body := m.response
	for substr, resp := range m.responses {
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, substr) {
			body = resp
		}
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
	}, nil
}

// mockTranscriber maps video URLs to transcripts; absent URLs fail.
type mockTranscriber struct {
	mu          sync.Mutex
	calls       int
	transcripts map[string]string
}

func (m *mockTranscriber) Acquire(ctx context.Context, videos []model.Video) (map[string]string, []model.TranscriptionOutcome) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	out := make(map[string]string)
	outcomes := make([]model.TranscriptionOutcome, 0, len(videos))
	for _, v := range videos {
		t, ok := m.transcripts[v.URL]
		o := model.TranscriptionOutcome{VideoURL: v.URL, VideoID: v.ID, OK: ok, Transcript: t}
		if !ok {
			o.Err = "download failed"
		} else {
			out[v.URL] = t
		}
		outcomes = append(outcomes, o)
	}
	return out, outcomes
}

// mockGenerator records the data it was handed and returns a fixed path.
type mockGenerator struct {
	mu   sync.Mutex
	data []report.Data
	path string
	err  error
}

func (m *mockGenerator) Generate(ctx context.Context, data report.Data) (map[string]string, error) {
	m.mu.Lock()
	m.data = append(m.data, data)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return map[string]string{report.ArtifactExcel: m.path}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024},
		Discovery: config.DiscoveryConfig{
			MaxSearchResults:    10,
			MaxCommentsPerVideo: 50,
			PublishedAfter:      "2021-01-01T00:00:00Z",
			Region:              "US",
		},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newPendingJob(t *testing.T, st store.Store, target model.Target) *model.Job {
	t.Helper()
	job := &model.Job{
		ID:          uuid.NewString(),
		Company:     target.Company,
		Product:     target.Product,
		SearchQuery: target.SearchQueries[0],
		Status:      model.JobStatusPending,
	}
	require.NoError(t, st.CreateJob(context.Background(), job))
	return job
}

func testVideo(id, title string, views int64) model.Video {
	return model.Video{
		ID:           id,
		URL:          model.WatchURL(id),
		Title:        title,
		ChannelTitle: "Channel " + id,
		Views:        views,
	}
}

func newOrchestrator(t *testing.T, yt *mockYouTube, ai *mockAI, tr *mockTranscriber, gen *mockGenerator) (*Orchestrator, store.Store, *cache.Cache) {
	t.Helper()
	st := newTestStore(t)
	c := cache.New()
	return New(testConfig(), st, c, yt, ai, tr, gen), st, c
}
