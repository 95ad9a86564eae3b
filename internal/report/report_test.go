package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

func sampleData() Data {
	target := model.Target{Company: "Sony", Product: "WH-1000XM5"}
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return Data{
		Target: target,
		JobID:  "job-1",
		Videos: []model.Video{
			{
				ID:                "abc123",
				URL:               model.WatchURL("abc123"),
				Title:             "Sony WH-1000XM5 Review",
				ChannelTitle:      "AudioNerd",
				PublishedAt:       published,
				Views:             120000,
				Likes:             4200,
				CommentCount:      300,
				DurationFormatted: "00:12:30",
			},
			{
				ID:                "def456",
				URL:               model.WatchURL("def456"),
				Title:             "XM5 Long Term Review",
				ChannelTitle:      "TechDaily",
				PublishedAt:       published,
				Views:             500000,
				Likes:             9000,
				DurationFormatted: "00:08:10",
			},
		},
		Comments: map[string][]model.Comment{
			"abc123": {
				{VideoID: "abc123", Author: "user1", Text: "Battery lasts forever", Likes: 12, PublishedAt: published},
			},
		},
		VideoAnalyses: []model.VideoAnalysis{
			{
				VideoURL:       model.WatchURL("abc123"),
				Sentiment:      "positive",
				SentimentScore: 88,
				Strengths:      []string{"noise cancelling", "comfort"},
				Weaknesses:     []string{"price"},
				FinalVerdict:   "Best in class for travelers.",
			},
			{
				VideoURL:       model.WatchURL("def456"),
				Sentiment:      "positive",
				SentimentScore: 80,
				FinalVerdict:   "Holds up after six months.",
			},
		},
		CommentAnalyses: []model.CommentAnalysis{
			{
				VideoURL:        model.WatchURL("abc123"),
				Themes:          []string{"battery life"},
				RecurringTopics: []string{"ANC comparison"},
				Keywords:        []string{"comfort"},
				Personas:        []model.Persona{{Name: "Frequent Flyer"}},
			},
		},
		Summary: "Strong reception overall.\nPrice is the main objection.",
	}
}

func TestGenerateWorkbook(t *testing.T) {
	dir := t.TempDir()
	gen := NewFileGenerator(dir)

	artifacts, err := gen.Generate(context.Background(), sampleData())
	require.NoError(t, err)

	path := Primary(artifacts)
	assert.Equal(t, artifacts[ArtifactExcel], path)
	assert.True(t, strings.HasSuffix(path, ".xlsx"))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "sony_wh-1000xm5_"))
	assert.True(t, strings.HasSuffix(artifacts[ArtifactText], ".txt"))
	assert.True(t, strings.HasSuffix(artifacts[ArtifactCommentsCSV], "_comments.csv"))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	analysis := f.Sheet["Analysis"]
	require.NotNil(t, analysis)
	require.Len(t, analysis.Rows, 3)
	// Sorted by views, most viewed first.
	assert.Equal(t, "XM5 Long Term Review", analysis.Rows[1].Cells[0].Value)
	row := analysis.Rows[2]
	assert.Equal(t, "Sony WH-1000XM5 Review", row.Cells[0].Value)
	assert.Equal(t, "AudioNerd", row.Cells[1].Value)
	assert.Equal(t, "88", row.Cells[6].Value)
	assert.Equal(t, "noise cancelling; comfort", row.Cells[7].Value)

	videos := f.Sheet["Videos"]
	require.NotNil(t, videos)
	require.Len(t, videos.Rows, 3)
	assert.Equal(t, model.WatchURL("abc123"), videos.Rows[1].Cells[2].Value)

	comments := f.Sheet["Comments"]
	require.NotNil(t, comments)
	require.Len(t, comments.Rows, 2)
	assert.Equal(t, "Frequent Flyer", comments.Rows[1].Cells[4].Value)
}

func TestGenerateWritesTextReport(t *testing.T) {
	dir := t.TempDir()
	gen := NewFileGenerator(dir)

	_, err := gen.Generate(context.Background(), sampleData())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".txt") {
			found = true
			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			content := string(b)
			assert.Contains(t, content, "Review Analysis: Sony WH-1000XM5")
			assert.Contains(t, content, "Price is the main objection.")
			assert.Contains(t, content, "positive 88/100")
		}
	}
	assert.True(t, found, "expected a text report")
}

func TestGenerateWritesCommentsCSV(t *testing.T) {
	dir := t.TempDir()
	gen := NewFileGenerator(dir)

	_, err := gen.Generate(context.Background(), sampleData())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_comments.csv") {
			found = true
			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			assert.Contains(t, string(b), "Battery lasts forever")
		}
	}
	assert.True(t, found, "expected a comments csv")
}

func TestGenerateNoCommentsSkipsCSV(t *testing.T) {
	dir := t.TempDir()
	gen := NewFileGenerator(dir)

	data := sampleData()
	data.Comments = nil
	artifacts, err := gen.Generate(context.Background(), data)
	require.NoError(t, err)
	assert.NotContains(t, artifacts, ArtifactCommentsCSV)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), "_comments.csv"))
	}
}

func TestJoinAnalysesDropsUnmatched(t *testing.T) {
	data := sampleData()
	data.VideoAnalyses = append(data.VideoAnalyses, model.VideoAnalysis{
		VideoURL:  model.WatchURL("ghost"),
		Sentiment: "negative",
	})

	rows := joinAnalyses(data)
	require.Len(t, rows, 2)
	assert.Equal(t, "XM5 Long Term Review", rows[0].video.Title)
	assert.Equal(t, "Sony WH-1000XM5 Review", rows[1].video.Title)
}
