package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/report"
)

func reviewTarget() model.Target {
	return model.NewTarget("Sony", "WH-1000XM5", []string{"xm5 review"})
}

func happyMocks() (*mockYouTube, *mockAI, *mockTranscriber, *mockGenerator) {
	v1 := testVideo("v1", "Sony WH-1000XM5 Review", 1000)
	v2 := testVideo("v2", "Sony WH-1000XM5 Long Term", 5000)
	yt := &mockYouTube{
		videos: map[string][]model.Video{
			"xm5 review": {v1, v2, testVideo("v3", "Unrelated gaming stream", 99999)},
		},
		comments: map[string][]model.Comment{
			"v1": {{VideoID: "v1", Text: "great", Likes: 1}, {VideoID: "v1", Text: "meh", Likes: 0}},
			"v2": {{VideoID: "v2", Text: "still good", Likes: 2}},
		},
	}
	ai := &mockAI{responses: map[string]string{
		"transcript of a video": validVideoJSON,
		"viewer comments":       validCommentJSON,
		"executive summary":     "Reception is strongly positive.",
	}}
	tr := &mockTranscriber{transcripts: map[string]string{
		v1.URL: "transcript one",
		v2.URL: "transcript two",
	}}
	gen := &mockGenerator{path: "reports/out.xlsx"}
	return yt, ai, tr, gen
}

func TestExecuteJobHappyPath(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	o, st, _ := newOrchestrator(t, yt, ai, tr, gen)
	job := newPendingJob(t, st, target)

	o.ExecuteJob(context.Background(), job.ID, target, Options{})

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, "reports/out.xlsx", got.ReportFile)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)

	// The unrelated stream fails the title filter.
	assert.Equal(t, 2, got.VideosFound)
	assert.Equal(t, 3, got.CommentsCollected)
	assert.Equal(t, 2, got.VideosAnalyzed)

	results, err := st.ResultsForJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "positive", results[0].Sentiment)

	require.Len(t, gen.data, 1)
	assert.Equal(t, "Reception is strongly positive.", gen.data[0].Summary)
	assert.Len(t, gen.data[0].VideoAnalyses, 2)
}

func TestExecuteJobNoVideosFails(t *testing.T) {
	target := reviewTarget()
	yt := &mockYouTube{} // no hits for any query
	o, st, _ := newOrchestrator(t, yt, &mockAI{}, &mockTranscriber{}, &mockGenerator{})
	job := newPendingJob(t, st, target)

	o.ExecuteJob(context.Background(), job.ID, target, Options{})

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "no videos found", got.Error)
	assert.Empty(t, got.ReportFile)

	results, err := st.ResultsForJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, results, "no artifacts for an aborted run")
}

func TestExecuteJobPartialTranscriptFailuresContinue(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	// v2 transcription now fails permanently; v1 still succeeds.
	delete(tr.transcripts, model.WatchURL("v2"))
	o, st, _ := newOrchestrator(t, yt, ai, tr, gen)
	job := newPendingJob(t, st, target)

	o.ExecuteJob(context.Background(), job.ID, target, Options{})

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 2, got.VideosFound)
	assert.Equal(t, 1, got.VideosAnalyzed, "only the transcribed video is analyzed")
}

func TestExecuteJobSkipTranscription(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	o, st, _ := newOrchestrator(t, yt, ai, tr, gen)
	job := newPendingJob(t, st, target)

	o.ExecuteJob(context.Background(), job.ID, target, Options{SkipTranscription: true})

	assert.Equal(t, 0, tr.calls, "transcriber never invoked")

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 0, got.VideosAnalyzed, "no transcripts, no video analyses")

	// Comment analyses still happen.
	require.Len(t, gen.data, 1)
	assert.Len(t, gen.data[0].CommentAnalyses, 2)
}

func TestExecuteJobReportFailureFailsJob(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	gen.err = eris.New("disk full")
	o, st, _ := newOrchestrator(t, yt, ai, tr, gen)
	job := newPendingJob(t, st, target)

	o.ExecuteJob(context.Background(), job.ID, target, Options{})

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "disk full")
}

func TestExecuteJobAbsorbsPanics(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, _ := happyMocks()
	o, st, _ := newOrchestrator(t, yt, ai, tr, nil) // nil generator panics in reporting

	job := newPendingJob(t, st, target)

	require.NotPanics(t, func() {
		o.ExecuteJob(context.Background(), job.ID, target, Options{})
	})

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestRunFullReturnsArtifacts(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	o, _, _ := newOrchestrator(t, yt, ai, tr, gen)

	artifacts, err := o.RunFull(context.Background(), target, Options{})
	require.NoError(t, err)
	assert.Equal(t, "reports/out.xlsx", artifacts[report.ArtifactExcel])
	assert.Equal(t, "reports/out.xlsx", report.Primary(artifacts))
}

func TestRunFullNoVideos(t *testing.T) {
	target := reviewTarget()
	o, _, _ := newOrchestrator(t, &mockYouTube{}, &mockAI{}, &mockTranscriber{}, &mockGenerator{})

	_, err := o.RunFull(context.Background(), target, Options{})
	assert.ErrorIs(t, err, ErrNoVideos)
}

func TestSameTargetRunsSerialize(t *testing.T) {
	target := reviewTarget()
	yt, ai, tr, gen := happyMocks()
	o, _, _ := newOrchestrator(t, yt, ai, tr, gen)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.RunFull(context.Background(), target, Options{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Four full runs, serialized: one generator call each, no interleaved
	// cache corruption.
	assert.Len(t, gen.data, 4)
	for _, d := range gen.data {
		assert.Len(t, d.Videos, 2)
	}
}

func TestLockTargetReturnsSameMutexPerIdentifier(t *testing.T) {
	o, _, _ := newOrchestrator(t, &mockYouTube{}, &mockAI{}, &mockTranscriber{}, &mockGenerator{})

	a := o.lockTarget("sony_wh-1000xm5")
	b := o.lockTarget("sony_wh-1000xm5")
	c := o.lockTarget("bose_qc45")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestBuildResults(t *testing.T) {
	videos := []model.Video{testVideo("v1", "XM5 Review", 100)}
	analyses := []model.VideoAnalysis{{
		VideoURL:     model.WatchURL("v1"),
		Sentiment:    "positive",
		Strengths:    []string{"anc", "comfort"},
		Weaknesses:   []string{"price"},
		FinalVerdict: "Buy it.",
	}}

	results := buildResults("job-1", videos, analyses)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "job-1", r.JobID)
	assert.Equal(t, "v1", r.VideoID)
	assert.Equal(t, "XM5 Review", r.VideoTitle)
	assert.Equal(t, "anc; comfort", r.Strengths)
	assert.Equal(t, "price", r.Weaknesses)
	assert.Equal(t, "Buy it.", r.Summary)
}
