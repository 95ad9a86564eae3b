// Package pipeline orchestrates the analysis stages for a target: discovery,
// transcription, AI analysis, and reporting.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/cache"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/report"
	"github.com/reviewpulse/reviewpulse/internal/store"
	"github.com/reviewpulse/reviewpulse/pkg/anthropic"
	"github.com/reviewpulse/reviewpulse/pkg/youtube"
)

// ErrNoVideos is returned when discovery yields nothing to analyze. Its
// message is recorded verbatim on the failed job.
var ErrNoVideos = eris.New("no videos found")

// Transcriber acquires transcripts for a batch of videos.
type Transcriber interface {
	Acquire(ctx context.Context, videos []model.Video) (map[string]string, []model.TranscriptionOutcome)
}

// Options tunes a single pipeline run.
type Options struct {
	SkipTranscription bool
	MaxVideos         int
	PublishedAfter    string // RFC 3339, overrides config
	PublishedBefore   string
	Region            string

	// UseCaptions overrides the configured caption preference when set.
	UseCaptions *bool
}

// Orchestrator wires the stages together. Runs for the same target are
// serialized on a per-identifier mutex; different targets proceed in
// parallel.
type Orchestrator struct {
	cfg         *config.Config
	store       store.Store
	cache       *cache.Cache
	videos      youtube.Client
	ai          anthropic.Client
	transcripts Transcriber
	reports     report.Generator

	mu          sync.Mutex
	targetLocks map[string]*sync.Mutex
}

// New creates an Orchestrator with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	c *cache.Cache,
	ytClient youtube.Client,
	aiClient anthropic.Client,
	transcripts Transcriber,
	reports report.Generator,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       st,
		cache:       c,
		videos:      ytClient,
		ai:          aiClient,
		transcripts: transcripts,
		reports:     reports,
		targetLocks: make(map[string]*sync.Mutex),
	}
}

// lockTarget returns the mutex serializing runs for one target identifier.
func (o *Orchestrator) lockTarget(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if l, ok := o.targetLocks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	o.targetLocks[id] = l
	return l
}

// RunFull executes every stage for the target and returns the generated
// report artifacts keyed by name.
func (o *Orchestrator) RunFull(ctx context.Context, target model.Target, opts Options) (map[string]string, error) {
	return o.run(ctx, "", target, opts)
}

// ExecuteJob drives a persisted job through the pipeline, recording status
// transitions and per-stage progress. Unexpected errors, including panics
// from stage code, are absorbed into the job's failed status.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string, target model.Target, opts Options) {
	log := zap.L().With(zap.String("job", jobID), zap.String("target", target.Identifier()))

	if err := o.store.TransitionToRunning(ctx, jobID); err != nil {
		log.Error("pipeline: mark running failed", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: run panicked", zap.Any("panic", r))
			if err := o.store.FailJob(ctx, jobID, fmt.Sprintf("%v", r)); err != nil {
				log.Error("pipeline: fail job after panic", zap.Error(err))
			}
		}
	}()

	artifacts, err := o.run(ctx, jobID, target, opts)
	if err != nil {
		log.Warn("pipeline: run failed", zap.Error(err))
		if failErr := o.store.FailJob(ctx, jobID, err.Error()); failErr != nil {
			log.Error("pipeline: fail job", zap.Error(failErr))
		}
		return
	}

	path := report.Primary(artifacts)
	if err := o.store.CompleteJob(ctx, jobID, path); err != nil {
		log.Error("pipeline: complete job", zap.Error(err))
		return
	}
	log.Info("pipeline: job complete", zap.String("report", path))
}

func (o *Orchestrator) run(ctx context.Context, jobID string, target model.Target, opts Options) (map[string]string, error) {
	lock := o.lockTarget(target.Identifier())
	lock.Lock()
	defer lock.Unlock()

	log := zap.L().With(zap.String("target", target.Identifier()))
	log.Info("pipeline: starting run",
		zap.Strings("queries", target.SearchQueries),
		zap.Bool("skip_transcription", opts.SkipTranscription),
	)

	videos, comments, err := o.RunDiscovery(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrNoVideos
	}
	totalComments := 0
	for _, cs := range comments {
		totalComments += len(cs)
	}
	o.recordProgress(ctx, jobID, model.Progress{
		VideosFound:       model.IntPtr(len(videos)),
		CommentsCollected: model.IntPtr(totalComments),
	})

	if !opts.SkipTranscription {
		if _, err := o.RunTranscription(ctx, target, opts); err != nil {
			return nil, err
		}
	}

	videoAnalyses, _, err := o.RunAnalysis(ctx, target)
	if err != nil {
		return nil, err
	}
	o.recordProgress(ctx, jobID, model.Progress{
		VideosAnalyzed: model.IntPtr(len(videoAnalyses)),
	})
	if jobID != "" {
		if err := o.store.SaveResults(ctx, jobID, buildResults(jobID, videos, videoAnalyses)); err != nil {
			log.Warn("pipeline: save results failed", zap.Error(err))
		}
	}

	return o.RunReporting(ctx, target, jobID)
}

func (o *Orchestrator) recordProgress(ctx context.Context, jobID string, p model.Progress) {
	if jobID == "" {
		return
	}
	if err := o.store.RecordProgress(ctx, jobID, p); err != nil {
		zap.L().Warn("pipeline: record progress failed", zap.String("job", jobID), zap.Error(err))
	}
}

// buildResults flattens analyses into persistable rows.
func buildResults(jobID string, videos []model.Video, analyses []model.VideoAnalysis) []model.AnalysisResult {
	byURL := make(map[string]model.Video, len(videos))
	for _, v := range videos {
		byURL[v.URL] = v
	}
	results := make([]model.AnalysisResult, 0, len(analyses))
	for _, a := range analyses {
		v := byURL[a.VideoURL]
		results = append(results, model.AnalysisResult{
			JobID:       jobID,
			VideoID:     v.ID,
			VideoTitle:  v.Title,
			ChannelName: v.ChannelTitle,
			Sentiment:   a.Sentiment,
			Strengths:   strings.Join(a.Strengths, "; "),
			Weaknesses:  strings.Join(a.Weaknesses, "; "),
			Summary:     a.FinalVerdict,
		})
	}
	return results
}
