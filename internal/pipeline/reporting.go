package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/report"
)

const summaryPrompt = `Write an executive summary of the audience reception of the %s %s,
based on the structured analysis below. Cover overall sentiment, the most praised
and most criticized aspects, competitor positioning, and notable audience segments.
Plain prose, no markdown, at most five paragraphs.

Analysis data:
%s`

// RunReporting produces the narrative summary and exports the report files,
// returning the generated artifacts keyed by name. Export degradation is
// handled inside the generator; only a total export failure fails the stage.
// With nothing cached for the target the stage is a logged no-op.
func (o *Orchestrator) RunReporting(ctx context.Context, target model.Target, jobID string) (map[string]string, error) {
	log := zap.L().With(zap.String("target", target.Identifier()))

	entry, ok := o.cache.Get(target.Identifier())
	if !ok || len(entry.Videos) == 0 {
		log.Warn("reporting: nothing cached for target, skipping")
		return nil, nil
	}

	summary := o.summarize(ctx, target, entry.VideoAnalyses, entry.CommentAnalyses)
	o.cache.PutSummary(target.Identifier(), summary)

	artifacts, err := o.reports.Generate(ctx, report.Data{
		Target:          target,
		JobID:           jobID,
		Videos:          entry.Videos,
		Comments:        entry.Comments,
		VideoAnalyses:   entry.VideoAnalyses,
		CommentAnalyses: entry.CommentAnalyses,
		Summary:         summary,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate report")
	}

	log.Info("reporting: complete", zap.String("report", report.Primary(artifacts)))
	return artifacts, nil
}

// summarize asks the AI for a narrative over the structured analyses. An
// empty summary is acceptable; the report is generated regardless.
func (o *Orchestrator) summarize(ctx context.Context, target model.Target, videoAnalyses []model.VideoAnalysis, commentAnalyses []model.CommentAnalysis) string {
	if len(videoAnalyses) == 0 && len(commentAnalyses) == 0 {
		return ""
	}

	payload, err := json.Marshal(struct {
		Videos   []model.VideoAnalysis   `json:"video_analyses"`
		Comments []model.CommentAnalysis `json:"comment_analyses"`
	}{videoAnalyses, commentAnalyses})
	if err != nil {
		zap.L().Warn("reporting: marshal analyses", zap.Error(err))
		return ""
	}

	text, err := o.complete(ctx, "summary", fmt.Sprintf(summaryPrompt, target.Company, target.Product, payload))
	if err != nil {
		zap.L().Warn("reporting: summary request failed", zap.Error(err))
		return ""
	}
	return text
}
