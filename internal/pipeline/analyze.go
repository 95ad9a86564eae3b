package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/pkg/anthropic"
)

const analysisConcurrency = 3

const analysisSystem = `You analyze product review videos: their transcripts and viewer comments.
Respond with a single JSON object and nothing else. No markdown, no prose.`

const videoAnalysisPrompt = `Analyze this transcript of a video reviewing the %s %s.

Return a JSON object with exactly these keys:
- "sentiment": "positive", "negative", or "mixed"
- "sentiment_score": integer 0-100, overall favorability
- "strengths": array of strings, product strengths the reviewer identifies
- "weaknesses": array of strings, product weaknesses the reviewer identifies
- "brand_sentiment": one sentence on how the reviewer regards the brand
- "competitor_mentions": array of {"competitor": string, "comparison_summary": string}
- "trends": array of strings, market or product trends mentioned
- "competitor_perception": one sentence on how competitors come across
- "final_verdict": the reviewer's bottom line in one or two sentences

Transcript:
%s`

const commentAnalysisPrompt = `Analyze these viewer comments on a video reviewing the %s %s.

Return a JSON object with exactly these keys:
- "themes": array of strings, dominant discussion themes
- "sentiment_breakdown": object mapping "positive"/"negative"/"neutral" to fractions summing to 1.0
- "recurring_topics": array of strings
- "keywords": array of strings, notable recurring words or phrases
- "personas": array of {"name": string, "description": string, "needs": array of strings}

Comments:
%s`

// RunAnalysis feeds cached transcripts and comments through the AI and caches
// the structured output. Malformed AI responses degrade to neutral
// placeholder records; they never fail the stage.
func (o *Orchestrator) RunAnalysis(ctx context.Context, target model.Target) ([]model.VideoAnalysis, []model.CommentAnalysis, error) {
	log := zap.L().With(zap.String("target", target.Identifier()))

	entry, ok := o.cache.Get(target.Identifier())
	if !ok || len(entry.Videos) == 0 {
		log.Warn("analysis: nothing cached for target, skipping")
		return nil, nil, nil
	}

	videoAnalyses := o.analyzeTranscripts(ctx, target, entry.Videos, entry.Transcripts)
	commentAnalyses := o.analyzeComments(ctx, target, entry.Videos, entry.Comments)

	id := target.Identifier()
	o.cache.PutVideoAnalyses(id, videoAnalyses)
	o.cache.PutCommentAnalyses(id, commentAnalyses)

	log.Info("analysis: complete",
		zap.Int("video_analyses", len(videoAnalyses)),
		zap.Int("comment_analyses", len(commentAnalyses)),
	)
	return videoAnalyses, commentAnalyses, nil
}

func (o *Orchestrator) analyzeTranscripts(ctx context.Context, target model.Target, videos []model.Video, transcripts map[string]string) []model.VideoAnalysis {
	var mu sync.Mutex
	byURL := make(map[string]model.VideoAnalysis, len(transcripts))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)
	for _, v := range videos {
		transcript, ok := transcripts[v.URL]
		if !ok || transcript == "" {
			continue
		}
		g.Go(func() error {
			a := o.analyzeOneVideo(gCtx, target, v.URL, transcript)
			mu.Lock()
			byURL[v.URL] = a
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Preserve discovery order.
	analyses := make([]model.VideoAnalysis, 0, len(byURL))
	for _, v := range videos {
		if a, ok := byURL[v.URL]; ok {
			analyses = append(analyses, a)
		}
	}
	return analyses
}

func (o *Orchestrator) analyzeOneVideo(ctx context.Context, target model.Target, videoURL, transcript string) model.VideoAnalysis {
	prompt := fmt.Sprintf(videoAnalysisPrompt, target.Company, target.Product, transcript)
	text, err := o.complete(ctx, "video_analysis", prompt)
	if err != nil {
		zap.L().Warn("analysis: video request failed",
			zap.String("video", videoURL),
			zap.Error(err),
		)
		return model.PlaceholderVideoAnalysis(videoURL, "")
	}

	var a model.VideoAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &a); err != nil {
		zap.L().Warn("analysis: video response did not parse",
			zap.String("video", videoURL),
			zap.Error(err),
		)
		return model.PlaceholderVideoAnalysis(videoURL, text)
	}
	a.VideoURL = videoURL
	a.Raw = text
	return a
}

func (o *Orchestrator) analyzeComments(ctx context.Context, target model.Target, videos []model.Video, comments map[string][]model.Comment) []model.CommentAnalysis {
	var mu sync.Mutex
	byURL := make(map[string]model.CommentAnalysis, len(comments))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)
	for _, v := range videos {
		cs := comments[v.ID]
		if len(cs) == 0 {
			continue
		}
		g.Go(func() error {
			a := o.analyzeOneCommentSet(gCtx, target, v.URL, cs)
			mu.Lock()
			byURL[v.URL] = a
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	analyses := make([]model.CommentAnalysis, 0, len(byURL))
	for _, v := range videos {
		if a, ok := byURL[v.URL]; ok {
			analyses = append(analyses, a)
		}
	}
	return analyses
}

func (o *Orchestrator) analyzeOneCommentSet(ctx context.Context, target model.Target, videoURL string, comments []model.Comment) model.CommentAnalysis {
	var b strings.Builder
	for _, c := range comments {
		fmt.Fprintf(&b, "- [%d likes] %s\n", c.Likes, c.Text)
	}

	prompt := fmt.Sprintf(commentAnalysisPrompt, target.Company, target.Product, b.String())
	text, err := o.complete(ctx, "comment_analysis", prompt)
	if err != nil {
		zap.L().Warn("analysis: comment request failed",
			zap.String("video", videoURL),
			zap.Error(err),
		)
		return model.PlaceholderCommentAnalysis(videoURL, "")
	}

	var a model.CommentAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &a); err != nil {
		zap.L().Warn("analysis: comment response did not parse",
			zap.String("video", videoURL),
			zap.Error(err),
		)
		return model.PlaceholderCommentAnalysis(videoURL, text)
	}
	a.VideoURL = videoURL
	a.Raw = text
	return a
}

// complete sends one prompt and returns the response text, logging token
// usage per stage.
func (o *Orchestrator) complete(ctx context.Context, stage, prompt string) (string, error) {
	resp, err := o.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.cfg.Anthropic.Model,
		MaxTokens: int64(o.cfg.Anthropic.MaxTokens),
		System:    analysisSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(o.cfg.Anthropic.Model, stage)
	return resp.Text(), nil
}

// cleanJSON extracts a JSON object from text that may carry markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
