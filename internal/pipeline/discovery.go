package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/pkg/youtube"
)

// RunDiscovery searches for videos about the target, filters them for
// relevance, collects top comments, and caches both. An empty result is
// valid; callers decide whether that aborts the run. Repeated invocations
// overwrite the cached stage output.
func (o *Orchestrator) RunDiscovery(ctx context.Context, target model.Target, opts Options) ([]model.Video, map[string][]model.Comment, error) {
	log := zap.L().With(zap.String("target", target.Identifier()))

	max := opts.MaxVideos
	if max <= 0 {
		max = o.cfg.Discovery.MaxSearchResults
	}
	searchOpts := youtube.SearchOptions{
		MaxResults:      max,
		PublishedAfter:  coalesce(opts.PublishedAfter, o.cfg.Discovery.PublishedAfter),
		PublishedBefore: coalesce(opts.PublishedBefore, o.cfg.Discovery.PublishedBefore),
		Region:          coalesce(opts.Region, o.cfg.Discovery.Region),
	}

	seen := make(map[string]bool)
	var found []model.Video
	for _, query := range target.SearchQueries {
		vids, err := o.videos.SearchVideos(ctx, query, searchOpts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Warn("discovery: search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, v := range vids {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			found = append(found, v)
		}
	}
	log.Info("discovery: search complete", zap.Int("unique_videos", len(found)))

	videos := filterByTitle(found, target.Keywords())
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
	if len(videos) > max {
		videos = videos[:max]
	}

	comments := make(map[string][]model.Comment)
	for _, v := range videos {
		cs, err := o.videos.TopComments(ctx, v.ID, o.cfg.Discovery.MaxCommentsPerVideo)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Warn("discovery: comments failed", zap.String("video", v.ID), zap.Error(err))
			continue
		}
		if len(cs) > 0 {
			comments[v.ID] = cs
		}
	}

	id := target.Identifier()
	o.cache.PutVideos(id, videos)
	o.cache.PutComments(id, comments)

	log.Info("discovery: complete",
		zap.Int("videos", len(videos)),
		zap.Int("videos_with_comments", len(comments)),
	)
	return videos, comments, nil
}

// filterByTitle keeps videos whose case-folded title contains at least one
// target keyword.
func filterByTitle(videos []model.Video, keywords []string) []model.Video {
	var kept []model.Video
	for _, v := range videos {
		if titleMatches(v.Title, keywords) {
			kept = append(kept, v)
		}
	}
	return kept
}

func titleMatches(title string, keywords []string) bool {
	folded := model.Fold(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
