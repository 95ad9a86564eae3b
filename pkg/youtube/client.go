// Package youtube wraps the YouTube Data API v3 plus the subprocess tooling
// used to pull transcripts out of videos.
package youtube

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/resilience"
)

// Client defines the YouTube Data API operations used by the pipeline.
type Client interface {
	SearchVideos(ctx context.Context, query string, opts SearchOptions) ([]model.Video, error)
	TopComments(ctx context.Context, videoID string, max int) ([]model.Comment, error)
}

// SearchOptions narrows a video search.
type SearchOptions struct {
	MaxResults      int
	PublishedAfter  string // RFC 3339
	PublishedBefore string // RFC 3339
	Region          string
}

// APIClient implements Client using the Data API with request pacing.
type APIClient struct {
	service *yt.Service
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewAPIClient creates a Data API client. requestsPerSec bounds the request
// rate so bursty jobs stay inside the per-minute quota.
func NewAPIClient(ctx context.Context, apiKey string, requestsPerSec float64) (*APIClient, error) {
	if apiKey == "" {
		return nil, eris.New("youtube: api key required")
	}
	service, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "youtube: create service")
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 10
	}
	return &APIClient{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		retry:   resilience.DefaultRetryConfig(),
	}, nil
}

// SearchVideos runs a search and hydrates each hit with statistics and
// duration from videos.list.
func (c *APIClient) SearchVideos(ctx context.Context, query string, opts SearchOptions) ([]model.Video, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 50
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "youtube: rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*yt.SearchListResponse, error) {
		call := c.service.Search.List([]string{"id", "snippet"}).
			Q(query).
			Type("video").
			Order("viewCount").
			MaxResults(int64(maxResults)).
			Context(ctx)
		if opts.PublishedAfter != "" {
			call = call.PublishedAfter(opts.PublishedAfter)
		}
		if opts.PublishedBefore != "" {
			call = call.PublishedBefore(opts.PublishedBefore)
		}
		if opts.Region != "" {
			call = call.RegionCode(opts.Region)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "youtube: search %q", query)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.videoDetails(ctx, ids)
}

// videoDetails hydrates statistics and contentDetails for up to 50 IDs.
func (c *APIClient) videoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "youtube: rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*yt.VideoListResponse, error) {
		resp, err := c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "youtube: video details")
	}

	videos := make([]model.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		v := model.Video{
			ID:  item.Id,
			URL: model.WatchURL(item.Id),
		}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
			v.PublishedAt = parseTimestamp(item.Snippet.PublishedAt)
			v.ChannelID = item.Snippet.ChannelId
			v.ChannelTitle = item.Snippet.ChannelTitle
		}
		if item.Statistics != nil {
			v.Views = int64(item.Statistics.ViewCount)
			v.Likes = int64(item.Statistics.LikeCount)
			v.CommentCount = int64(item.Statistics.CommentCount)
		}
		if item.ContentDetails != nil {
			v.Duration = item.ContentDetails.Duration
			v.DurationFormatted = model.FormatDuration(item.ContentDetails.Duration)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// TopComments fetches up to max top-level comments ordered by relevance.
// Videos with comments disabled return an empty slice, not an error.
func (c *APIClient) TopComments(ctx context.Context, videoID string, max int) ([]model.Comment, error) {
	if max <= 0 {
		return nil, nil
	}

	var comments []model.Comment
	pageToken := ""
	for len(comments) < max {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "youtube: rate limit wait")
		}

		batch := int64(max - len(comments))
		if batch > 100 {
			batch = 100
		}

		resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*yt.CommentThreadListResponse, error) {
			resp, err := c.service.CommentThreads.List([]string{"snippet"}).
				VideoId(videoID).
				Order("relevance").
				TextFormat("plainText").
				MaxResults(batch).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				return nil, classifyAPIError(err)
			}
			return resp, nil
		})
		if err != nil {
			if commentsDisabled(err) {
				zap.L().Debug("youtube: comments disabled", zap.String("video_id", videoID))
				return comments, nil
			}
			return nil, eris.Wrapf(err, "youtube: comments for %s", videoID)
		}

		for _, thread := range resp.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil ||
				thread.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			s := thread.Snippet.TopLevelComment.Snippet
			comments = append(comments, model.Comment{
				VideoID:     videoID,
				Author:      s.AuthorDisplayName,
				Text:        s.TextDisplay,
				Likes:       s.LikeCount,
				PublishedAt: parseTimestamp(s.PublishedAt),
			})
			if len(comments) >= max {
				break
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return comments, nil
}

// parseTimestamp parses the RFC 3339 timestamps the Data API returns.
// Malformed values come back zero rather than failing the item.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// classifyAPIError marks quota and rate errors as transient so the retry
// layer backs off instead of giving up.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "quotaExceeded") || strings.Contains(msg, "rateLimitExceeded") {
		return resilience.NewTransientError(err, 429)
	}
	return err
}

func commentsDisabled(err error) bool {
	return err != nil && strings.Contains(err.Error(), "commentsDisabled")
}
