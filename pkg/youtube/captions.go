package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/resilience"
)

// ErrNoCaptions is returned when a video has no caption track in the
// requested language.
var ErrNoCaptions = eris.New("youtube: no captions available")

// CaptionClient fetches caption tracks from YouTube's timedtext endpoint.
// Repeated endpoint failures open a circuit breaker so a batch of videos
// falls through to the audio path quickly instead of timing out one by one.
type CaptionClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *resilience.CircuitBreaker
}

// NewCaptionClient creates a timedtext caption client.
func NewCaptionClient() *CaptionClient {
	return &CaptionClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.youtube.com/api/timedtext",
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     time.Minute,
			// A missing track is a per-video answer, not endpoint trouble.
			ShouldTrip: func(err error) bool {
				return !errors.Is(err, ErrNoCaptions)
			},
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("youtube: timedtext circuit state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
	}
}

// timedtextResponse is the JSON shape of a timedtext caption track.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	Segs []timedtextSegment `json:"segs,omitempty"`
}

type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// FetchTranscript fetches the caption track for a video and flattens it into
// plain text. An empty or missing track returns ErrNoCaptions.
func (c *CaptionClient) FetchTranscript(ctx context.Context, videoID, lang string) (string, error) {
	if videoID == "" {
		return "", eris.New("youtube: video id required")
	}
	if lang == "" {
		lang = "en"
	}

	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (string, error) {
		return c.fetch(ctx, videoID, lang)
	})
}

func (c *CaptionClient) fetch(ctx context.Context, videoID, lang string) (string, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "youtube: build timedtext request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "youtube: timedtext request for %s", videoID)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", eris.Wrapf(ErrNoCaptions, "video %s lang %s", videoID, lang)
	default:
		return "", eris.Errorf("youtube: timedtext returned status %d for %s", resp.StatusCode, videoID)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", eris.Wrap(err, "youtube: read timedtext body")
	}

	text, err := parseTimedtext(body)
	if err != nil {
		return "", eris.Wrapf(err, "youtube: parse timedtext for %s", videoID)
	}
	if text == "" {
		return "", eris.Wrapf(ErrNoCaptions, "video %s lang %s", videoID, lang)
	}
	return text, nil
}

// parseTimedtext joins caption segments into one normalized string.
func parseTimedtext(data []byte) (string, error) {
	// An empty body means no track exists for the language.
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}

	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", eris.Wrap(err, "unmarshal timedtext")
	}

	var parts []string
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
