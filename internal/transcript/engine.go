// Package transcript acquires video transcripts, preferring published
// captions and falling back to audio download plus speech recognition.
package transcript

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/pkg/youtube"
)

// CaptionFetcher fetches a published caption track as plain text.
type CaptionFetcher interface {
	FetchTranscript(ctx context.Context, videoID, lang string) (string, error)
}

// AudioDownloader fetches a video's audio track to local disk.
type AudioDownloader interface {
	Download(ctx context.Context, videoURL, destDir string) (string, error)
}

// SpeechRecognizer converts an audio file to text.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Config tunes transcript acquisition.
type Config struct {
	// PreferCaptions tries the caption track before downloading audio.
	PreferCaptions bool

	// MaxRetries is the number of extra audio attempts after the first
	// one fails. 2 means up to 3 audio attempts per video.
	MaxRetries int

	// AudioDir is where downloaded audio lands. Empty means os.TempDir.
	AudioDir string

	// Language is the caption/speech language code.
	Language string

	// Concurrency bounds parallel acquisitions. Defaults to 2.
	Concurrency int
}

// Engine coordinates caption fetch, audio download, and speech recognition.
type Engine struct {
	captions   CaptionFetcher
	downloader AudioDownloader
	recognizer SpeechRecognizer
	cfg        Config
}

// NewEngine creates a transcript engine.
func NewEngine(captions CaptionFetcher, downloader AudioDownloader, recognizer SpeechRecognizer, cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = os.TempDir()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Engine{captions: captions, downloader: downloader, recognizer: recognizer, cfg: cfg}
}

// PreferringCaptions returns a copy of the engine with the caption preference
// overridden, leaving the receiver untouched. Used for per-request overrides.
func (e *Engine) PreferringCaptions(prefer bool) *Engine {
	clone := *e
	clone.cfg.PreferCaptions = prefer
	return &clone
}

// Acquire fetches a transcript for every video. Failures are recorded per
// video and never abort the rest of the batch. The returned map holds
// transcripts keyed by video URL for the videos that succeeded.
func (e *Engine) Acquire(ctx context.Context, videos []model.Video) (map[string]string, []model.TranscriptionOutcome) {
	transcripts := make(map[string]string, len(videos))
	outcomes := make([]model.TranscriptionOutcome, len(videos))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i, v := range videos {
		g.Go(func() error {
			outcome := e.acquireOne(gctx, v)
			mu.Lock()
			outcomes[i] = outcome
			if outcome.OK {
				transcripts[v.URL] = outcome.Transcript
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return transcripts, outcomes
}

// acquireOne runs the caption-then-audio ladder for one video.
func (e *Engine) acquireOne(ctx context.Context, v model.Video) model.TranscriptionOutcome {
	outcome := model.TranscriptionOutcome{VideoURL: v.URL, VideoID: v.ID}

	if e.cfg.PreferCaptions {
		text, err := e.captions.FetchTranscript(ctx, v.ID, e.cfg.Language)
		if err == nil {
			outcome.Transcript = text
			outcome.OK = true
			return outcome
		}
		if !errors.Is(err, youtube.ErrNoCaptions) {
			zap.L().Debug("transcript: caption fetch failed",
				zap.String("video_id", v.ID),
				zap.Error(err),
			)
		}
	}

	text, err := e.audioTranscript(ctx, v)
	if err != nil {
		outcome.Err = err.Error()
		zap.L().Warn("transcript: acquisition failed",
			zap.String("video_id", v.ID),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Transcript = text
	outcome.OK = true
	return outcome
}

// audioTranscript downloads audio and runs speech recognition, retrying the
// whole sequence up to MaxRetries extra times. The audio file is removed
// after every attempt, successful or not.
func (e *Engine) audioTranscript(ctx context.Context, v model.Video) (string, error) {
	attempts := e.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", eris.Wrap(ctx.Err(), "transcript: canceled")
		}

		text, err := e.audioAttempt(ctx, v)
		if err == nil {
			return text, nil
		}
		lastErr = err

		// A removed or private video will not come back.
		if errors.Is(err, youtube.ErrVideoUnavailable) {
			return "", lastErr
		}

		if attempt < attempts-1 {
			zap.L().Debug("transcript: retrying audio path",
				zap.String("video_id", v.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	return "", lastErr
}

func (e *Engine) audioAttempt(ctx context.Context, v model.Video) (string, error) {
	audioPath, err := e.downloader.Download(ctx, v.URL, e.cfg.AudioDir)
	if err != nil {
		return "", eris.Wrapf(err, "transcript: download audio for %s", v.ID)
	}
	defer os.Remove(audioPath)

	text, err := e.recognizer.Transcribe(ctx, audioPath)
	if err != nil {
		return "", eris.Wrapf(err, "transcript: recognize audio for %s", v.ID)
	}
	return text, nil
}
