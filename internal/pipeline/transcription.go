package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/transcript"
)

// RunTranscription acquires transcripts for the cached videos and caches the
// successes. Per-video failures are logged, never fatal.
func (o *Orchestrator) RunTranscription(ctx context.Context, target model.Target, opts Options) (map[string]string, error) {
	log := zap.L().With(zap.String("target", target.Identifier()))

	entry, ok := o.cache.Get(target.Identifier())
	if !ok || len(entry.Videos) == 0 {
		log.Warn("transcription: nothing cached for target, skipping")
		return nil, nil
	}

	videos := entry.Videos
	if opts.MaxVideos > 0 && len(videos) > opts.MaxVideos {
		videos = videos[:opts.MaxVideos]
	}

	tr := o.transcripts
	if opts.UseCaptions != nil {
		if e, ok := tr.(*transcript.Engine); ok {
			tr = e.PreferringCaptions(*opts.UseCaptions)
		}
	}

	transcripts, outcomes := tr.Acquire(ctx, videos)
	for _, out := range outcomes {
		if !out.OK {
			log.Warn("transcription: video failed",
				zap.String("video", out.VideoID),
				zap.String("error", out.Err),
			)
		}
	}

	o.cache.PutTranscripts(target.Identifier(), transcripts)
	log.Info("transcription: complete",
		zap.Int("requested", len(videos)),
		zap.Int("acquired", len(transcripts)),
	)
	return transcripts, nil
}
