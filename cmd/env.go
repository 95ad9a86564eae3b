package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/cache"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/registry"
	"github.com/reviewpulse/reviewpulse/internal/report"
	"github.com/reviewpulse/reviewpulse/internal/store"
	"github.com/reviewpulse/reviewpulse/internal/transcript"
	anthropicpkg "github.com/reviewpulse/reviewpulse/pkg/anthropic"
	"github.com/reviewpulse/reviewpulse/pkg/youtube"
)

// appEnv holds the initialized store, clients, and orchestrator shared by the
// run/stage/serve commands.
type appEnv struct {
	Store        store.Store
	Cache        *cache.Cache
	Registry     *registry.Registry
	Orchestrator *pipeline.Orchestrator
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "reviewpulse.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv validates config for mode, sets up the store and all clients, and
// builds the orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg, err := registry.Load(cfg.Targets.Path)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	ytClient, err := youtube.NewAPIClient(ctx, cfg.YouTube.Key, cfg.YouTube.RequestsPerSec)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	engine := transcript.NewEngine(
		youtube.NewCaptionClient(),
		youtube.NewAudioDownloader(cfg.Transcript.YtDlpPath),
		youtube.NewTranscriber(cfg.Transcript.WhisperPath, cfg.Transcript.WhisperModel, cfg.Transcript.Language),
		transcript.Config{
			PreferCaptions: cfg.Transcript.PreferCaptions,
			MaxRetries:     cfg.Transcript.MaxRetries,
			AudioDir:       cfg.Transcript.AudioDir,
			Language:       cfg.Transcript.Language,
		},
	)

	c := cache.New()
	orch := pipeline.New(
		cfg,
		st,
		c,
		ytClient,
		aiClient,
		engine,
		report.NewFileGenerator(cfg.Report.OutputDir),
	)

	return &appEnv{
		Store:        st,
		Cache:        c,
		Registry:     reg,
		Orchestrator: orch,
	}, nil
}
