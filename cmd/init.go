package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triptomat/trip-analyzer/internal/config"
	"github.com/triptomat/trip-analyzer/internal/media"
	"github.com/triptomat/trip-analyzer/internal/pipeline"
	"github.com/triptomat/trip-analyzer/internal/scrape"
	"github.com/triptomat/trip-analyzer/internal/store"
	"github.com/triptomat/trip-analyzer/internal/worker"
	anthropicpkg "github.com/triptomat/trip-analyzer/pkg/anthropic"
	"github.com/triptomat/trip-analyzer/pkg/gemini"
	"github.com/triptomat/trip-analyzer/pkg/maps"
	"github.com/triptomat/trip-analyzer/pkg/webhook"
)

// env holds all initialized capabilities, the store, and the pipeline
// needed by the run/serve/jobs commands.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Runner   *worker.Runner
	Scraper  *scrape.WebScraper
}

// Close releases resources held by the environment.
func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv loads the category master list, constructs every capability
// client once, and wires the pipeline. Callers should defer env.Close().
// A missing category config is fatal here, before any job exists.
func initEnv(ctx context.Context) (*env, error) {
	cats, err := config.LoadCategories(cfg.Categories.Path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded category master list",
		zap.Int("allowed", len(cats.Allowed)),
		zap.Int("geo", len(cats.Geo)),
	)

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	analyzer, err := initAnalyzer()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	mapsClient := maps.NewClient(cfg.Maps.Key,
		maps.WithReverseLanguage(cfg.Maps.ReverseLanguage),
		maps.WithPhotoRadius(cfg.Maps.PhotoRadius),
		maps.WithRateLimit(cfg.Maps.RatePerSecond),
	)

	scraper := scrape.New(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second)
	mediaClient := media.NewYtDlp(cfg.Media.YtDlpPath, cfg.Media.ScratchDir)
	sink := webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Token)

	preparer := pipeline.NewPreparer(scraper, mediaClient, mapsClient, cfg.Scrape.MaxTextChars)
	p := pipeline.New(preparer, analyzer, mapsClient, sink, pipeline.BuildPrompt(cats))

	return &env{
		Store:    st,
		Pipeline: p,
		Runner:   worker.NewRunner(p, st),
		Scraper:  scraper,
	}, nil
}

// initStore builds the configured job-status store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		return store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			TTL:      time.Duration(cfg.Store.TTLHours) * time.Hour,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// initAnalyzer builds the configured model capability.
func initAnalyzer() (pipeline.Analyzer, error) {
	switch cfg.Analyzer.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic provider selected but no api key configured")
		}
		return anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithModel(cfg.Anthropic.Model)), nil
	case "gemini", "":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("gemini provider selected but no api key configured")
		}
		return gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithUploadBaseURL(cfg.Gemini.UploadBaseURL),
			gemini.WithModels(cfg.Gemini.VideoModel, cfg.Gemini.TextModel),
			gemini.WithPollInterval(time.Duration(cfg.Gemini.PollIntervalSecs)*time.Second),
			gemini.WithPollTimeout(time.Duration(cfg.Gemini.PollTimeoutSecs)*time.Second),
		), nil
	default:
		return nil, eris.Errorf("unknown analyzer provider: %s", cfg.Analyzer.Provider)
	}
}
