// Package app assembles the pipeline and its collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/vidbrief/internal/config"
	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/domain/repository"
	"github.com/hszk-dev/vidbrief/internal/executor"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/cache"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/localfs"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/postgres"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/sqlite"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/storage"
	"github.com/hszk-dev/vidbrief/internal/summarization"
	"github.com/hszk-dev/vidbrief/internal/transcoder"
	"github.com/hszk-dev/vidbrief/internal/transcription"
	"github.com/hszk-dev/vidbrief/internal/usecase"
)

// App holds the long-lived pieces shared by the CLI and the API server.
type App struct {
	Pipeline *usecase.Pipeline
	Cache    usecase.FingerprintCache
	Recent   repository.RecentFiles
	Engine   transcription.Engine

	closers []func() error
}

// New builds every collaborator described by cfg.
// On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, closeStore, err := OpenRecordStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	ffmpegPath, err := transcoder.ResolveFFmpegPath(cfg.FFmpeg.Bin)
	if err != nil {
		a.Close()
		return nil, err
	}

	runner := executor.New()

	ffmpegCfg := transcoder.DefaultFFmpegConfig()
	ffmpegCfg.FFmpegPath = ffmpegPath
	extractor := transcoder.NewFFmpegExtractor(ffmpegCfg, runner)

	engine, err := transcription.New(TranscriptionConfig(cfg), runner)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create transcription engine: %w", err)
	}

	summarizer, err := summarization.New(ctx, SummarizationConfig(cfg))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create summarizer: %w", err)
	}

	a.Cache = usecase.NewFingerprintCache(store)
	a.Recent = localfs.NewRecentFiles(cfg.App.RecentFilesPath(), cfg.App.RecentLimit)
	a.Engine = engine
	a.Pipeline = usecase.NewPipeline(
		a.Cache,
		extractor,
		engine,
		summarizer,
		a.Recent,
		usecase.PipelineConfig{TempDir: cfg.App.TempDir},
	)

	slog.Info("pipeline ready",
		"cache_backend", cfg.Cache.Backend,
		"transcription", engine.BackendInfo().Label(),
		"summary_model", summarizer.Model(),
		"ffmpeg", ffmpegPath,
	)

	return a, nil
}

// Close releases every resource opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// TranscriptionConfig maps application config onto the engine config.
func TranscriptionConfig(cfg *config.Config) transcription.Config {
	tc := cfg.Transcription

	remote := transcription.DefaultRemoteConfig()
	remote.APIKey = cfg.OpenAI.APIKey
	remote.BaseURL = cfg.OpenAI.BaseURL
	remote.Language = tc.Language
	remote.Timeout = tc.Timeout

	local := transcription.DefaultLocalConfig()
	local.Device = tc.Device
	local.Precision = tc.Precision
	local.ModelDir = tc.ModelDir
	local.Language = tc.Language
	local.PythonPath = tc.PythonPath
	local.ScriptPath = tc.ScriptPath
	local.Timeout = tc.Timeout

	backend := model.Backend(tc.Backend)
	if backend == model.BackendLocal {
		local.Model = tc.ModelOrDefault()
	} else {
		remote.Model = tc.ModelOrDefault()
	}

	return transcription.Config{
		Backend: backend,
		Remote:  remote,
		Local:   local,
	}
}

// SummarizationConfig maps application config onto the summarizer config.
func SummarizationConfig(cfg *config.Config) summarization.Config {
	return summarization.Config{
		Provider:      cfg.Summary.Provider,
		Model:         cfg.Summary.Model,
		Temperature:   cfg.Summary.Temperature,
		MaxTokens:     cfg.Summary.MaxTokens,
		OpenAIKey:     cfg.OpenAI.APIKey,
		OpenAIURL:     cfg.OpenAI.BaseURL,
		GeminiAPIKeys: cfg.Summary.GeminiAPIKeys,
		Timeout:       cfg.Summary.Timeout,
	}
}

// OpenRecordStore opens the record store selected by CACHE_BACKEND.
// The returned close function is never nil.
func OpenRecordStore(ctx context.Context, cfg *config.Config) (repository.RecordStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheBackendFile, "":
		store, err := localfs.NewRecordStore(cfg.App.TranscriptsDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open file cache: %w", err)
		}
		return store, noop, nil

	case config.CacheBackendSQLite:
		store, err := sqlite.Open(ctx, cfg.Cache.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return store, store.Close, nil

	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr(),
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return cache.NewRedisRecordStore(client), client.Close, nil

	case config.CacheBackendMinIO:
		m := cfg.Cache.MinIO
		store, err := storage.NewRecordStore(ctx, storage.ClientConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open minio cache: %w", err)
		}
		return store, noop, nil

	case config.CacheBackendPostgres:
		client, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Cache.Database.DSN()))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		repo, err := client.RecordRepository(ctx)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("prepare postgres cache: %w", err)
		}
		return repo, func() error { client.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
