package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	apphttp "github.com/yungbote/vaccilearn-backend/internal/http"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/sweep"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/worker"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

type App struct {
	Cfg      Config
	Log      *logger.Logger
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Repos    repos.Set
	Live     Live
	Services Services
	Worker   *worker.Worker
	Sweeper  *sweep.Sweeper
	Server   *apphttp.Server

	closeDB      func() error
	shutdownOtel func(context.Context) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.NewWithOptions(cfg.Log.Mode, logger.Options{
		File:           cfg.Log.File,
		HashLearnerIDs: cfg.Log.HashLearnerIDs,
		HashSalt:       cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Starting vaccilearn", "mode", cfg.Mode, "environment", cfg.Environment)

	a := &App{Cfg: cfg, Log: log}
	a.shutdownOtel = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Headers:     cfg.Tracing.Headers,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if cfg.Metrics.Enabled {
		a.Metrics = observability.Init(log)
	}

	store, err := openDatabase(log, cfg.Database)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = store.DB()
	a.closeDB = store.Close
	if err := store.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	a.Repos = repos.NewSet(a.DB, log)

	live, err := wireLive(ctx, log, cfg, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Live = live

	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.Metrics, live)
	if err := seedRules(ctx, log, a.Services, cfg.Rules.SeedFile); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.RunsWorker() {
		a.Worker = wireWorker(a.DB, log, cfg, a.Repos, a.Metrics, a.Services)
		if cfg.Sweep.Enabled {
			a.Sweeper = sweep.New(sweep.Deps{
				Log:      log,
				Trackers: a.Repos.Trackers,
				Failed:   a.Repos.FailedJobs,
				Reaper:   a.Worker,
				Metrics:  a.Metrics,
			}, cfg.Sweep.Spec)
		}
	}
	a.Server = apphttp.NewServer(wireRouter(log, cfg, a.Metrics, a.DB, live, a.Services))
	return a, nil
}

func seedRules(ctx context.Context, log *logger.Logger, svc Services, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("reward rule seed file not found, skipping", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rule seed: %w", err)
	}
	if _, err := svc.Rewards.SeedRules(dbctx.Context{Ctx: ctx}, raw); err != nil {
		return fmt.Errorf("seed reward rules: %w", err)
	}
	return nil
}

// Run blocks until ctx is cancelled or one of the loops fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
	if a.Live.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Live.Redis)
	}

	if a.Cfg.RunsAPI() {
		if err := a.Live.Bus.StartForwarder(ctx, func(m realtime.Message) { a.Live.Hub.Publish(m) }); err != nil {
			return fmt.Errorf("start live forwarder: %w", err)
		}
	}
	if a.Worker != nil {
		g.Go(func() error { return a.Worker.Run(ctx) })
	}
	if a.Sweeper != nil {
		g.Go(func() error { return a.Sweeper.Run(ctx) })
	}
	g.Go(func() error {
		a.Log.Info("HTTP listening", "addr", a.Cfg.HTTP.Addr)
		return a.Server.Run(ctx, a.Cfg.HTTP.Addr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Live.Bus != nil {
		_ = a.Live.Bus.Close()
	}
	if a.Live.Redis != nil {
		_ = a.Live.Redis.Close()
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
