package app

import (
	"gorm.io/gorm"

	dataagg "github.com/yungbote/vaccilearn-backend/internal/data/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/pipeline/daily_goal_progress"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/pipeline/game_completion"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/pipeline/question_submission"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/pipeline/streak_progress"
	jobruntime "github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/worker"
	progressmod "github.com/yungbote/vaccilearn-backend/internal/modules/progress"
	rewardsmod "github.com/yungbote/vaccilearn-backend/internal/modules/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/retry"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type Services struct {
	Progress progressmod.Usecases
	Rewards  rewardsmod.Usecases
	Engine   domainagg.ProgressEngine
	Notifier services.Notifier

	Submissions services.SubmissionService
	Summaries   services.SummaryService
	FailedJobs  services.FailedJobService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, m *observability.Metrics, live Live) Services {
	log.Info("Wiring services...")

	progress := progressmod.New(progressmod.UsecasesDeps{
		DB:        db,
		Log:       log,
		Catalog:   set.Catalog,
		Hierarchy: set.Hierarchy,
		Trackers:  set.Trackers,
		Ledger:    set.EventLedger,
	})
	rewards := rewardsmod.New(rewardsmod.UsecasesDeps{
		DB:        db,
		Log:       log,
		Rules:     set.Rules,
		Grants:    set.Grants,
		Summaries: set.Summaries,
	})
	engine := dataagg.NewProgressEngine(dataagg.ProgressEngineDeps{
		BaseDeps: dataagg.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: dataagg.NewObservabilityHooks(m),
		},
		Progress: progress,
		Rewards:  rewards,
		Ledger:   set.EventLedger,
	})

	return Services{
		Progress: progress,
		Rewards:  rewards,
		Engine:   engine,
		Notifier: services.NewNotifier(log, &services.BusEmitter{Bus: live.Bus, Log: log}),
		Submissions: services.NewSubmissionService(services.SubmissionServiceDeps{
			Log:         log,
			Jobs:        set.JobRuns,
			Catalog:     set.Catalog,
			Trackers:    set.Trackers,
			Progress:    progress,
			Metrics:     m,
			MaxAttempts: cfg.Worker.MaxAttempts,
		}),
		Summaries:  services.NewSummaryService(log, set.Summaries, set.Grants),
		FailedJobs: services.NewFailedJobService(log, set.FailedJobs),
	}
}

func wireWorker(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, m *observability.Metrics, svc Services) *worker.Worker {
	log.Info("Wiring job worker...")
	registry := jobruntime.NewRegistry()
	for _, h := range []jobruntime.Handler{
		question_submission.New(log, svc.Engine, svc.Notifier),
		streak_progress.New(log, svc.Engine, svc.Notifier),
		daily_goal_progress.New(log, svc.Engine, svc.Notifier),
		game_completion.New(log, svc.Engine, svc.Notifier),
	} {
		if err := registry.Register(h); err != nil {
			// only reachable with a duplicate kind, which is a wiring bug
			log.Fatal("register job handler", "job_type", h.Type(), "error", err)
		}
	}
	return worker.NewWorker(worker.WorkerDeps{
		DB:       db,
		Log:      log,
		Jobs:     set.JobRuns,
		Failed:   set.FailedJobs,
		Registry: registry,
		Metrics:  m,
	}, worker.Options{
		Concurrency:        cfg.Worker.Concurrency,
		DefaultConcurrency: cfg.Worker.DefaultConcurrency,
		PollInterval:       cfg.Worker.PollInterval,
		StaleRunning:       cfg.Worker.StaleRunning,
		Backoff: retry.Backoff{
			Base:         cfg.Worker.BackoffBase,
			Max:          cfg.Worker.BackoffMax,
			JitterFactor: 0.1,
		},
	})
}
