package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/retry"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetrying  = "retrying"
	OutcomeDead      = "dead"
)

type Options struct {
	// Concurrency overrides DefaultConcurrency per job kind.
	Concurrency        map[string]int
	DefaultConcurrency int
	PollInterval       time.Duration
	// StaleRunning is how long a running row may go without a heartbeat before another
	// worker may reclaim it.
	StaleRunning time.Duration
	Backoff      retry.Backoff
}

func (o Options) withDefaults() Options {
	if o.DefaultConcurrency < 1 {
		o.DefaultConcurrency = 2
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.StaleRunning <= 0 {
		o.StaleRunning = 5 * time.Minute
	}
	return o
}

func (o Options) concurrency(kind string) int {
	if n, ok := o.Concurrency[kind]; ok && n > 0 {
		return n
	}
	return o.DefaultConcurrency
}

type WorkerDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Jobs     repos.JobRunRepo
	Failed   repos.FailedJobRepo
	Registry *runtime.Registry
	Metrics  *observability.Metrics
}

// Worker runs one pool per registered job kind and owns every job_run transition
// after the claim.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.JobRunRepo
	failed   repos.FailedJobRepo
	registry *runtime.Registry
	metrics  *observability.Metrics
	opts     Options
	now      func() time.Time
}

func NewWorker(deps WorkerDeps, opts Options) *Worker {
	return &Worker{
		db:       deps.DB,
		log:      deps.Log.With("component", "JobWorker"),
		jobs:     deps.Jobs,
		failed:   deps.Failed,
		registry: deps.Registry,
		metrics:  deps.Metrics,
		opts:     opts.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled and every loop has returned.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, kind := range w.registry.Types() {
		n := w.opts.concurrency(kind)
		w.log.Info("Starting job worker pool", "job_type", kind, "concurrency", n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(kind string, workerID int) {
				defer wg.Done()
				w.runLoop(ctx, kind, workerID)
			}(kind, i+1)
		}
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, kind string, workerID int) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Worker loop stopped", "job_type", kind, "worker_id", workerID)
			return
		case <-ticker.C:
			// drain while there is work so a backlog is not paced by the ticker
			for ctx.Err() == nil {
				processed, err := w.ProcessNext(ctx, kind)
				if err != nil {
					w.log.Warn("job processing failed", "job_type", kind, "worker_id", workerID, "error", err)
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessNext claims and runs at most one job of kind. It reports whether a job was
// claimed; the returned error covers claim and bookkeeping failures only, never the
// handler's own error, which is folded into the job's state.
func (w *Worker) ProcessNext(ctx context.Context, kind string) (bool, error) {
	h, ok := w.registry.Get(kind)
	if !ok {
		return false, &missingHandlerError{JobType: kind}
	}
	job, err := w.jobs.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, kind, w.opts.StaleRunning)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", kind, err)
	}
	if job == nil {
		return false, nil
	}
	return true, w.execute(ctx, h, job)
}

func (w *Worker) execute(ctx context.Context, h runtime.Handler, job *types.JobRun) error {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "job."+job.JobType, trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", job.JobType),
		attribute.Int("job.attempt", job.Attempts),
		attribute.Int("job.max_attempts", job.MaxAttempts),
	))
	defer span.End()

	log := w.log.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "learner_id", job.LearnerID)
	jc := runtime.NewContext(ctx, job, w.jobs, log)

	stop := w.keepAlive(jc)
	runErr := w.run(h, jc)
	stop()

	// bookkeeping must land even when shutdown cancelled the attempt
	finCtx := context.WithoutCancel(ctx)
	outcome, finErr := w.finish(finCtx, jc, runErr)

	span.SetAttributes(attribute.String("job.outcome", outcome))
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, outcome)
	}
	w.metrics.ObserveJob(job.JobType, outcome, time.Since(start))

	switch outcome {
	case OutcomeSucceeded:
		jc.Log.Debug("job succeeded")
	case OutcomeRetrying:
		jc.Log.Warn("job failed; retry scheduled", "error", runErr)
	case OutcomeDead:
		jc.Log.Error("job dead-lettered", "error", runErr)
	}
	return finErr
}

func (w *Worker) run(h runtime.Handler, jc *runtime.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			jc.Log.Error("Job handler panic", "panic", r)
			err = errFromRecover(r)
		}
	}()
	return h.Run(jc)
}

// keepAlive heartbeats while the handler runs so long attempts are not reclaimed.
func (w *Worker) keepAlive(jc *runtime.Context) func() {
	every := w.opts.StaleRunning / 3
	if every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := jc.Heartbeat(); err != nil {
					jc.Log.Warn("heartbeat failed", "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

func (w *Worker) finish(ctx context.Context, jc *runtime.Context, runErr error) (string, error) {
	job := jc.Job
	dbc := dbctx.Context{Ctx: ctx}
	if runErr == nil {
		result, err := jc.Result()
		if err != nil {
			jc.Log.Warn("job result not encodable", "error", err)
			result = nil
		}
		if err := w.jobs.MarkSucceeded(dbc, job.ID, result); err != nil {
			return OutcomeSucceeded, fmt.Errorf("mark succeeded: %w", err)
		}
		return OutcomeSucceeded, nil
	}

	if permanent(runErr) || job.Attempts >= job.MaxAttempts {
		if err := w.deadLetter(ctx, job, runErr.Error()); err != nil {
			return OutcomeDead, err
		}
		return OutcomeDead, nil
	}

	next := w.now().Add(w.opts.Backoff.Delay(job.Attempts))
	if err := w.jobs.ScheduleRetry(dbc, job.ID, runErr.Error(), next); err != nil {
		return OutcomeRetrying, fmt.Errorf("schedule retry: %w", err)
	}
	return OutcomeRetrying, nil
}

// deadLetter marks the row dead and writes its failed_job record in one transaction.
func (w *Worker) deadLetter(ctx context.Context, job *types.JobRun, lastErr string) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := w.jobs.MarkDead(dbc, job.ID, lastErr); err != nil {
			return err
		}
		_, err := w.failed.Record(dbc, &types.FailedJob{
			JobRunID:    job.ID,
			QueueName:   job.JobType,
			LearnerID:   job.LearnerID,
			Payload:     job.Payload,
			Attempts:    job.Attempts,
			MaxAttempts: job.MaxAttempts,
			Status:      jobs.FailedStatusFailed,
			LastError:   lastErr,
			CreatedAt:   w.now(),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", job.ID, err)
	}
	w.metrics.IncDeadLettered(job.JobType)
	return nil
}

// DeadLetterStale moves running rows whose worker vanished on their final attempt to the
// dead-letter store; the claim query never picks those up again.
func (w *Worker) DeadLetterStale(ctx context.Context, limit int) (int, error) {
	stale, err := w.jobs.ListStaleExhausted(dbctx.Context{Ctx: ctx}, w.opts.StaleRunning, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, job := range stale {
		if err := w.deadLetter(ctx, job, "worker lost heartbeat on final attempt"); err != nil {
			return n, err
		}
		w.metrics.ObserveJob(job.JobType, OutcomeDead, 0)
		n++
	}
	return n, nil
}

func permanent(err error) bool {
	var missing *missingHandlerError
	return retry.IsPermanent(err) || domainagg.Permanent(err) || errors.As(err, &missing)
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
