package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/pipeline/question_submission"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
	"github.com/yungbote/vaccilearn-backend/internal/jobs/worker"
	progressmod "github.com/yungbote/vaccilearn-backend/internal/modules/progress"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/retry"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type scriptedHandler struct {
	kind string
	err  error

	mu    sync.Mutex
	calls int
	seen  []string
}

func (h *scriptedHandler) Type() string { return h.kind }

func (h *scriptedHandler) Run(jc *runtime.Context) error {
	var payload struct {
		Note string `json:"note"`
	}
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	h.mu.Lock()
	h.calls++
	h.seen = append(h.seen, payload.Note)
	h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	jc.SetResult(map[string]any{"note": payload.Note})
	return nil
}

type fixture struct {
	db     *gorm.DB
	set    repos.Set
	worker *worker.Worker
}

func newFixture(t *testing.T, handlers ...runtime.Handler) fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	w := worker.NewWorker(worker.WorkerDeps{
		DB:       db,
		Log:      log,
		Jobs:     set.JobRuns,
		Failed:   set.FailedJobs,
		Registry: reg,
		Metrics:  observability.New(),
	}, worker.Options{StaleRunning: time.Minute})
	return fixture{db: db, set: set, worker: w}
}

func enqueue(t *testing.T, f fixture, kind string, maxAttempts int, payload string) *types.JobRun {
	t.Helper()
	job, created, err := f.set.JobRuns.Enqueue(dbctx.Context{Ctx: context.Background()}, &types.JobRun{
		LearnerID:      uuid.New(),
		JobType:        kind,
		IdempotencyKey: jobs.IdempotencyKey(kind, uuid.New()),
		MaxAttempts:    maxAttempts,
		Payload:        datatypes.JSON([]byte(payload)),
	})
	if err != nil || !created {
		t.Fatalf("enqueue: created=%v err=%v", created, err)
	}
	return job
}

// drain runs the kind until nothing is claimable, bounded so a broken state
// machine fails instead of spinning.
func drain(t *testing.T, f fixture, kind string) int {
	t.Helper()
	n := 0
	for i := 0; i < 20; i++ {
		processed, err := f.worker.ProcessNext(context.Background(), kind)
		if err != nil {
			t.Fatalf("ProcessNext: %v", err)
		}
		if !processed {
			return n
		}
		n++
	}
	t.Fatalf("queue for %s never drained", kind)
	return n
}

func failedRows(t *testing.T, f fixture, jobID uuid.UUID) []*types.FailedJob {
	t.Helper()
	var rows []*types.FailedJob
	if err := f.db.Where("job_run_id = ?", jobID).Find(&rows).Error; err != nil {
		t.Fatalf("load failed jobs: %v", err)
	}
	return rows
}

func TestWorker_DeadLettersAfterMaxAttempts(t *testing.T) {
	kind := "always_fails_" + uuid.NewString()
	h := &scriptedHandler{kind: kind, err: errors.New("deadlock detected")}
	f := newFixture(t, h)
	payload := `{"note":"original","trace":{"trace_id":"trace-1","request_id":"req-1"}}`
	job := enqueue(t, f, kind, 3, payload)

	if got := drain(t, f, kind); got != 3 {
		t.Fatalf("claims: got %d want 3", got)
	}
	if h.calls != 3 {
		t.Fatalf("handler calls: got %d want 3", h.calls)
	}

	row, err := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if err != nil || row == nil {
		t.Fatalf("reload job: %v", err)
	}
	if row.Status != jobs.StatusDead || row.Attempts != 3 || row.LastError != "deadlock detected" || row.FinishedAt == nil {
		t.Fatalf("job row: %+v", row)
	}

	dead := failedRows(t, f, job.ID)
	if len(dead) != 1 {
		t.Fatalf("failed_job rows: got %d want 1", len(dead))
	}
	fj := dead[0]
	if fj.Status != jobs.FailedStatusFailed || fj.QueueName != kind || fj.Attempts != 3 || fj.MaxAttempts != 3 || fj.LearnerID != job.LearnerID {
		t.Fatalf("failed job: %+v", fj)
	}
	var got, want map[string]any
	if err := json.Unmarshal(fj.Payload, &got); err != nil {
		t.Fatalf("decode dead-letter payload: %v", err)
	}
	_ = json.Unmarshal([]byte(payload), &want)
	if got["note"] != want["note"] || got["trace"] == nil {
		t.Fatalf("dead-letter payload: %v", got)
	}

	// nothing left to claim, and a second pass does not write another record
	if got := drain(t, f, kind); got != 0 {
		t.Fatalf("dead job was claimed again")
	}
	if n := len(failedRows(t, f, job.ID)); n != 1 {
		t.Fatalf("failed_job rows after second pass: %d", n)
	}
}

func TestWorker_PermanentErrorSkipsRetries(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"retry permanent", retry.Permanent(errors.New("bad payload"))},
		{"aggregate validation", domainagg.NewError(domainagg.CodeValidation, "op", "negative score", nil)},
		{"aggregate not found", domainagg.NewError(domainagg.CodeNotFound, "op", "item missing", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind := "permanent_" + uuid.NewString()
			h := &scriptedHandler{kind: kind, err: tc.err}
			f := newFixture(t, h)
			job := enqueue(t, f, kind, 5, `{"note":"x"}`)

			if got := drain(t, f, kind); got != 1 {
				t.Fatalf("claims: got %d want 1", got)
			}
			row, _ := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
			if row.Status != jobs.StatusDead || row.Attempts != 1 {
				t.Fatalf("job row: %+v", row)
			}
			if n := len(failedRows(t, f, job.ID)); n != 1 {
				t.Fatalf("failed_job rows: %d", n)
			}
		})
	}
}

func TestWorker_UndecodablePayloadIsDeadOnFirstAttempt(t *testing.T) {
	kind := "garbled_" + uuid.NewString()
	h := &scriptedHandler{kind: kind}
	f := newFixture(t, h)
	job := enqueue(t, f, kind, 5, `[1,2,3]`)

	drain(t, f, kind)
	row, _ := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if row.Status != jobs.StatusDead || row.Attempts != 1 {
		t.Fatalf("job row: %+v", row)
	}
	if h.calls != 0 {
		t.Fatalf("handler body should not run on decode failure")
	}
}

type panicHandler struct{ kind string }

func (h panicHandler) Type() string                  { return h.kind }
func (h panicHandler) Run(jc *runtime.Context) error { panic("nil map write") }

func TestWorker_PanicIsRetriedThenDeadLettered(t *testing.T) {
	kind := "panics_" + uuid.NewString()
	f := newFixture(t, panicHandler{kind: kind})
	job := enqueue(t, f, kind, 2, `{}`)

	if got := drain(t, f, kind); got != 2 {
		t.Fatalf("claims: got %d want 2", got)
	}
	row, _ := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if row.Status != jobs.StatusDead || row.LastError != "panic: nil map write" {
		t.Fatalf("job row: %+v", row)
	}
}

func TestWorker_SucceedsAndStoresResult(t *testing.T) {
	kind := "ok_" + uuid.NewString()
	h := &scriptedHandler{kind: kind}
	f := newFixture(t, h)
	job := enqueue(t, f, kind, 3, `{"note":"hello"}`)

	if got := drain(t, f, kind); got != 1 {
		t.Fatalf("claims: %d", got)
	}
	row, _ := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if row.Status != jobs.StatusSucceeded || row.FinishedAt == nil {
		t.Fatalf("job row: %+v", row)
	}
	var res map[string]any
	if err := json.Unmarshal(row.Result, &res); err != nil || res["note"] != "hello" {
		t.Fatalf("result: %s (%v)", row.Result, err)
	}
	if n := len(failedRows(t, f, job.ID)); n != 0 {
		t.Fatalf("succeeded job must not be dead-lettered")
	}
}

func TestWorker_UnknownKind(t *testing.T) {
	f := newFixture(t)
	if _, err := f.worker.ProcessNext(context.Background(), "nobody_handles_this"); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

func TestWorker_DeadLetterStale(t *testing.T) {
	kind := "stale_" + uuid.NewString()
	f := newFixture(t, &scriptedHandler{kind: kind})
	old := time.Now().UTC().Add(-time.Hour)
	job := &types.JobRun{
		ID:             uuid.New(),
		LearnerID:      uuid.New(),
		JobType:        kind,
		IdempotencyKey: jobs.IdempotencyKey(kind, uuid.New()),
		Status:         jobs.StatusRunning,
		Attempts:       3,
		MaxAttempts:    3,
		NextRunAt:      old,
		HeartbeatAt:    &old,
		LockedAt:       &old,
		Payload:        datatypes.JSON([]byte(`{"note":"lost"}`)),
		CreatedAt:      old,
		UpdatedAt:      old,
	}
	if err := f.db.Create(job).Error; err != nil {
		t.Fatalf("seed stale job: %v", err)
	}

	n, err := f.worker.DeadLetterStale(context.Background(), 100)
	if err != nil {
		t.Fatalf("DeadLetterStale: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected the stale job to be dead-lettered")
	}
	row, _ := f.set.JobRuns.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if row.Status != jobs.StatusDead {
		t.Fatalf("job row: %+v", row)
	}
	if got := len(failedRows(t, f, job.ID)); got != 1 {
		t.Fatalf("failed_job rows: %d", got)
	}
}

type captureEmitter struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (e *captureEmitter) Emit(_ context.Context, msg realtime.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func TestWorker_QuestionSubmissionEndToEnd(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	tree := testutil.SeedTree(t, db, 1, 10, [][]int{{2}})
	lesson := tree.Lessons[tree.Units[0].ID][0]
	first, second := tree.Items[lesson.ID][0], tree.Items[lesson.ID][1]

	engine := aggregates.NewProgressEngineFromRepos(aggregates.BaseDeps{DB: db, Log: log}, set)
	emit := &captureEmitter{}
	notify := services.NewNotifier(log, emit)

	reg := runtime.NewRegistry()
	if err := reg.Register(question_submission.New(log, engine, notify)); err != nil {
		t.Fatalf("register: %v", err)
	}
	w := worker.NewWorker(worker.WorkerDeps{
		DB: db, Log: log, Jobs: set.JobRuns, Failed: set.FailedJobs, Registry: reg,
	}, worker.Options{})

	submissions := services.NewSubmissionService(services.SubmissionServiceDeps{
		Log:      log,
		Jobs:     set.JobRuns,
		Catalog:  set.Catalog,
		Trackers: set.Trackers,
		Progress: progressmod.New(progressmod.UsecasesDeps{DB: db, Log: log, Catalog: set.Catalog, Hierarchy: set.Hierarchy, Trackers: set.Trackers, Ledger: set.EventLedger}),
	})
	learner := uuid.New()
	dbc := dbctx.Context{Ctx: context.Background()}
	ack, err := submissions.SubmitQuestion(dbc, learner, services.QuestionSubmission{LessonItemID: first.ID, Answer: " A "})
	if err != nil {
		t.Fatalf("SubmitQuestion: %v", err)
	}
	if !ack.Accepted || !ack.Correctness || ack.NextItemPointer == nil || *ack.NextItemPointer != second.ID {
		t.Fatalf("ack: %+v", ack)
	}

	processed, err := w.ProcessNext(context.Background(), jobs.KindQuestionSubmission)
	if err != nil || !processed {
		t.Fatalf("ProcessNext: processed=%v err=%v", processed, err)
	}
	row, _ := set.JobRuns.GetByID(dbc, ack.JobID)
	if row.Status != jobs.StatusSucceeded {
		t.Fatalf("job row: %+v", row)
	}
	var out domainagg.Outcome
	if err := json.Unmarshal(row.Result, &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.SubmissionID != ack.SubmissionID || out.Rewards.XP != 10 {
		t.Fatalf("stored outcome: %+v", out)
	}

	if len(emit.msgs) != 1 {
		t.Fatalf("live messages: %d", len(emit.msgs))
	}
	msg := emit.msgs[0]
	if msg.LearnerID != learner || msg.Type != realtime.TypeQuestionSubmissionResult {
		t.Fatalf("live message: %+v", msg)
	}

	// a client retrying with the same submission id collapses onto the first job
	dup, err := submissions.SubmitQuestion(dbc, learner, services.QuestionSubmission{
		SubmissionID: ack.SubmissionID, LessonItemID: first.ID, Answer: "a",
	})
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if !dup.Duplicate || dup.JobID != ack.JobID {
		t.Fatalf("duplicate ack: %+v", dup)
	}
}
