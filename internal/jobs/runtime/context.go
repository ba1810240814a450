package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/retry"
)

/*
Context is the execution handle for one claimed job attempt.

Handlers read their typed payload through Decode, may extend the worker's
lease with Heartbeat, and hand back a result with SetResult. They never write
the job_run row: the worker owns every status transition based on the error
Run returns.
*/
type Context struct {
	Ctx  context.Context
	Job  *types.JobRun
	Repo repos.JobRunRepo
	Log  *logger.Logger

	result any
}

// NewContext binds the job's producer trace ids into ctx so downstream logs correlate.
func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo, log *logger.Logger) *Context {
	c := &Context{
		Ctx:  ctx,
		Job:  job,
		Repo: repo,
		Log:  log,
	}
	c.applyTraceData()
	return c
}

func (c *Context) applyTraceData() {
	if c.Ctx == nil || c.Job == nil || len(c.Job.Payload) == 0 {
		return
	}
	var envelope struct {
		Trace jobs.Trace `json:"trace"`
	}
	if err := json.Unmarshal(c.Job.Payload, &envelope); err != nil {
		return
	}
	traceID := strings.TrimSpace(envelope.Trace.TraceID)
	reqID := strings.TrimSpace(envelope.Trace.RequestID)
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
	if c.Log != nil {
		c.Log = c.Log.With("trace_id", traceID, "request_id", reqID)
	}
}

// Decode unmarshals the job payload into dst. A payload that cannot be decoded will
// never decode, so the error is permanent.
func (c *Context) Decode(dst any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return retry.Permanent(fmt.Errorf("job has no payload"))
	}
	if err := json.Unmarshal(c.Job.Payload, dst); err != nil {
		return retry.Permanent(fmt.Errorf("decode %s payload: %w", c.Job.JobType, err))
	}
	return nil
}

// JobID is the id handed to the engine so the ledger row points back at this job.
func (c *Context) JobID() *uuid.UUID {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	id := c.Job.ID
	return &id
}

// Heartbeat extends the running lease so the row is not reclaimed as stale.
func (c *Context) Heartbeat() error {
	if c.Repo == nil || c.Job == nil {
		return nil
	}
	return c.Repo.Heartbeat(dbctx.Context{Ctx: c.Ctx}, c.Job.ID)
}

// SetResult stores the value persisted on job_run.result when the attempt succeeds.
func (c *Context) SetResult(v any) { c.result = v }

// Result encodes the stored result; nil when the handler set none.
func (c *Context) Result() (datatypes.JSON, error) {
	if c.result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(c.result)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
