package services

import (
	"context"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
	"github.com/yungbote/vaccilearn-backend/internal/realtime/bus"
)

// =========================
// Emitters
// =========================

type Emitter interface {
	Emit(ctx context.Context, msg realtime.Message)
}

// HubEmitter publishes into the hub of this process only.
type HubEmitter struct{ Hub *realtime.Hub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.Message) {
	e.Hub.Publish(msg)
}

// BusEmitter publishes through a bus so whichever process holds the stream delivers it.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.Message) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("live publish failed", "type", msg.Type, "learner_id", msg.LearnerID, "error", err)
	}
}

// =========================
// Outcome notifier
// =========================

// Notifier announces committed engine outcomes to the learner's live stream.
// Delivery is best effort; the outcome is already durable when this runs.
type Notifier interface {
	NotifyOutcome(ctx context.Context, out domainagg.Outcome)
}

type notifier struct {
	log  *logger.Logger
	emit Emitter
}

func NewNotifier(baseLog *logger.Logger, emit Emitter) Notifier {
	return &notifier{log: baseLog.With("service", "Notifier"), emit: emit}
}

func (n *notifier) NotifyOutcome(ctx context.Context, out domainagg.Outcome) {
	if n == nil || n.emit == nil {
		return
	}
	msg, err := realtime.FromOutcome(out)
	if err != nil {
		n.log.Warn("no live message for outcome", "kind", out.Kind, "error", err)
		return
	}
	n.emit.Emit(ctx, msg)
}
