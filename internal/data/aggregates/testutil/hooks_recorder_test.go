package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	if h.LastStatus() != "" {
		t.Fatalf("expected empty status before any operation")
	}
	h.ObserveOperation("engine.op", "success", 10*time.Millisecond)
	h.IncConflict("engine.op")
	h.IncRetry("engine.op")
	h.IncReplayed("question_submission")
	h.IncRuleFired("LESSON")
	h.IncGrant("badge")

	if len(h.Operations) != 1 || h.LastStatus() != "success" {
		t.Fatalf("unexpected op events: %+v", h.Operations)
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 1 {
		t.Fatalf("unexpected conflicts/retries: %+v %+v", h.Conflicts, h.Retries)
	}
	if len(h.Replayed) != 1 || h.Replayed[0] != "question_submission" {
		t.Fatalf("unexpected replays: %+v", h.Replayed)
	}
	if len(h.RulesFired) != 1 || len(h.Grants) != 1 || h.Grants[0] != "badge" {
		t.Fatalf("unexpected rules/grants: %+v %+v", h.RulesFired, h.Grants)
	}
}
