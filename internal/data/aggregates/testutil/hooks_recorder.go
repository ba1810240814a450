package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/vaccilearn-backend/internal/data/aggregates"
)

// HooksRecorder captures engine hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Replayed   []string
	RulesFired []string
	Grants     []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) { h.add(&h.Conflicts, name) }

func (h *HooksRecorder) IncRetry(name string) { h.add(&h.Retries, name) }

func (h *HooksRecorder) IncReplayed(kind string) { h.add(&h.Replayed, kind) }

func (h *HooksRecorder) IncRuleFired(context string) { h.add(&h.RulesFired, context) }

func (h *HooksRecorder) IncGrant(kind string) { h.add(&h.Grants, kind) }

func (h *HooksRecorder) add(dst *[]string, v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*dst = append(*dst, v)
}

// LastStatus is the status of the most recent operation, or "" when none was observed.
func (h *HooksRecorder) LastStatus() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Operations) == 0 {
		return ""
	}
	return h.Operations[len(h.Operations)-1].Status
}
