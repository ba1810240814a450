package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/vaccilearn-backend/internal/observability"
)

// Hooks captures engine-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	IncReplayed(kind string)
	IncRuleFired(context string)
	IncGrant(kind string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncReplayed(string)                             {}
func (noopHooks) IncRuleFired(string)                            {}
func (noopHooks) IncGrant(string)                                {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks reports engine events to the prometheus metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *metricsHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

func (h *metricsHooks) IncReplayed(kind string) { h.metrics.IncReplayed(kind) }

func (h *metricsHooks) IncRuleFired(context string) { h.metrics.IncRuleFired(context) }

func (h *metricsHooks) IncGrant(kind string) { h.metrics.IncGrant(kind) }
