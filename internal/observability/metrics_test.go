package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveJob("question_submission", "succeeded", time.Millisecond)
	m.IncGrant("badge")
	m.LiveClientsInc()
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have nil registry")
	}
}

func TestMetrics_Counts(t *testing.T) {
	m := New()
	m.ObserveJob("question_submission", "succeeded", 10*time.Millisecond)
	m.ObserveJob("question_submission", "succeeded", 10*time.Millisecond)
	m.IncDeadLettered("streak_progress")
	m.IncGrant("badge")

	if got := testutil.ToFloat64(m.jobsProcessed.WithLabelValues("question_submission", "succeeded")); got != 2 {
		t.Fatalf("jobsProcessed: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobsDeadLettered.WithLabelValues("streak_progress")); got != 1 {
		t.Fatalf("jobsDeadLettered: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.grants.WithLabelValues("badge")); got != 1 {
		t.Fatalf("grants: want 1, got %v", got)
	}
}
