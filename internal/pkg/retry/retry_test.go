package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPermanent_Classification(t *testing.T) {
	base := errors.New("boom")
	if IsPermanent(base) {
		t.Fatalf("plain error must not be permanent")
	}
	wrapped := fmt.Errorf("ctx: %w", Permanent(base))
	if !IsPermanent(wrapped) {
		t.Fatalf("wrapped permanent error not detected")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("permanent error must unwrap to its cause")
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must be nil")
	}
}

func TestBackoff_DelayDoublesAndCaps(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Fatalf("attempt %d: want %v got %v", i+1, w, got)
		}
	}
}

func TestBackoff_ZeroBaseMeansImmediate(t *testing.T) {
	if d := (Backoff{}).Delay(3); d != 0 {
		t.Fatalf("expected zero delay, got %v", d)
	}
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := Backoff{Base: time.Second, JitterFactor: 0.5}
	for i := 0; i < 50; i++ {
		d := b.Delay(1)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay out of bounds: %v", d)
		}
	}
}
