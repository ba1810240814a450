package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	l := Nop()
	out := l.sanitizeKVs([]interface{}{"access_token", "abc", "learner_id", "L1", "dangling"})
	if len(out) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("token not redacted: %v", out[1])
	}
	if out[3] != "L1" {
		t.Fatalf("learner id should pass through without hashing, got %v", out[3])
	}
	if out[4] != "dangling" {
		t.Fatalf("odd trailing key should be kept, got %v", out[4])
	}
}

func TestSanitizeKVs_HashesLearnerIDs(t *testing.T) {
	l := Nop()
	l.redact = redactConfig{hashLearnerIDs: true, salt: "s"}
	out := l.sanitizeKVs([]interface{}{"vaccinator_id", "abc"})
	got, _ := out[1].(string)
	if !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("unexpected hash %q", got)
	}
	again := l.sanitizeKVs([]interface{}{"learner_id", "abc"})
	if again[1] != got {
		t.Fatalf("hash must be stable: %v vs %v", again[1], got)
	}
}
