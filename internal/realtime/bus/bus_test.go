package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

func testMessage(t *testing.T) realtime.Message {
	t.Helper()
	msg, err := realtime.NewMessage(realtime.TypeStreakProgressResult, uuid.New(), true, map[string]any{"k": 1}, nil)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func TestLocalBus_ForwardsUntilCancelled(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := testMessage(t)
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.LearnerID != want.LearnerID || m.Type != want.Type {
			t.Fatalf("forwarded message mismatch: %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("message not forwarded")
	}

	_ = b.Close()
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish after close: %v", err)
	}
	select {
	case <-got:
		t.Fatalf("closed bus should not forward")
	default:
	}
}

func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := NewRedisClient(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	b, err := NewRedisBus(log, rdb, "vaccilearn:test:"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}

	got := make(chan realtime.Message, 1)
	if err := b.StartForwarder(ctx, func(m realtime.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := testMessage(t)
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.LearnerID != want.LearnerID || string(m.Body) != string(want.Body) {
			t.Fatalf("round trip mismatch: %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for redis message")
	}
}
