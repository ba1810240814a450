package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for live message")
	}
	return Message{}
}

func mustMessage(t *testing.T, learnerID uuid.UUID, seq int) Message {
	t.Helper()
	msg, err := NewMessage(TypeDailyGoalProgressResult, learnerID, true, map[string]any{"seq": seq}, nil)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func TestHub_OrderingAndReconnect(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	learner := uuid.New()

	clientA := hub.Subscribe(learner)
	hub.Publish(mustMessage(t, learner, 1))
	hub.Publish(mustMessage(t, learner, 2))

	first := recvMessage(t, clientA.Outbound, time.Second)
	second := recvMessage(t, clientA.Outbound, time.Second)
	if !strings.Contains(string(first.Body), `"seq":1`) || !strings.Contains(string(second.Body), `"seq":2`) {
		t.Fatalf("out of order: %s then %s", first.Body, second.Body)
	}

	hub.Unsubscribe(clientA)
	hub.Unsubscribe(clientA)
	select {
	case <-clientA.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("clientA should be done after unsubscribe")
	}
	if n := hub.Subscribers(learner); n != 0 {
		t.Fatalf("channel should be torn down, subscribers=%d", n)
	}

	clientB := hub.Subscribe(learner)
	defer hub.Unsubscribe(clientB)
	hub.Publish(mustMessage(t, learner, 3))
	if got := recvMessage(t, clientB.Outbound, time.Second); !strings.Contains(string(got.Body), `"seq":3`) {
		t.Fatalf("reconnect body: %s", got.Body)
	}
}

func TestHub_PublishWithoutSubscriberIsDropped(t *testing.T) {
	metrics := observability.New()
	hub := NewHub(mustTestLogger(t), WithMetrics(metrics))
	learner := uuid.New()
	other := hub.Subscribe(uuid.New())
	defer hub.Unsubscribe(other)

	if hub.Publish(mustMessage(t, learner, 1)) {
		t.Fatalf("publish without subscriber should report not delivered")
	}
	select {
	case m := <-other.Outbound:
		t.Fatalf("message leaked to another learner: %s", m.Body)
	default:
	}
}

func TestHub_FansOutToEveryStream(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	learner := uuid.New()
	a := hub.Subscribe(learner)
	b := hub.Subscribe(learner)
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	if !hub.Publish(mustMessage(t, learner, 7)) {
		t.Fatalf("expected delivery")
	}
	recvMessage(t, a.Outbound, time.Second)
	recvMessage(t, b.Outbound, time.Second)
}

func TestFromOutcome_QuestionShape(t *testing.T) {
	learner := uuid.New()
	correct := true
	out := domainagg.Outcome{
		Kind:         jobs.KindQuestionSubmission,
		SubmissionID: uuid.New(),
		LearnerID:    learner,
		IsCorrect:    &correct,
		Levels: []domainagg.LevelOutcome{
			{Level: domainagg.LevelLesson, EntityID: uuid.New(), IsCompleted: true, MasteryPercent: 100},
		},
		Rewards: domainagg.Rewards{XP: 15},
	}
	msg, err := FromOutcome(out)
	if err != nil {
		t.Fatalf("FromOutcome: %v", err)
	}
	if msg.Type != TypeQuestionSubmissionResult || msg.LearnerID != learner {
		t.Fatalf("unexpected envelope: %+v", msg)
	}

	var body struct {
		Type         string                            `json:"type"`
		Success      bool                              `json:"success"`
		VaccinatorID uuid.UUID                         `json:"vaccinatorId"`
		IsCorrect    bool                              `json:"isCorrect"`
		Progress     map[string]domainagg.LevelOutcome `json:"progress"`
		Unlocks      []domainagg.Unlock                `json:"unlocks"`
		Rewards      struct {
			XP           int         `json:"xp"`
			Badges       []uuid.UUID `json:"badges"`
			Certificates []uuid.UUID `json:"certificates"`
		} `json:"rewards"`
	}
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Type != TypeQuestionSubmissionResult || !body.Success || body.VaccinatorID != learner || !body.IsCorrect {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Rewards.XP != 15 || body.Rewards.Badges == nil || body.Rewards.Certificates == nil {
		t.Fatalf("rewards should carry xp and empty lists: %+v", body.Rewards)
	}
	if !body.Progress[domainagg.LevelLesson].IsCompleted {
		t.Fatalf("lesson progress missing: %+v", body.Progress)
	}
	if body.Unlocks == nil {
		t.Fatalf("unlocks should encode as an empty list")
	}
}

func TestFromOutcome_UnknownKind(t *testing.T) {
	if _, err := FromOutcome(domainagg.Outcome{Kind: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestHub_ServeHTTPStreamsEvents(t *testing.T) {
	hub := NewHub(mustTestLogger(t), WithHeartbeat(time.Hour))
	learner := uuid.New()
	client := hub.Subscribe(learner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	hub.Publish(mustMessage(t, learner, 9))

	reader := bufio.NewReader(resp.Body)
	var event, data string
	deadline := time.After(2 * time.Second)
	for data == "" {
		lineCh := make(chan string, 1)
		go func() {
			line, _ := reader.ReadString('\n')
			lineCh <- line
		}()
		select {
		case line := <-lineCh:
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		case <-deadline:
			t.Fatalf("timed out reading stream")
		}
	}
	if event != TypeDailyGoalProgressResult {
		t.Fatalf("event name: %q", event)
	}
	if !strings.Contains(data, `"seq":9`) || !strings.Contains(data, learner.String()) {
		t.Fatalf("data line: %s", data)
	}
	hub.Unsubscribe(client)
}
