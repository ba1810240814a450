package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

const (
	defaultHeartbeat = 15 * time.Second
	outboundBuffer   = 16
)

// Client is one open stream. A learner may hold several (tabs, devices).
type Client struct {
	ID        uuid.UUID
	LearnerID uuid.UUID
	Outbound  chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// Done is closed once the client is unsubscribed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub keeps one broadcast channel per learner. Channels are created on the first
// subscribe and dropped with the last subscriber.
type Hub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	metrics   *observability.Metrics
	heartbeat time.Duration
	channels  map[uuid.UUID]map[*Client]struct{}
}

type HubOption func(*Hub)

func WithHeartbeat(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func WithMetrics(m *observability.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

func NewHub(log *logger.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		log:       log.With("component", "LiveHub"),
		heartbeat: defaultHeartbeat,
		channels:  make(map[uuid.UUID]map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Subscribe(learnerID uuid.UUID) *Client {
	c := &Client{
		ID:        uuid.New(),
		LearnerID: learnerID,
		Outbound:  make(chan Message, outboundBuffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	subs, ok := h.channels[learnerID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.channels[learnerID] = subs
	}
	subs[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.LiveClientsInc()
	h.log.Debug("live client subscribed", "client_id", c.ID, "learner_id", learnerID)
	return c
}

// Unsubscribe is safe to call more than once.
func (h *Hub) Unsubscribe(c *Client) {
	if c == nil {
		return
	}
	removed := false
	h.mu.Lock()
	if subs, ok := h.channels[c.LearnerID]; ok {
		if _, present := subs[c]; present {
			delete(subs, c)
			removed = true
		}
		if len(subs) == 0 {
			delete(h.channels, c.LearnerID)
		}
	}
	h.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
	})
	if removed {
		h.metrics.LiveClientsDec()
		h.log.Debug("live client unsubscribed", "client_id", c.ID, "learner_id", c.LearnerID)
	}
}

// Publish delivers msg to every open stream of its learner and reports whether
// anyone received it. Without a subscriber the message is dropped.
func (h *Hub) Publish(msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.channels[msg.LearnerID]
	delivered := false
	for c := range subs {
		select {
		case c.Outbound <- msg:
			delivered = true
		default:
			h.log.Warn("dropping live message; outbound buffer full", "client_id", c.ID, "type", msg.Type)
		}
	}
	h.metrics.IncLiveMessage(msg.Type, delivered)
	return delivered
}

// Subscribers counts open streams for a learner.
func (h *Hub) Subscribers(learnerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[learnerID])
}

// ServeHTTP streams the client's messages as server-sent events until the request
// context ends or the client is unsubscribed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-c.Outbound:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, singleLine(msg.Body)); err != nil {
				h.log.Warn("live write failed", "client_id", c.ID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// json.Marshal never emits raw newlines, but a body decoded off the bus might.
func singleLine(b []byte) string {
	return strings.ReplaceAll(string(b), "\n", "")
}
