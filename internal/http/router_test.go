package http

import (
	"bufio"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	httpH "github.com/yungbote/vaccilearn-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vaccilearn-backend/internal/http/middleware"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

const secret = "router-secret"

func token(t *testing.T, learnerID uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   learnerID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func testRouter(hub *realtime.Hub, m *observability.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         m,
		OpsToken:        "ops",
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, secret),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"db": func(context.Context) error { return nil },
		}),
		FailedJobHandler: httpH.NewFailedJobHandler(nil),
	})
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := testRouter(realtime.NewHub(logger.Nop()), observability.New())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/readyz", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"db":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "vaccilearn_http_requests_total")
}

func TestRouterRequiresAuth(t *testing.T) {
	r := testRouter(realtime.NewHub(logger.Nop()), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/stream", nil))
	require.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestRouterOpsNeedsToken(t *testing.T) {
	r := testRouter(realtime.NewHub(logger.Nop()), nil)
	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/ops/failed-jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, nethttp.StatusForbidden, rec.Code)
}

func TestStreamDeliversLearnerMessages(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	srv := httptest.NewServer(testRouter(hub, nil))
	defer srv.Close()

	learnerID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, srv.URL+"/api/v1/stream?token="+token(t, learnerID), nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	require.Equal(t, 1, hub.Subscribers(learnerID))

	msg, err := realtime.NewMessage(realtime.TypeStreakProgressResult, learnerID, true, map[string]any{"streak": map[string]int{"currentValue": 2}}, nil)
	require.NoError(t, err)
	require.True(t, hub.Publish(msg))

	var event, data string
	for data == "" {
		line, err = rd.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	require.Equal(t, realtime.TypeStreakProgressResult, event)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &body))
	require.Equal(t, learnerID.String(), body["vaccinatorId"])
	require.Equal(t, true, body["success"])

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers(learnerID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
