package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type fakeSubmissions struct {
	learnerID uuid.UUID
	question  services.QuestionSubmission
	streak    services.StreakTickSubmission
	goal      services.DailyGoalSubmission
	game      services.GameSubmission
	err       error
}

func (f *fakeSubmissions) SubmitQuestion(_ dbctx.Context, learnerID uuid.UUID, in services.QuestionSubmission) (*services.QuestionAck, error) {
	f.learnerID, f.question = learnerID, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.QuestionAck{Ack: services.Ack{Accepted: true, SubmissionID: uuid.New(), JobID: uuid.New()}, Correctness: true}, nil
}

func (f *fakeSubmissions) SubmitStreakTick(_ dbctx.Context, learnerID uuid.UUID, in services.StreakTickSubmission) (*services.Ack, error) {
	f.learnerID, f.streak = learnerID, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.Ack{Accepted: true}, nil
}

func (f *fakeSubmissions) SubmitDailyGoalIncrement(_ dbctx.Context, learnerID uuid.UUID, in services.DailyGoalSubmission) (*services.Ack, error) {
	f.learnerID, f.goal = learnerID, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.Ack{Accepted: true}, nil
}

func (f *fakeSubmissions) SubmitGameCompletion(_ dbctx.Context, learnerID uuid.UUID, in services.GameSubmission) (*services.Ack, error) {
	f.learnerID, f.game = learnerID, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.Ack{Accepted: true}, nil
}

func asLearner(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{LearnerID: id}))
		c.Next()
	}
}

func submissionRouter(learnerID uuid.UUID, svc services.SubmissionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSubmissionHandler(svc)
	r := gin.New()
	r.Use(asLearner(learnerID))
	r.POST("/question", h.SubmitQuestion)
	r.POST("/streak", h.SubmitStreakTick)
	r.POST("/daily-goal", h.SubmitDailyGoalIncrement)
	r.POST("/game", h.SubmitGameCompletion)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSubmitQuestionAccepted(t *testing.T) {
	learnerID, itemID := uuid.New(), uuid.New()
	svc := &fakeSubmissions{}
	r := submissionRouter(learnerID, svc)

	rec := post(t, r, "/question", map[string]any{"lessonItemId": itemID, "answer": "b"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Equal(t, learnerID, svc.learnerID)
	require.Equal(t, itemID, svc.question.LessonItemID)
	require.Equal(t, "b", svc.question.Answer)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["accepted"])
	require.Equal(t, true, body["correctness"])
	require.Contains(t, body, "nextItemPointer")
	require.Contains(t, body, "submissionId")
}

func TestSubmitStreakParsesDates(t *testing.T) {
	svc := &fakeSubmissions{}
	r := submissionRouter(uuid.New(), svc)

	rec := post(t, r, "/streak", map[string]any{"streakProgressId": uuid.New(), "date": "2024-01-11"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), svc.streak.Date)

	rec = post(t, r, "/streak", map[string]any{"streakProgressId": uuid.New(), "date": "2024-01-11T23:30:00-02:00"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, time.Date(2024, 1, 12, 1, 30, 0, 0, time.UTC), svc.streak.Date)

	rec = post(t, r, "/streak", map[string]any{"streakProgressId": uuid.New(), "date": "yesterday"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), apierr.CodeValidation)
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	r := submissionRouter(uuid.New(), &fakeSubmissions{})
	req := httptest.NewRequest(http.MethodPost, "/daily-goal", bytes.NewBufferString(`{"value":"ten"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apierr.Validation("value must be positive"), http.StatusBadRequest, apierr.CodeValidation},
		{"not found", apierr.NotFound("game"), http.StatusNotFound, apierr.CodeNotFound},
		{"forbidden", apierr.Forbidden("daily goal progress"), http.StatusForbidden, apierr.CodeForbidden},
		{"internal", errBoom, http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := submissionRouter(uuid.New(), &fakeSubmissions{err: tc.err})
			rec := post(t, r, "/game", map[string]any{"gameId": uuid.New(), "score": 10})
			require.Equal(t, tc.status, rec.Code)

			var env struct {
				Error struct {
					Message string `json:"message"`
					Code    string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, tc.code, env.Error.Code)
			if tc.status == http.StatusInternalServerError {
				require.NotContains(t, env.Error.Message, errBoom.Error())
			}
		})
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "connection reset by peer" }

var errBoom error = boomErr{}
