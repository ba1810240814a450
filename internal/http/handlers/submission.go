package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/http/response"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type SubmissionHandler struct {
	submissions services.SubmissionService
}

func NewSubmissionHandler(submissions services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type questionRequest struct {
	SubmissionID uuid.UUID `json:"submissionId"`
	LessonItemID uuid.UUID `json:"lessonItemId"`
	Answer       string    `json:"answer"`
}

type streakRequest struct {
	SubmissionID     uuid.UUID `json:"submissionId"`
	StreakProgressID uuid.UUID `json:"streakProgressId"`
	// YYYY-MM-DD or RFC 3339
	Date string `json:"date"`
}

type dailyGoalRequest struct {
	SubmissionID   uuid.UUID `json:"submissionId"`
	GoalProgressID uuid.UUID `json:"goalProgressId"`
	Value          int       `json:"value"`
}

type gameRequest struct {
	SubmissionID uuid.UUID `json:"submissionId"`
	GameID       uuid.UUID `json:"gameId"`
	Score        int       `json:"score"`
}

// POST /api/v1/submissions/question
func (h *SubmissionHandler) SubmitQuestion(c *gin.Context) {
	var req questionRequest
	if !bind(c, &req) {
		return
	}
	ack, err := h.submissions.SubmitQuestion(requestDB(c), ctxutil.LearnerID(c.Request.Context()), services.QuestionSubmission{
		SubmissionID: req.SubmissionID,
		LessonItemID: req.LessonItemID,
		Answer:       req.Answer,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, ack)
}

// POST /api/v1/submissions/streak
func (h *SubmissionHandler) SubmitStreakTick(c *gin.Context) {
	var req streakRequest
	if !bind(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	ack, err := h.submissions.SubmitStreakTick(requestDB(c), ctxutil.LearnerID(c.Request.Context()), services.StreakTickSubmission{
		SubmissionID:     req.SubmissionID,
		StreakProgressID: req.StreakProgressID,
		Date:             date,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, ack)
}

// POST /api/v1/submissions/daily-goal
func (h *SubmissionHandler) SubmitDailyGoalIncrement(c *gin.Context) {
	var req dailyGoalRequest
	if !bind(c, &req) {
		return
	}
	ack, err := h.submissions.SubmitDailyGoalIncrement(requestDB(c), ctxutil.LearnerID(c.Request.Context()), services.DailyGoalSubmission{
		SubmissionID:   req.SubmissionID,
		GoalProgressID: req.GoalProgressID,
		Value:          req.Value,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, ack)
}

// POST /api/v1/submissions/game
func (h *SubmissionHandler) SubmitGameCompletion(c *gin.Context) {
	var req gameRequest
	if !bind(c, &req) {
		return
	}
	ack, err := h.submissions.SubmitGameCompletion(requestDB(c), ctxutil.LearnerID(c.Request.Context()), services.GameSubmission{
		SubmissionID: req.SubmissionID,
		GameID:       req.GameID,
		Score:        req.Score,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, ack)
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, apierr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func requestDB(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apierr.Validation("date is required")
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apierr.Validation("date %q is not YYYY-MM-DD or RFC 3339", raw)
	}
	return t.UTC(), nil
}
