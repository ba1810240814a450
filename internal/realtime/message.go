package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
)

// Live message types, one per job kind.
const (
	TypeQuestionSubmissionResult = "question_submission_result"
	TypeStreakProgressResult     = "streak_progress_result"
	TypeDailyGoalProgressResult  = "daily_goal_progress_result"
	TypeGameCompletionResult     = "game_completion_result"
)

var resultTypes = map[string]string{
	jobs.KindQuestionSubmission: TypeQuestionSubmissionResult,
	jobs.KindStreakProgress:     TypeStreakProgressResult,
	jobs.KindDailyGoalProgress:  TypeDailyGoalProgressResult,
	jobs.KindGameCompletion:     TypeGameCompletionResult,
}

// ResultType maps a job kind to the live message type announcing its result.
func ResultType(kind string) (string, bool) {
	t, ok := resultTypes[kind]
	return t, ok
}

// Message is one live event addressed to a single learner. Body is the encoded
// client payload, built once so every subscriber and every bus hop shares it.
type Message struct {
	LearnerID uuid.UUID       `json:"learner_id"`
	Type      string          `json:"type"`
	Body      json.RawMessage `json:"body"`
}

// NewMessage flattens fields next to the envelope keys every client relies on.
func NewMessage(msgType string, learnerID uuid.UUID, success bool, fields map[string]any, rewards *domainagg.Rewards) (Message, error) {
	body := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		body[k] = v
	}
	body["type"] = msgType
	body["success"] = success
	body["vaccinatorId"] = learnerID
	if rewards != nil {
		body["rewards"] = rewardsBody(*rewards)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return Message{LearnerID: learnerID, Type: msgType, Body: raw}, nil
}

// FromOutcome builds the result message for a committed engine outcome.
func FromOutcome(out domainagg.Outcome) (Message, error) {
	msgType, ok := ResultType(out.Kind)
	if !ok {
		return Message{}, fmt.Errorf("no live message for kind %q", out.Kind)
	}
	fields := map[string]any{
		"submissionId": out.SubmissionID,
		"appliedAt":    out.AppliedAt,
	}
	switch out.Kind {
	case jobs.KindQuestionSubmission:
		if out.IsCorrect != nil {
			fields["isCorrect"] = *out.IsCorrect
		}
		fields["progress"] = levelsBody(out.Levels)
		fields["unlocks"] = unlocksBody(out.Unlocks)
	case jobs.KindGameCompletion:
		if out.Game != nil {
			fields["game"] = out.Game
		}
		fields["progress"] = levelsBody(out.Levels)
		fields["unlocks"] = unlocksBody(out.Unlocks)
	case jobs.KindStreakProgress:
		if out.Streak != nil {
			fields["streak"] = out.Streak
		}
	case jobs.KindDailyGoalProgress:
		if out.DailyGoal != nil {
			fields["dailyGoal"] = out.DailyGoal
		}
	}
	return NewMessage(msgType, out.LearnerID, true, fields, &out.Rewards)
}

func rewardsBody(r domainagg.Rewards) map[string]any {
	badges := r.Badges
	if badges == nil {
		badges = []uuid.UUID{}
	}
	certs := r.Certificates
	if certs == nil {
		certs = []uuid.UUID{}
	}
	return map[string]any{
		"xp":           r.XP,
		"badges":       badges,
		"certificates": certs,
	}
}

func levelsBody(levels []domainagg.LevelOutcome) map[string]domainagg.LevelOutcome {
	out := make(map[string]domainagg.LevelOutcome, len(levels))
	for _, l := range levels {
		out[l.Level] = l
	}
	return out
}

func unlocksBody(in []domainagg.Unlock) []domainagg.Unlock {
	if in == nil {
		return []domainagg.Unlock{}
	}
	return in
}
