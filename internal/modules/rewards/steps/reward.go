package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type RewardDeps struct {
	Log    *logger.Logger
	Rules  repos.RewardRuleRepo
	Grants repos.GrantRepo
}

type RewardResult struct {
	Rewards         domainagg.Rewards
	NewBadges       int
	NewCertificates int
	Evaluations     []Evaluation
}

// Reward evaluates each input in order and grants the resulting badges and certificates.
// Only newly created grants are reported; duplicates are dropped silently.
func Reward(dbc dbctx.Context, deps RewardDeps, learnerID uuid.UUID, inputs []EvaluateInput, at time.Time) (RewardResult, error) {
	res := RewardResult{Rewards: domainagg.Rewards{Badges: []uuid.UUID{}, Certificates: []uuid.UUID{}}}
	evalDeps := EvaluateDeps{Log: deps.Log, Rules: deps.Rules}
	grantDeps := GrantDeps{Grants: deps.Grants}
	for _, in := range inputs {
		ev, err := EvaluateRules(dbc, evalDeps, in)
		if err != nil {
			return res, err
		}
		res.Evaluations = append(res.Evaluations, ev)
		res.Rewards.XP += ev.XP
		for _, b := range ev.Badges {
			ruleID := b.RuleID
			granted, err := AwardBadge(dbc, grantDeps, learnerID, b.RewardID, &ruleID, at)
			if err != nil {
				return res, err
			}
			if granted {
				res.NewBadges++
				res.Rewards.Badges = append(res.Rewards.Badges, b.RewardID)
			}
		}
		for _, c := range ev.Certificates {
			ruleID := c.RuleID
			granted, err := AwardCertificate(dbc, grantDeps, learnerID, c.RewardID, &ruleID, at)
			if err != nil {
				return res, err
			}
			if granted {
				res.NewCertificates++
				res.Rewards.Certificates = append(res.Rewards.Certificates, c.RewardID)
			}
		}
	}
	return res, nil
}
