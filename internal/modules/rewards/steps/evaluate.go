package steps

import (
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type EvaluateDeps struct {
	Log   *logger.Logger
	Rules repos.RewardRuleRepo
}

type EvaluateInput struct {
	Context  rewards.Context
	EntityID uuid.UUID
	Facts    Facts
	// Previous, when set, is the snapshot before this event. A rule that already held
	// then does not fire again, so accumulating trackers pay each threshold once.
	Previous Facts
	BaseXP   int
}

// Award is a badge or certificate a firing rule asks the ledger to grant.
type Award struct {
	RewardID uuid.UUID
	RuleID   uuid.UUID
}

type Evaluation struct {
	Context      rewards.Context
	XP           int
	Fired        []uuid.UUID
	Badges       []Award
	Certificates []Award
}

// EvaluateRules runs every active rule for the context (global and entity-scoped) in
// priority order. Every firing rule contributes; none firing is a zero evaluation.
// With Previous set only rules newly satisfied by this event fire.
func EvaluateRules(dbc dbctx.Context, deps EvaluateDeps, in EvaluateInput) (Evaluation, error) {
	out := Evaluation{Context: in.Context}
	rows, err := deps.Rules.ListActive(dbc, in.Context, in.EntityID)
	if err != nil {
		return out, err
	}
	for _, rule := range CompileRules(deps.Log, rows) {
		if !rule.Fires(in.Facts) {
			continue
		}
		if in.Previous != nil && rule.Fires(in.Previous) {
			continue
		}
		out.Fired = append(out.Fired, rule.Rule.ID)
		out.XP += rule.XP(in.BaseXP)
		if rule.Rule.BadgeID != nil {
			out.Badges = append(out.Badges, Award{RewardID: *rule.Rule.BadgeID, RuleID: rule.Rule.ID})
		}
		if rule.Rule.CertificateID != nil {
			out.Certificates = append(out.Certificates, Award{RewardID: *rule.Rule.CertificateID, RuleID: rule.Rule.ID})
		}
	}
	return out, nil
}
