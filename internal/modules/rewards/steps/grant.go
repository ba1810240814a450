package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

type GrantDeps struct {
	Grants repos.GrantRepo
}

// AwardBadge grants a badge once per learner. A second award returns granted=false.
func AwardBadge(dbc dbctx.Context, deps GrantDeps, learnerID, badgeID uuid.UUID, ruleID *uuid.UUID, at time.Time) (bool, error) {
	existing, err := deps.Grants.FindBadge(dbc, learnerID, badgeID)
	if err != nil || existing != nil {
		return false, err
	}
	return deps.Grants.InsertBadge(dbc, &types.BadgeGrant{
		LearnerID:   learnerID,
		BadgeID:     badgeID,
		RuleID:      ruleID,
		DateAwarded: at.UTC(),
	})
}

// AwardCertificate mirrors AwardBadge for certificates.
func AwardCertificate(dbc dbctx.Context, deps GrantDeps, learnerID, certificateID uuid.UUID, ruleID *uuid.UUID, at time.Time) (bool, error) {
	existing, err := deps.Grants.FindCertificate(dbc, learnerID, certificateID)
	if err != nil || existing != nil {
		return false, err
	}
	return deps.Grants.InsertCertificate(dbc, &types.CertificateGrant{
		LearnerID:     learnerID,
		CertificateID: certificateID,
		RuleID:        ruleID,
		DateAwarded:   at.UTC(),
	})
}
