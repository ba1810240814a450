package rewards

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

func TestGrantRepo_UniquePerLearnerReward(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGrantRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	learnerID, badgeID := uuid.New(), uuid.New()
	if ok, err := repo.InsertBadge(dbc, &types.BadgeGrant{LearnerID: learnerID, BadgeID: badgeID}); err != nil || !ok {
		t.Fatalf("InsertBadge: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.InsertBadge(dbc, &types.BadgeGrant{LearnerID: learnerID, BadgeID: badgeID}); err != nil || ok {
		t.Fatalf("InsertBadge dup: ok=%v err=%v", ok, err)
	}
	// another learner can hold the same badge
	if ok, err := repo.InsertBadge(dbc, &types.BadgeGrant{LearnerID: uuid.New(), BadgeID: badgeID}); err != nil || !ok {
		t.Fatalf("InsertBadge other learner: ok=%v err=%v", ok, err)
	}
	rows, err := repo.ListBadges(dbc, learnerID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListBadges: len=%d err=%v", len(rows), err)
	}

	certID := uuid.New()
	if ok, err := repo.InsertCertificate(dbc, &types.CertificateGrant{LearnerID: learnerID, CertificateID: certID}); err != nil || !ok {
		t.Fatalf("InsertCertificate: ok=%v err=%v", ok, err)
	}
	found, err := repo.FindCertificate(dbc, learnerID, certID)
	if err != nil || found == nil {
		t.Fatalf("FindCertificate: %+v err=%v", found, err)
	}
}

func TestRewardRuleRepo_ListActiveScopesAndOrders(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRewardRuleRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	lessonID := uuid.New()
	xp := 10
	rules := []*types.RewardRule{
		{Name: "global-low", Context: rewards.ContextLesson, ConditionField: rewards.FieldIsCompleted, Operator: rewards.OpEqual, XPValue: &xp, Priority: 1, IsActive: true},
		{Name: "scoped-high", Context: rewards.ContextLesson, ContextEntityID: testutil.PtrUUID(lessonID), ConditionField: rewards.FieldIsCompleted, Operator: rewards.OpEqual, XPValue: &xp, Priority: 9, IsActive: true},
		{Name: "other-entity", Context: rewards.ContextLesson, ContextEntityID: testutil.PtrUUID(uuid.New()), ConditionField: rewards.FieldIsCompleted, Operator: rewards.OpEqual, XPValue: &xp, Priority: 5, IsActive: true},
		{Name: "other-context", Context: rewards.ContextUnit, ConditionField: rewards.FieldIsCompleted, Operator: rewards.OpEqual, XPValue: &xp, Priority: 5, IsActive: true},
		{Name: "inactive", Context: rewards.ContextLesson, ConditionField: rewards.FieldIsCompleted, Operator: rewards.OpEqual, XPValue: &xp, Priority: 7, IsActive: false},
	}
	if _, err := repo.Create(dbc, rules); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.ListActive(dbc, rewards.ContextLesson, lessonID)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListActive: expected 2 rules, got %d", len(got))
	}
	if got[0].Name != "scoped-high" || got[1].Name != "global-low" {
		t.Fatalf("ListActive: unexpected order %q, %q", got[0].Name, got[1].Name)
	}
}
