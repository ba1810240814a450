package rewards

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type RewardRuleRepo interface {
	// ListActive returns active rules of a context that are global or scoped to entityID,
	// highest priority first, ties broken by id.
	ListActive(dbc dbctx.Context, context rewards.Context, entityID uuid.UUID) ([]*types.RewardRule, error)
	Count(dbc dbctx.Context) (int64, error)
	Create(dbc dbctx.Context, rules []*types.RewardRule) ([]*types.RewardRule, error)
}

type rewardRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardRuleRepo(db *gorm.DB, baseLog *logger.Logger) RewardRuleRepo {
	return &rewardRuleRepo{
		db:  db,
		log: baseLog.With("repo", "RewardRuleRepo"),
	}
}

func (r *rewardRuleRepo) ListActive(dbc dbctx.Context, context rewards.Context, entityID uuid.UUID) ([]*types.RewardRule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RewardRule
	q := transaction.WithContext(dbc.Ctx).
		Where("context = ? AND is_active = ?", string(context), true)
	if entityID == uuid.Nil {
		q = q.Where("context_entity_id IS NULL")
	} else {
		q = q.Where("(context_entity_id IS NULL OR context_entity_id = ?)", entityID)
	}
	if err := q.Order("priority DESC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rewardRuleRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.RewardRule{}).Count(&n).Error
	return n, err
}

func (r *rewardRuleRepo) Create(dbc dbctx.Context, rules []*types.RewardRule) ([]*types.RewardRule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rules) == 0 {
		return []*types.RewardRule{}, nil
	}
	for _, rule := range rules {
		if rule.ID == uuid.Nil {
			rule.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
