package rewards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// GrantRepo is the storage side of the grant ledger. Insert* rely on the
// (learner, reward) unique index and report whether a row was actually written.
type GrantRepo interface {
	FindBadge(dbc dbctx.Context, learnerID, badgeID uuid.UUID) (*types.BadgeGrant, error)
	InsertBadge(dbc dbctx.Context, row *types.BadgeGrant) (bool, error)
	FindCertificate(dbc dbctx.Context, learnerID, certificateID uuid.UUID) (*types.CertificateGrant, error)
	InsertCertificate(dbc dbctx.Context, row *types.CertificateGrant) (bool, error)
	ListBadges(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.BadgeGrant, error)
	ListCertificates(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CertificateGrant, error)
}

type grantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGrantRepo(db *gorm.DB, baseLog *logger.Logger) GrantRepo {
	return &grantRepo{
		db:  db,
		log: baseLog.With("repo", "GrantRepo"),
	}
}

func (r *grantRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *grantRepo) FindBadge(dbc dbctx.Context, learnerID, badgeID uuid.UUID) (*types.BadgeGrant, error) {
	var rows []*types.BadgeGrant
	if err := r.conn(dbc).
		Where("learner_id = ? AND badge_id = ?", learnerID, badgeID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *grantRepo) InsertBadge(dbc dbctx.Context, row *types.BadgeGrant) (bool, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.DateAwarded.IsZero() {
		row.DateAwarded = time.Now().UTC()
	}
	res := r.conn(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *grantRepo) FindCertificate(dbc dbctx.Context, learnerID, certificateID uuid.UUID) (*types.CertificateGrant, error) {
	var rows []*types.CertificateGrant
	if err := r.conn(dbc).
		Where("learner_id = ? AND certificate_id = ?", learnerID, certificateID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *grantRepo) InsertCertificate(dbc dbctx.Context, row *types.CertificateGrant) (bool, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.DateAwarded.IsZero() {
		row.DateAwarded = time.Now().UTC()
	}
	res := r.conn(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "certificate_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *grantRepo) ListBadges(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.BadgeGrant, error) {
	var out []*types.BadgeGrant
	if err := r.conn(dbc).Where("learner_id = ?", learnerID).Order("date_awarded ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *grantRepo) ListCertificates(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CertificateGrant, error) {
	var out []*types.CertificateGrant
	if err := r.conn(dbc).Where("learner_id = ?", learnerID).Order("date_awarded ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
