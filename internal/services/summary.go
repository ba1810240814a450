package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/vaccilearn-backend/internal/pkg/errors"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type SummaryView struct {
	Summary      *types.LearnerSummary     `json:"summary"`
	Badges       []*types.BadgeGrant       `json:"badges"`
	Certificates []*types.CertificateGrant `json:"certificates"`
}

type SummaryService interface {
	// GetSummary returns a zero summary for a learner with no processed events yet.
	GetSummary(dbc dbctx.Context, learnerID uuid.UUID) (*SummaryView, error)
}

type summaryService struct {
	log       *logger.Logger
	summaries repos.LearnerSummaryRepo
	grants    repos.GrantRepo
}

func NewSummaryService(baseLog *logger.Logger, summaries repos.LearnerSummaryRepo, grants repos.GrantRepo) SummaryService {
	return &summaryService{
		log:       baseLog.With("service", "SummaryService"),
		summaries: summaries,
		grants:    grants,
	}
}

func (s *summaryService) GetSummary(dbc dbctx.Context, learnerID uuid.UUID) (*SummaryView, error) {
	if learnerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	row, err := s.summaries.Get(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	if row == nil {
		row = &types.LearnerSummary{LearnerID: learnerID}
	}
	badges, err := s.grants.ListBadges(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	certs, err := s.grants.ListCertificates(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if badges == nil {
		badges = []*types.BadgeGrant{}
	}
	if certs == nil {
		certs = []*types.CertificateGrant{}
	}
	return &SummaryView{Summary: row, Badges: badges, Certificates: certs}, nil
}
