package service

import (
	"context"

	"github.com/smallbiznis/dealflow/internal/authorization"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Authz authorization.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	authz authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("stats.service"),
		repo:  p.Repo,
		authz: p.Authz,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Summary, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectStats, authorization.ActionRead)
	if err != nil {
		return domain.Summary{}, err
	}
	dealershipID, ok := decision.TenantFilter()
	if !ok {
		return domain.Summary{}, authorization.ErrForbidden
	}

	byStatus, err := s.repo.LeadsByStatus(ctx, s.db, dealershipID)
	if err != nil {
		return domain.Summary{}, err
	}
	summary := domain.Summary{LeadsByStatus: make(map[string]int64, len(leaddomain.Statuses))}
	for _, status := range leaddomain.Statuses {
		summary.LeadsByStatus[status] = 0
	}
	for status, total := range byStatus {
		summary.LeadsByStatus[status] = total
		summary.TotalLeads += total
		if status != leaddomain.StatusClosed {
			summary.ActiveDeals += total
		}
	}

	if summary.InboundMessages, err = s.repo.InboundMessages(ctx, s.db, dealershipID); err != nil {
		return domain.Summary{}, err
	}
	if summary.UnreadNotifications, err = s.repo.UnreadNotifications(ctx, s.db, p.UserID); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}
