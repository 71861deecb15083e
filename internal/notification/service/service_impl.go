package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/notification/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listLimit = 100

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
		log:   p.Log.Named("notification.service"),
		repo:  p.Repo,
		authz: p.Authz,
	}
}

func (s *Service) List(ctx context.Context) (domain.ListResponse, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectNotification, authorization.ActionList); err != nil {
		return domain.ListResponse{}, err
	}

	items, err := s.repo.ListByUser(ctx, s.db, p.UserID, listLimit)
	if err != nil {
		return domain.ListResponse{}, err
	}
	unread, err := s.repo.CountUnread(ctx, s.db, p.UserID)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return domain.ListResponse{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead flags one of the caller's notifications as read. Another user's
// notification is reported as missing.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectNotification, authorization.ActionUpdate); err != nil {
		return err
	}
	notificationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || notificationID <= 0 {
		return domain.ErrInvalidID
	}

	found, err := s.repo.MarkRead(ctx, s.db, notificationID, p.UserID)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectNotification, authorization.ActionUpdate); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, s.db, p.UserID)
}

func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectNotification, authorization.ActionDelete); err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteByUser(ctx, s.db, p.UserID)
	if err != nil {
		return 0, err
	}
	s.log.Debug("notifications cleared", zap.String("user_id", p.UserID.String()), zap.Int64("count", deleted))
	return deleted, nil
}
