package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/messaging/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/dealflow/internal/observability/metrics"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/realtime"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             domain.Repository
	LeadRepo         leaddomain.Repository
	UserRepo         userdomain.Repository
	NotificationRepo notificationdomain.Repository
	Authz            authorization.Service
	Publisher        realtime.Publisher
	Config           *config.MessagingConfigHolder `optional:"true"`
	Metrics          *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             domain.Repository
	leadRepo         leaddomain.Repository
	userRepo         userdomain.Repository
	notificationRepo notificationdomain.Repository
	authz            authorization.Service
	publisher        realtime.Publisher
	config           *config.MessagingConfigHolder
	metrics          *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("messaging.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		leadRepo:         p.LeadRepo,
		userRepo:         p.UserRepo,
		notificationRepo: p.NotificationRepo,
		authz:            p.Authz,
		publisher:        p.Publisher,
		config:           p.Config,
		metrics:          p.Metrics,
	}
}

func (s *Service) PostMessage(ctx context.Context, req domain.PostMessageRequest) (domain.Communication, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectMessage, authorization.ActionSend)
	if err != nil {
		return domain.Communication{}, err
	}

	leadID, err := parseLeadID(req.LeadID)
	if err != nil {
		return domain.Communication{}, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Communication{}, domain.ErrInvalidContent
	}
	msgType := defaulted(req.Type, domain.TypeInternal)
	if !domain.ValidType(msgType) {
		return domain.Communication{}, domain.ErrInvalidType
	}
	direction := defaulted(req.Direction, domain.DirectionOutbound)
	if !domain.ValidDirection(direction) {
		return domain.Communication{}, domain.ErrInvalidDirection
	}
	explicit, err := parseMentions(req.Mentions)
	if err != nil {
		return domain.Communication{}, err
	}

	lead, err := s.visibleLead(ctx, decision, leadID)
	if err != nil {
		return domain.Communication{}, err
	}

	members, err := s.userRepo.ListActiveByDealership(ctx, s.db, lead.DealershipID)
	if err != nil {
		return domain.Communication{}, err
	}
	cfg := s.config.Get()
	candidates := make([]domain.Candidate, 0, len(members))
	allowed := make(map[snowflake.ID]struct{}, len(members))
	senderName := ""
	for _, m := range members {
		candidates = append(candidates, domain.Candidate{ID: m.ID, Name: m.Name})
		allowed[m.ID] = struct{}{}
		if m.ID == p.UserID {
			senderName = m.Name
		}
	}
	detected := domain.DetectMentions(content, candidates, cfg.MentionMatch)
	mentioned, err := domain.MergeMentions(explicit, detected, allowed, p.UserID)
	if err != nil {
		return domain.Communication{}, err
	}

	senderID := p.UserID
	communication := domain.Communication{
		ID:               s.genID.Generate(),
		LeadID:           lead.ID,
		UserID:           &senderID,
		Type:             msgType,
		Direction:        direction,
		Subject:          trimmed(req.Subject),
		Content:          content,
		CreatedAt:        s.clock.Now(),
		SenderName:       senderName,
		MentionedUserIDs: mentioned,
	}

	link := cfg.LeadLink(lead.ID.String())
	notifications := make([]notificationdomain.Notification, 0, len(mentioned))
	mentions := make([]domain.Mention, 0, len(mentioned))
	for _, userID := range mentioned {
		mentions = append(mentions, domain.Mention{
			ID:              s.genID.Generate(),
			CommunicationID: communication.ID,
			UserID:          userID,
			CreatedAt:       communication.CreatedAt,
		})
		notifications = append(notifications, notificationdomain.Notification{
			ID:        s.genID.Generate(),
			UserID:    userID,
			Type:      notificationdomain.TypeMention,
			Message:   mentionMessage(senderName, lead),
			Link:      link,
			CreatedAt: communication.CreatedAt,
		})
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertCommunication(ctx, tx, &communication); err != nil {
			return err
		}
		if err := s.repo.InsertMentions(ctx, tx, mentions); err != nil {
			return err
		}
		return s.notificationRepo.Insert(ctx, tx, notifications)
	}); err != nil {
		s.log.Error("failed to post message", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		return domain.Communication{}, err
	}

	s.metrics.RecordMessagePosted(ctx, msgType, direction)
	s.metrics.RecordNotifications(ctx, notificationdomain.TypeMention, len(notifications))
	s.broadcast(communication)
	return communication, nil
}

func (s *Service) PostInbound(ctx context.Context, req domain.PostInboundRequest) (domain.Communication, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectMessage, authorization.ActionSend)
	if err != nil {
		return domain.Communication{}, err
	}

	leadID, err := parseLeadID(req.LeadID)
	if err != nil {
		return domain.Communication{}, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Communication{}, domain.ErrInvalidContent
	}
	msgType := defaulted(req.Type, domain.TypeEmail)
	if !domain.ValidType(msgType) {
		return domain.Communication{}, domain.ErrInvalidType
	}

	lead, err := s.visibleLead(ctx, decision, leadID)
	if err != nil {
		return domain.Communication{}, err
	}

	communication := domain.Communication{
		ID:        s.genID.Generate(),
		LeadID:    lead.ID,
		Type:      msgType,
		Direction: domain.DirectionInbound,
		Subject:   trimmed(req.Subject),
		Content:   content,
		CreatedAt: s.clock.Now(),
	}

	notified := 0
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertCommunication(ctx, tx, &communication); err != nil {
			return err
		}
		recipient, err := s.inboundRecipient(ctx, tx, lead)
		if err != nil || recipient == nil {
			return err
		}
		notified = 1
		return s.notificationRepo.Insert(ctx, tx, []notificationdomain.Notification{{
			ID:        s.genID.Generate(),
			UserID:    *recipient,
			Type:      notificationdomain.TypeInboundMessage,
			Message:   fmt.Sprintf("New %s from %s", msgType, lead.FullName()),
			Link:      s.config.Get().LeadLink(lead.ID.String()),
			CreatedAt: communication.CreatedAt,
		}})
	}); err != nil {
		s.log.Error("failed to post inbound message", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		return domain.Communication{}, err
	}

	s.metrics.RecordMessagePosted(ctx, msgType, domain.DirectionInbound)
	s.metrics.RecordNotifications(ctx, notificationdomain.TypeInboundMessage, notified)
	s.broadcast(communication)
	return communication, nil
}

func (s *Service) ListCommunicationsForLead(ctx context.Context, rawLeadID string) ([]domain.Communication, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectMessage, authorization.ActionRead)
	if err != nil {
		return nil, err
	}
	leadID, err := parseLeadID(rawLeadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleLead(ctx, decision, leadID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByLead(ctx, s.db, leadID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []domain.Communication{}, nil
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	mentioned, err := s.repo.MentionedUsers(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].MentionedUserIDs = mentioned[items[i].ID]
	}
	return items, nil
}

func (s *Service) ListMessages(ctx context.Context) ([]domain.Communication, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectMessage, authorization.ActionList)
	if err != nil {
		return nil, err
	}
	dealershipID, ok := decision.TenantFilter()
	if !ok || dealershipID == nil {
		return []domain.Communication{}, nil
	}

	items, err := s.repo.ListFeed(ctx, s.db, *dealershipID, s.config.Get().FeedLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Communication{}
	}
	return items, nil
}

// visibleLead loads a lead and checks it against the caller's scope. A
// missing lead is NotFound before any ownership check.
func (s *Service) visibleLead(ctx context.Context, decision authorization.Decision, leadID snowflake.ID) (*leaddomain.Lead, error) {
	lead, err := s.leadRepo.FindByID(ctx, s.db, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, leaddomain.ErrNotFound
	}
	if err := s.authz.RequireDealership(ctx, decision, lead.DealershipID); err != nil {
		return nil, err
	}
	return lead, nil
}

// inboundRecipient picks the lead's active assignee, falling back to the
// dealership principal. It returns nil when neither exists.
func (s *Service) inboundRecipient(ctx context.Context, tx *gorm.DB, lead *leaddomain.Lead) (*snowflake.ID, error) {
	if lead.AssignedUserID != nil {
		assignee, err := s.userRepo.FindByID(ctx, tx, *lead.AssignedUserID)
		if err != nil {
			return nil, err
		}
		if assignee != nil && assignee.Status == userdomain.StatusActive {
			return &assignee.ID, nil
		}
	}
	owner, err := s.userRepo.FindActivePrincipal(ctx, tx, lead.DealershipID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}
	return &owner.ID, nil
}

func (s *Service) broadcast(communication domain.Communication) {
	if s.publisher == nil {
		return
	}
	delivered := s.publisher.Publish(communication.LeadID, realtime.Event{
		Name: realtime.EventNewMessage,
		Data: communication.Event(),
	})
	s.log.Debug("message broadcast",
		zap.String("lead_id", communication.LeadID.String()),
		zap.Int("delivered", delivered),
	)
}

func mentionMessage(sender string, lead *leaddomain.Lead) string {
	if sender == "" {
		sender = "Someone"
	}
	return fmt.Sprintf("%s mentioned you on %s", sender, lead.FullName())
}

func parseLeadID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidLeadID
	}
	return id, nil
}

func parseMentions(raw []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id <= 0 {
			return nil, domain.ErrInvalidMention
		}
		out = append(out, id)
	}
	return out, nil
}

func defaulted(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
