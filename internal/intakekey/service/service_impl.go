package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/intakekey/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyPrefix     = "dfk_"
	maxSlugLength = 16
	// displayLength is how much of the raw key is kept for listings.
	displayLength = 12
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	DealershipRepo dealershipdomain.Repository
	Authz          authorization.Service
	AuditSvc       auditdomain.Service `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	dealershipRepo dealershipdomain.Repository
	authz          authorization.Service
	auditSvc       auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("intakekey.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		dealershipRepo: p.DealershipRepo,
		authz:          p.Authz,
		auditSvc:       p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectIntakeKey, authorization.ActionList); err != nil {
		return nil, err
	}
	dealershipID, ok := p.Dealership()
	if !ok {
		return nil, authorization.ErrForbidden
	}

	items, err := s.repo.List(ctx, s.db, dealershipID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.SecretResponse, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectIntakeKey, authorization.ActionCreate); err != nil {
		return nil, err
	}
	dealershipID, ok := p.Dealership()
	if !ok {
		return nil, authorization.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	dealership, err := s.dealershipRepo.FindDealership(ctx, s.db, dealershipID)
	if err != nil {
		return nil, err
	}
	if dealership == nil || dealership.Status != dealershipdomain.StatusActive {
		return nil, authorization.ErrForbidden
	}

	raw := generateKey(dealership.Slug, dealership.Name)
	now := s.clock.Now()
	creator := p.UserID
	key := &domain.IntakeKey{
		ID:           s.genID.Generate(),
		DealershipID: dealershipID,
		Name:         name,
		Prefix:       raw[:displayLength],
		KeyHash:      domain.HashKey(raw),
		IsActive:     true,
		CreatedBy:    &creator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.audit(ctx, dealershipID, "intake_key.create", key.ID, map[string]any{"name": name})
	return &domain.SecretResponse{ID: key.ID, Name: key.Name, Key: raw}, nil
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectIntakeKey, authorization.ActionDelete)
	if err != nil {
		return err
	}

	keyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || keyID <= 0 {
		return domain.ErrInvalidID
	}
	key, err := s.repo.FindByID(ctx, s.db, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return domain.ErrNotFound
	}
	if err := s.authz.RequireDealership(ctx, decision, key.DealershipID); err != nil {
		return err
	}
	if !key.IsActive {
		return nil
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, s.db, key.ID, map[string]any{
		"is_active":  false,
		"revoked_at": now,
		"updated_at": now,
	}); err != nil {
		return err
	}

	s.audit(ctx, key.DealershipID, "intake_key.revoke", key.ID, nil)
	return nil
}

func (s *Service) Resolve(ctx context.Context, raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, keyPrefix) {
		return 0, domain.ErrInvalidKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, domain.HashKey(raw))
	if err != nil {
		return 0, err
	}
	if key == nil || !key.IsActive {
		return 0, domain.ErrInvalidKey
	}

	if err := s.repo.Update(ctx, s.db, key.ID, map[string]any{"last_used_at": s.clock.Now()}); err != nil {
		s.log.Warn("failed to touch intake key", zap.String("intake_key_id", key.ID.String()), zap.Error(err))
	}
	return key.DealershipID, nil
}

func (s *Service) audit(ctx context.Context, dealershipID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		DealershipID: &dealershipID,
		Action:       action,
		TargetType:   "intake_key",
		TargetID:     targetID.String(),
		Metadata:     metadata,
	}); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func toResponse(key *domain.IntakeKey) domain.Response {
	return domain.Response{
		ID:         key.ID,
		Name:       key.Name,
		Prefix:     key.Prefix,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		RevokedAt:  key.RevokedAt,
	}
}

// generateKey builds dfk_<slug>_<secret>. The secret is 64 hex characters
// from two random UUIDs.
func generateKey(dealershipSlug, dealershipName string) string {
	s := dealershipSlug
	if s == "" {
		s = slug.Make(dealershipName)
	}
	s = strings.ReplaceAll(s, "-", "")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	if s == "" {
		s = "dealer"
	}
	secret := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return keyPrefix + s + "_" + secret
}
