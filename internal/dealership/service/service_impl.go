package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLocationName = "Main"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	UserRepo userdomain.Repository
	Authz    authorization.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	userRepo userdomain.Repository
	authz    authorization.Service
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dealership.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		userRepo: p.UserRepo,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) ListDealerships(ctx context.Context) ([]domain.Dealership, error) {
	if _, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectDealership, authorization.ActionList); err != nil {
		return nil, err
	}
	items, err := s.repo.ListDealerships(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Dealership{}
	}
	return items, nil
}

// CreateDealership provisions a dealership with its default location and
// principal user. Either all three rows exist afterwards or none do.
func (s *Service) CreateDealership(ctx context.Context, req domain.CreateDealershipRequest) (domain.CreateDealershipResult, error) {
	if _, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectDealership, authorization.ActionCreate); err != nil {
		return domain.CreateDealershipResult{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CreateDealershipResult{}, domain.ErrInvalidName
	}
	principalName := strings.TrimSpace(req.Principal.Name)
	if principalName == "" {
		return domain.CreateDealershipResult{}, userdomain.ErrInvalidName
	}
	email, err := userdomain.NormalizeEmail(req.Principal.Email)
	if err != nil {
		return domain.CreateDealershipResult{}, err
	}
	if err := userdomain.ValidatePassword(req.Principal.Password); err != nil {
		return domain.CreateDealershipResult{}, err
	}
	hash, err := password.Hash(req.Principal.Password)
	if err != nil {
		return domain.CreateDealershipResult{}, err
	}

	locationName := strings.TrimSpace(req.Location.Name)
	if locationName == "" {
		locationName = defaultLocationName
	}

	now := s.clock.Now()
	dealership := domain.Dealership{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	location := domain.Location{
		ID:           s.genID.Generate(),
		DealershipID: dealership.ID,
		Name:         locationName,
		Address:      strings.TrimSpace(req.Location.Address),
		IsDefault:    true,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	owner := userdomain.User{
		ID:           s.genID.Generate(),
		DealershipID: &dealership.ID,
		Role:         principal.RolePrincipal.String(),
		Name:         principalName,
		Email:        email,
		PasswordHash: hash,
		Status:       userdomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		LocationIDs:  []snowflake.ID{location.ID},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.userRepo.EmailTaken(ctx, tx, email, 0)
		if err != nil {
			return err
		}
		if taken {
			return userdomain.ErrEmailTaken
		}
		if err := s.repo.InsertDealership(ctx, tx, &dealership); err != nil {
			return err
		}
		if err := s.repo.InsertLocation(ctx, tx, &location); err != nil {
			return err
		}
		if err := s.userRepo.Insert(ctx, tx, &owner); err != nil {
			return err
		}
		return s.userRepo.ReplaceLocations(ctx, tx, owner.ID, owner.LocationIDs, now)
	})
	if err != nil {
		return domain.CreateDealershipResult{}, err
	}

	s.audit(ctx, &dealership.ID, "dealership.create", "dealership", dealership.ID, map[string]any{
		"name":         dealership.Name,
		"location_id":  location.ID.String(),
		"principal_id": owner.ID.String(),
	})

	return domain.CreateDealershipResult{
		ID:         dealership.ID,
		Dealership: dealership,
		Location:   location,
		Principal:  owner,
	}, nil
}

func (s *Service) UpdateDealership(ctx context.Context, id string, req domain.UpdateDealershipRequest) (domain.Dealership, error) {
	if _, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectDealership, authorization.ActionUpdate); err != nil {
		return domain.Dealership{}, err
	}
	dealershipID, err := parseID(id)
	if err != nil {
		return domain.Dealership{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Dealership{}, domain.ErrInvalidName
	}

	dealership, err := s.activeDealership(ctx, s.db, dealershipID)
	if err != nil {
		return domain.Dealership{}, err
	}

	now := s.clock.Now()
	if err := s.repo.UpdateDealership(ctx, s.db, dealershipID, map[string]any{
		"name":       name,
		"updated_at": now,
	}); err != nil {
		return domain.Dealership{}, err
	}
	dealership.Name = name
	dealership.UpdatedAt = now

	s.audit(ctx, &dealership.ID, "dealership.update", "dealership", dealership.ID, map[string]any{"name": name})
	return *dealership, nil
}

func (s *Service) DeleteDealership(ctx context.Context, id string) error {
	if _, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectDealership, authorization.ActionDelete); err != nil {
		return err
	}
	dealershipID, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := s.activeDealership(ctx, s.db, dealershipID); err != nil {
		return err
	}
	if err := s.repo.UpdateDealership(ctx, s.db, dealershipID, map[string]any{
		"status":     domain.StatusDeleted,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return err
	}

	s.audit(ctx, &dealershipID, "dealership.delete", "dealership", dealershipID, nil)
	return nil
}

func (s *Service) ListLocations(ctx context.Context) ([]domain.Location, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectLocation, authorization.ActionList)
	if err != nil {
		return nil, err
	}
	filter, ok := decision.TenantFilter()
	if !ok {
		return []domain.Location{}, nil
	}
	items, err := s.repo.ListLocations(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Location{}
	}
	return items, nil
}

// CreateLocation adds a location. The first location of a dealership is
// always the default; asking for a default moves the flag off the current
// one in the same transaction.
func (s *Service) CreateLocation(ctx context.Context, req domain.CreateLocationRequest) (domain.Location, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectLocation, authorization.ActionCreate)
	if err != nil {
		return domain.Location{}, err
	}

	var dealershipID snowflake.ID
	if raw := strings.TrimSpace(req.DealershipID); raw != "" {
		dealershipID, err = snowflake.ParseString(raw)
		if err != nil {
			return domain.Location{}, domain.ErrInvalidDealership
		}
	} else if own, ok := p.Dealership(); ok {
		dealershipID = own
	} else {
		return domain.Location{}, domain.ErrInvalidDealership
	}
	if err := s.authz.RequireDealership(ctx, decision, dealershipID); err != nil {
		return domain.Location{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Location{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	location := domain.Location{
		ID:           s.genID.Generate(),
		DealershipID: dealershipID,
		Name:         name,
		Address:      strings.TrimSpace(req.Address),
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dealership, err := s.repo.FindDealership(ctx, tx, dealershipID)
		if err != nil {
			return err
		}
		if dealership == nil || dealership.Status != domain.StatusActive {
			return domain.ErrInvalidDealership
		}

		count, err := s.repo.CountActiveLocations(ctx, tx, dealershipID)
		if err != nil {
			return err
		}
		location.IsDefault = req.IsDefault || count == 0
		if location.IsDefault && count > 0 {
			if err := s.repo.ClearDefaultLocation(ctx, tx, dealershipID); err != nil {
				return err
			}
		}
		return s.repo.InsertLocation(ctx, tx, &location)
	})
	if err != nil {
		return domain.Location{}, err
	}

	s.audit(ctx, &dealershipID, "location.create", "location", location.ID, map[string]any{
		"name":       location.Name,
		"is_default": location.IsDefault,
	})
	return location, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id string, req domain.UpdateLocationRequest) (domain.Location, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectLocation, authorization.ActionUpdate)
	if err != nil {
		return domain.Location{}, err
	}
	locationID, err := parseID(id)
	if err != nil {
		return domain.Location{}, err
	}

	current, err := s.activeLocation(ctx, s.db, locationID)
	if err != nil {
		return domain.Location{}, err
	}
	if err := s.authz.RequireDealership(ctx, decision, current.DealershipID); err != nil {
		return domain.Location{}, err
	}

	var updated *domain.Location
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		location, err := s.activeLocation(ctx, tx, locationID)
		if err != nil {
			return err
		}

		fields := map[string]any{"updated_at": s.clock.Now()}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			fields["name"] = name
		}
		if req.Address != nil {
			fields["address"] = strings.TrimSpace(*req.Address)
		}
		if req.IsDefault != nil {
			switch {
			case *req.IsDefault && !location.IsDefault:
				if err := s.repo.ClearDefaultLocation(ctx, tx, location.DealershipID); err != nil {
					return err
				}
				fields["is_default"] = true
			case !*req.IsDefault && location.IsDefault:
				return domain.ErrDefaultLocationRequired
			}
		}

		if err := s.repo.UpdateLocation(ctx, tx, locationID, fields); err != nil {
			return err
		}
		updated, err = s.repo.FindLocation(ctx, tx, locationID)
		return err
	})
	if err != nil {
		return domain.Location{}, err
	}
	if updated == nil {
		return domain.Location{}, domain.ErrNotFound
	}

	s.audit(ctx, &updated.DealershipID, "location.update", "location", updated.ID, map[string]any{
		"is_default": updated.IsDefault,
	})
	return *updated, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectLocation, authorization.ActionDelete)
	if err != nil {
		return err
	}
	locationID, err := parseID(id)
	if err != nil {
		return err
	}

	current, err := s.activeLocation(ctx, s.db, locationID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireDealership(ctx, decision, current.DealershipID); err != nil {
		return err
	}

	dealershipID := current.DealershipID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		location, err := s.activeLocation(ctx, tx, locationID)
		if err != nil {
			return err
		}
		if location.IsDefault {
			return domain.ErrDefaultLocationProtected
		}
		return s.repo.UpdateLocation(ctx, tx, locationID, map[string]any{
			"status":     domain.StatusDeleted,
			"updated_at": s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.audit(ctx, &dealershipID, "location.delete", "location", locationID, nil)
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	if _, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectRole, authorization.ActionList); err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return domain.DefaultRoles(), nil
	}
	return roles, nil
}

func (s *Service) IntakeDealership(ctx context.Context, preferred snowflake.ID) (domain.Dealership, error) {
	if preferred != 0 {
		dealership, err := s.repo.FindDealership(ctx, s.db, preferred)
		if err != nil {
			return domain.Dealership{}, err
		}
		if dealership != nil && dealership.Status == domain.StatusActive {
			return *dealership, nil
		}
		s.log.Warn("configured intake dealership is not active, falling back",
			zap.String("dealership_id", preferred.String()))
	}

	dealership, err := s.repo.OldestActiveDealership(ctx, s.db)
	if err != nil {
		return domain.Dealership{}, err
	}
	if dealership == nil {
		return domain.Dealership{}, domain.ErrNoDealershipConfigured
	}
	return *dealership, nil
}

func (s *Service) activeDealership(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Dealership, error) {
	dealership, err := s.repo.FindDealership(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if dealership == nil || dealership.Status != domain.StatusActive {
		return nil, domain.ErrNotFound
	}
	return dealership, nil
}

func (s *Service) activeLocation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Location, error) {
	location, err := s.repo.FindLocation(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if location == nil || location.Status != domain.StatusActive {
		return nil, domain.ErrNotFound
	}
	return location, nil
}

func (s *Service) audit(ctx context.Context, dealershipID *snowflake.ID, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		DealershipID: dealershipID,
		Action:       action,
		TargetType:   targetType,
		TargetID:     targetID.String(),
		Metadata:     metadata,
	}); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
