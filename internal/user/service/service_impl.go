package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
		log:            p.Log.Named("user.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		dealershipRepo: p.DealershipRepo,
		authz:          p.Authz,
		auditSvc:       p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectUser, authorization.ActionList)
	if err != nil {
		return nil, err
	}
	dealershipID, ok := decision.TenantFilter()
	if !ok {
		return []domain.User{}, nil
	}

	filter := domain.ListFilter{DealershipID: dealershipID}
	if decision.ExcludesSelf() {
		filter.ExcludeUserID = p.UserID
	}
	users, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []domain.User{}, nil
	}

	ids := make([]snowflake.ID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	memberships, err := s.repo.LocationIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].LocationIDs = memberships[users[i].ID]
		if users[i].LocationIDs == nil {
			users[i].LocationIDs = []snowflake.ID{}
		}
	}
	return users, nil
}

// Create adds a user to the caller's dealership. A dealership never has more
// than one active principal.
func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectUser, authorization.ActionCreate); err != nil {
		return domain.User{}, err
	}
	dealershipID, ok := p.Dealership()
	if !ok {
		return domain.User{}, authorization.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return domain.User{}, err
	}
	role, err := domain.DealershipRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}
	locationIDs, err := parseLocationIDs(req.LocationIDs)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		DealershipID: &dealershipID,
		Role:         role.String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.StatusActive,
		ProfileImage: trimmed(req.ProfileImage),
		CreatedAt:    now,
		UpdatedAt:    now,
		LocationIDs:  locationIDs,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmail(ctx, tx, email, 0); err != nil {
			return err
		}
		if role == principal.RolePrincipal {
			if err := s.checkSinglePrincipal(ctx, tx, dealershipID, 0); err != nil {
				return err
			}
		}
		if err := s.checkLocations(ctx, tx, dealershipID, locationIDs); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			return err
		}
		return s.repo.ReplaceLocations(ctx, tx, user.ID, locationIDs, now)
	})
	if err != nil {
		return domain.User{}, err
	}

	s.audit(ctx, dealershipID, "user.create", user.ID, map[string]any{"role": user.Role})
	return user, nil
}

// Update rewrites a user's profile and replaces the whole membership set in
// one transaction.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (domain.User, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectUser, authorization.ActionUpdate)
	if err != nil {
		return domain.User{}, err
	}
	userID, err := parseID(id)
	if err != nil {
		return domain.User{}, err
	}

	existing, err := s.activeUser(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if existing.DealershipID == nil {
		return domain.User{}, authorization.ErrForbidden
	}
	dealershipID := *existing.DealershipID
	if err := s.authz.RequireDealership(ctx, decision, dealershipID); err != nil {
		return domain.User{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, err
	}
	role, err := domain.DealershipRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}
	locationIDs, err := parseLocationIDs(req.LocationIDs)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now()
	fields := map[string]any{
		"name":          name,
		"email":         email,
		"role":          role.String(),
		"profile_image": trimmed(req.ProfileImage),
		"updated_at":    now,
	}
	if req.Password != "" {
		if err := domain.ValidatePassword(req.Password); err != nil {
			return domain.User{}, err
		}
		hash, err := password.Hash(req.Password)
		if err != nil {
			return domain.User{}, err
		}
		fields["password_hash"] = hash
	}

	var updated *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmail(ctx, tx, email, userID); err != nil {
			return err
		}
		if role == principal.RolePrincipal {
			if err := s.checkSinglePrincipal(ctx, tx, dealershipID, userID); err != nil {
				return err
			}
		}
		if err := s.checkLocations(ctx, tx, dealershipID, locationIDs); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, userID, fields); err != nil {
			return err
		}
		if err := s.repo.ReplaceLocations(ctx, tx, userID, locationIDs, now); err != nil {
			return err
		}
		updated, err = s.repo.FindByID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	if updated == nil {
		return domain.User{}, domain.ErrNotFound
	}
	updated.LocationIDs = locationIDs

	s.audit(ctx, dealershipID, "user.update", userID, map[string]any{
		"role":             updated.Role,
		"password_changed": req.Password != "",
		"location_count":   len(locationIDs),
	})
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectUser, authorization.ActionDelete)
	if err != nil {
		return err
	}
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	if userID == p.UserID {
		return domain.ErrCannotDeleteSelf
	}

	existing, err := s.activeUser(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if existing.DealershipID == nil {
		return authorization.ErrForbidden
	}
	if err := s.authz.RequireDealership(ctx, decision, *existing.DealershipID); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, s.db, userID, map[string]any{
		"status":     domain.StatusDeleted,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return err
	}

	s.audit(ctx, *existing.DealershipID, "user.delete", userID, nil)
	return nil
}

// checkEmail rejects an address held by any other user, deleted ones
// included.
func (s *Service) checkEmail(ctx context.Context, tx *gorm.DB, email string, excludeID snowflake.ID) error {
	taken, err := s.repo.EmailTaken(ctx, tx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrEmailTaken
	}
	return nil
}

func (s *Service) checkSinglePrincipal(ctx context.Context, tx *gorm.DB, dealershipID, excludeID snowflake.ID) error {
	count, err := s.repo.CountActivePrincipals(ctx, tx, dealershipID, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrPrincipalExists
	}
	return nil
}

func (s *Service) checkLocations(ctx context.Context, tx *gorm.DB, dealershipID snowflake.ID, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.dealershipRepo.ActiveLocationIDs(ctx, tx, dealershipID, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return domain.ErrInvalidLocation
	}
	return nil
}

func (s *Service) activeUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != domain.StatusActive {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) audit(ctx context.Context, dealershipID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		DealershipID: &dealershipID,
		Action:       action,
		TargetType:   "user",
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

// parseLocationIDs parses and de-duplicates membership ids, keeping order.
func parseLocationIDs(raw []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]struct{}, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id <= 0 {
			return nil, domain.ErrInvalidLocation
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
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
