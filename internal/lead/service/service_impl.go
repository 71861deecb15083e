package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/lead/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/dealflow/internal/observability/metrics"
	"github.com/smallbiznis/dealflow/internal/principal"
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
	DealershipRepo   dealershipdomain.Repository
	UserRepo         userdomain.Repository
	NotificationRepo notificationdomain.Repository
	Authz            authorization.Service
	Messaging        *config.MessagingConfigHolder `optional:"true"`
	Metrics          *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             domain.Repository
	dealershipRepo   dealershipdomain.Repository
	userRepo         userdomain.Repository
	notificationRepo notificationdomain.Repository
	authz            authorization.Service
	messaging        *config.MessagingConfigHolder
	metrics          *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("lead.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		dealershipRepo:   p.DealershipRepo,
		userRepo:         p.UserRepo,
		notificationRepo: p.NotificationRepo,
		authz:            p.Authz,
		messaging:        p.Messaging,
		metrics:          p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLeadRequest) (domain.Lead, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectLead, authorization.ActionCreate); err != nil {
		return domain.Lead{}, err
	}
	dealershipID, ok := p.Dealership()
	if !ok {
		return domain.Lead{}, authorization.ErrForbidden
	}

	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return domain.Lead{}, domain.ErrInvalidFirstName
	}
	locationID, err := parseOptionalID(req.LocationID, domain.ErrInvalidLocation)
	if err != nil {
		return domain.Lead{}, err
	}
	assigneeID, err := parseOptionalID(req.AssignedUserID, domain.ErrInvalidAssignee)
	if err != nil {
		return domain.Lead{}, err
	}

	now := s.clock.Now()
	lead := domain.Lead{
		ID:              s.genID.Generate(),
		DealershipID:    dealershipID,
		LocationID:      locationID,
		AssignedUserID:  assigneeID,
		FirstName:       firstName,
		LastName:        strings.TrimSpace(req.LastName),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Source:          strings.TrimSpace(req.Source),
		Status:          domain.StatusNew,
		VehicleInterest: strings.TrimSpace(req.VehicleInterest),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	notified := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(ctx, tx, dealershipID, locationID, assigneeID); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &lead); err != nil {
			return err
		}
		var err error
		notified, err = s.notifyAssignee(ctx, tx, lead, p.UserID)
		return err
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.metrics.RecordLeadCreated(ctx, metricSource(lead.Source))
	s.metrics.RecordNotifications(ctx, notificationdomain.TypeLeadAssigned, notified)
	return s.reload(ctx, lead)
}

// Get loads a lead. A missing lead is NotFound; a lead of another
// dealership is Forbidden.
func (s *Service) Get(ctx context.Context, id string) (domain.Lead, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectLead, authorization.ActionRead)
	if err != nil {
		return domain.Lead{}, err
	}
	leadID, err := parseID(id)
	if err != nil {
		return domain.Lead{}, err
	}
	lead, err := s.repo.FindByID(ctx, s.db, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead == nil {
		return domain.Lead{}, domain.ErrNotFound
	}
	if err := s.authz.RequireDealership(ctx, decision, lead.DealershipID); err != nil {
		return domain.Lead{}, err
	}
	return *lead, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLeadsRequest) ([]domain.Lead, error) {
	decision, err := s.authz.Authorize(ctx, principal.Current(ctx), authorization.ObjectLead, authorization.ActionList)
	if err != nil {
		return nil, err
	}
	dealershipID, ok := decision.TenantFilter()
	if !ok || dealershipID == nil {
		return []domain.Lead{}, nil
	}

	filter := domain.ListFilter{DealershipID: *dealershipID}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.ValidStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.AssignedUserID); raw != "" {
		assignee, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidAssignee
		}
		filter.AssignedUserID = &assignee
	}

	leads, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	return leads, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateLeadRequest) (domain.Lead, error) {
	p := principal.Current(ctx)
	current, err := s.loadForUpdate(ctx, p, id)
	if err != nil {
		return domain.Lead{}, err
	}

	updated := *current
	fields := map[string]any{}
	setText := func(column string, value *string, target *string) {
		if value == nil {
			return
		}
		*target = strings.TrimSpace(*value)
		fields[column] = *target
	}

	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		return domain.Lead{}, domain.ErrInvalidFirstName
	}
	setText("first_name", req.FirstName, &updated.FirstName)
	setText("last_name", req.LastName, &updated.LastName)
	setText("email", req.Email, &updated.Email)
	setText("phone", req.Phone, &updated.Phone)
	setText("source", req.Source, &updated.Source)
	setText("vehicle_interest", req.VehicleInterest, &updated.VehicleInterest)

	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if !domain.ValidStatus(status) {
			return domain.Lead{}, domain.ErrInvalidStatus
		}
		updated.Status = status
		fields["status"] = status
	}

	var locationID, assigneeID *snowflake.ID
	if req.LocationID != nil {
		if locationID, err = parseOptionalID(req.LocationID, domain.ErrInvalidLocation); err != nil {
			return domain.Lead{}, err
		}
		updated.LocationID = locationID
		fields["location_id"] = locationID
	}
	if req.AssignedUserID != nil {
		if assigneeID, err = parseOptionalID(req.AssignedUserID, domain.ErrInvalidAssignee); err != nil {
			return domain.Lead{}, err
		}
		updated.AssignedUserID = assigneeID
		fields["assigned_user_id"] = assigneeID
	}
	if len(fields) == 0 {
		return *current, nil
	}
	updated.UpdatedAt = s.clock.Now()
	fields["updated_at"] = updated.UpdatedAt

	reassigned := assigneeID != nil && (current.AssignedUserID == nil || *current.AssignedUserID != *assigneeID)

	notified := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(ctx, tx, current.DealershipID, locationID, assigneeID); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, current.ID, fields); err != nil {
			return err
		}
		if !reassigned {
			return nil
		}
		var err error
		notified, err = s.notifyAssignee(ctx, tx, updated, p.UserID)
		return err
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.metrics.RecordNotifications(ctx, notificationdomain.TypeLeadAssigned, notified)
	return s.reload(ctx, updated)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (domain.Lead, error) {
	p := principal.Current(ctx)
	current, err := s.loadForUpdate(ctx, p, id)
	if err != nil {
		return domain.Lead{}, err
	}
	status = strings.TrimSpace(status)
	if !domain.ValidStatus(status) {
		return domain.Lead{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, s.db, current.ID, map[string]any{
		"status":     status,
		"updated_at": now,
	}); err != nil {
		return domain.Lead{}, err
	}
	current.Status = status
	current.UpdatedAt = now
	return *current, nil
}

func (s *Service) Intake(ctx context.Context, dealershipID snowflake.ID, req domain.IntakeLeadRequest) (domain.Lead, error) {
	if dealershipID == 0 {
		return domain.Lead{}, domain.ErrInvalidDealershipID
	}
	firstName, lastName := intakeName(req)
	if firstName == "" {
		return domain.Lead{}, domain.ErrInvalidFirstName
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.SourceWebhook
	}

	now := s.clock.Now()
	lead := domain.Lead{
		ID:              s.genID.Generate(),
		DealershipID:    dealershipID,
		FirstName:       firstName,
		LastName:        lastName,
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Source:          source,
		Status:          domain.StatusNew,
		VehicleInterest: strings.TrimSpace(req.VehicleInterest),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	notified := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &lead); err != nil {
			return err
		}
		var err error
		notified, err = s.notifyPrincipal(ctx, tx, lead)
		return err
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.metrics.RecordLeadCreated(ctx, metricSource(source))
	s.metrics.RecordNotifications(ctx, notificationdomain.TypeLeadReceived, notified)
	s.log.Info("lead received from intake",
		zap.String("lead_id", lead.ID.String()),
		zap.String("dealership_id", dealershipID.String()),
	)
	return lead, nil
}

// intakeName picks a display name for an external lead. Sources often omit
// the first name, so the last name, email or phone stand in for it.
func intakeName(req domain.IntakeLeadRequest) (string, string) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first != "" {
		return first, last
	}
	if last != "" {
		return last, ""
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		return email, ""
	}
	return strings.TrimSpace(req.Phone), ""
}

// notifyPrincipal tells the dealership's principal about an unassigned
// external lead. A dealership without an active principal is skipped.
func (s *Service) notifyPrincipal(ctx context.Context, tx *gorm.DB, lead domain.Lead) (int, error) {
	owner, err := s.userRepo.FindActivePrincipal(ctx, tx, lead.DealershipID)
	if err != nil || owner == nil {
		return 0, err
	}
	n := notificationdomain.Notification{
		ID:        s.genID.Generate(),
		UserID:    owner.ID,
		Type:      notificationdomain.TypeLeadReceived,
		Message:   fmt.Sprintf("New %s lead: %s", lead.Source, lead.FullName()),
		Link:      s.messaging.Get().LeadLink(lead.ID.String()),
		CreatedAt: lead.CreatedAt,
	}
	if err := s.notificationRepo.Insert(ctx, tx, []notificationdomain.Notification{n}); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Service) loadForUpdate(ctx context.Context, p *principal.Principal, id string) (*domain.Lead, error) {
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectLead, authorization.ActionUpdate)
	if err != nil {
		return nil, err
	}
	leadID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	lead, err := s.repo.FindByID(ctx, s.db, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.authz.RequireDealership(ctx, decision, lead.DealershipID); err != nil {
		return nil, err
	}
	return lead, nil
}

// checkRefs requires the location and assignee to belong to the dealership.
func (s *Service) checkRefs(ctx context.Context, tx *gorm.DB, dealershipID snowflake.ID, locationID, assigneeID *snowflake.ID) error {
	if locationID != nil {
		found, err := s.dealershipRepo.ActiveLocationIDs(ctx, tx, dealershipID, []snowflake.ID{*locationID})
		if err != nil {
			return err
		}
		if len(found) != 1 {
			return domain.ErrInvalidLocation
		}
	}
	if assigneeID != nil {
		user, err := s.userRepo.FindByID(ctx, tx, *assigneeID)
		if err != nil {
			return err
		}
		if user == nil || user.Status != userdomain.StatusActive ||
			user.DealershipID == nil || *user.DealershipID != dealershipID {
			return domain.ErrInvalidAssignee
		}
	}
	return nil
}

// notifyAssignee writes a lead_assigned notification unless the assignee is
// the caller.
func (s *Service) notifyAssignee(ctx context.Context, tx *gorm.DB, lead domain.Lead, actorID snowflake.ID) (int, error) {
	if lead.AssignedUserID == nil || *lead.AssignedUserID == actorID {
		return 0, nil
	}
	n := notificationdomain.Notification{
		ID:        s.genID.Generate(),
		UserID:    *lead.AssignedUserID,
		Type:      notificationdomain.TypeLeadAssigned,
		Message:   fmt.Sprintf("You have been assigned lead %s", lead.FullName()),
		Link:      s.messaging.Get().LeadLink(lead.ID.String()),
		CreatedAt: s.clock.Now(),
	}
	if err := s.notificationRepo.Insert(ctx, tx, []notificationdomain.Notification{n}); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Service) reload(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	fresh, err := s.repo.FindByID(ctx, s.db, lead.ID)
	if err != nil {
		return domain.Lead{}, err
	}
	if fresh == nil {
		return lead, nil
	}
	return *fresh, nil
}

func metricSource(source string) string {
	if source == "" {
		return "unknown"
	}
	return strings.ToLower(source)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(raw *string, invalid error) (*snowflake.ID, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return nil, invalid
	}
	return &id, nil
}
