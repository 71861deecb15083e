package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/task/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	LeadRepo leaddomain.Repository
	Authz    authorization.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	leadRepo leaddomain.Repository
	authz    authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("task.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		leadRepo: p.LeadRepo,
		authz:    p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTaskRequest) (domain.Task, error) {
	p := principal.Current(ctx)
	if _, err := s.authz.Authorize(ctx, p, authorization.ObjectTask, authorization.ActionCreate); err != nil {
		return domain.Task{}, err
	}
	dealershipID, ok := p.Dealership()
	if !ok {
		return domain.Task{}, authorization.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Task{}, domain.ErrInvalidTitle
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return domain.Task{}, err
	}

	var leadID *snowflake.ID
	if req.LeadID != nil && strings.TrimSpace(*req.LeadID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.LeadID))
		if err != nil || id <= 0 {
			return domain.Task{}, domain.ErrInvalidLead
		}
		lead, err := s.leadRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.Task{}, err
		}
		if lead == nil || lead.DealershipID != dealershipID {
			return domain.Task{}, domain.ErrInvalidLead
		}
		leadID = &id
	}

	now := s.clock.Now()
	task := domain.Task{
		ID:           s.genID.Generate(),
		DealershipID: dealershipID,
		LeadID:       leadID,
		UserID:       p.UserID,
		Title:        title,
		Description:  trimmed(req.Description),
		DueDate:      dueDate,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &task); err != nil {
		return domain.Task{}, err
	}

	created, err := s.repo.FindByID(ctx, s.db, task.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if created == nil {
		return task, nil
	}
	return *created, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Task, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectTask, authorization.ActionList)
	if err != nil {
		return nil, err
	}
	dealershipID, ok := decision.TenantFilter()
	if !ok {
		dealershipID = nil
	}

	tasks, err := s.repo.ListVisible(ctx, s.db, dealershipID, p.UserID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// UpdateStatus is allowed for the task owner and for any principal or
// admin of the task's dealership.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (domain.Task, error) {
	p := principal.Current(ctx)
	decision, err := s.authz.Authorize(ctx, p, authorization.ObjectTask, authorization.ActionUpdate)
	if err != nil {
		return domain.Task{}, err
	}

	taskID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || taskID <= 0 {
		return domain.Task{}, domain.ErrInvalidID
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.ValidStatus(status) {
		return domain.Task{}, domain.ErrInvalidStatus
	}

	task, err := s.repo.FindByID(ctx, s.db, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task == nil {
		return domain.Task{}, domain.ErrNotFound
	}
	if task.UserID != p.UserID {
		if p.Role != principal.RolePrincipal && p.Role != principal.RoleAdmin {
			return domain.Task{}, authorization.ErrForbidden
		}
		if err := s.authz.RequireDealership(ctx, decision, task.DealershipID); err != nil {
			return domain.Task{}, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, s.db, task.ID, status, now); err != nil {
		return domain.Task{}, err
	}
	task.Status = status
	task.UpdatedAt = now

	s.log.Info("task status updated",
		zap.String("task_id", task.ID.String()),
		zap.String("status", status),
	)
	return *task, nil
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, domain.ErrInvalidDueDate
	}
	t = t.UTC()
	return &t, nil
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
