package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	obsmetrics "github.com/smallbiznis/dealflow/internal/observability/metrics"
	"github.com/smallbiznis/dealflow/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Service interface {
	// Authorize checks the principal's role against the capability table and
	// returns the granted scope.
	Authorize(ctx context.Context, p *principal.Principal, object, action string) (Decision, error)
	// AuthorizeDealership additionally requires that a resource owned by
	// dealershipID is within the granted scope.
	AuthorizeDealership(ctx context.Context, p *principal.Principal, object, action string, dealershipID snowflake.ID) (Decision, error)
	// RequireDealership checks a decision obtained earlier against the owner
	// of a resource that has since been loaded.
	RequireDealership(ctx context.Context, decision Decision, dealershipID snowflake.ID) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

// NewEnforcer loads the capability table into casbin, persisted in the
// casbin_rule table through the gorm adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}

	if adapter != nil {
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := syncPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// syncPolicies makes the stored rules match the capability table exactly.
func syncPolicies(enforcer *casbin.SyncedEnforcer) error {
	want := policies()
	wanted := make(map[string]struct{}, len(want))
	for _, rule := range want {
		wanted[strings.Join(rule, "|")] = struct{}{}
	}

	existing, err := enforcer.GetPolicy()
	if err != nil {
		return err
	}
	var stale [][]string
	for _, rule := range existing {
		if _, ok := wanted[strings.Join(rule, "|")]; !ok {
			stale = append(stale, rule)
		}
	}
	if len(stale) > 0 {
		if _, err := enforcer.RemovePolicies(stale); err != nil {
			return err
		}
	}

	for _, rule := range want {
		has, err := enforcer.HasPolicy(rule)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, p *principal.Principal, object, action string) (Decision, error) {
	if p == nil || p.UserID == 0 {
		return Decision{}, ErrUnauthenticated
	}

	ok, explain, err := s.enforcer.EnforceEx(subject(p.Role), object, action)
	if err != nil {
		return Decision{}, err
	}
	if !ok || len(explain) < 4 {
		s.denied(ctx, p, object, action, "role")
		return Decision{}, ErrForbidden
	}

	return Decision{
		Principal: *p,
		Object:    object,
		Action:    action,
		Scope:     Scope(explain[3]),
	}, nil
}

func (s *ServiceImpl) AuthorizeDealership(ctx context.Context, p *principal.Principal, object, action string, dealershipID snowflake.ID) (Decision, error) {
	decision, err := s.Authorize(ctx, p, object, action)
	if err != nil {
		return Decision{}, err
	}
	if err := s.RequireDealership(ctx, decision, dealershipID); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

func (s *ServiceImpl) RequireDealership(ctx context.Context, decision Decision, dealershipID snowflake.ID) error {
	if decision.AllowsDealership(dealershipID) {
		return nil
	}
	p := decision.Principal
	s.denied(ctx, &p, decision.Object, decision.Action, "tenant")
	return ErrForbidden
}

func (s *ServiceImpl) denied(ctx context.Context, p *principal.Principal, object, action, reason string) {
	s.metrics.RecordAuthzDenied(ctx, object)
	s.log.Debug("authorization denied",
		zap.String("role", string(p.Role)),
		zap.String("object", object),
		zap.String("action", action),
		zap.String("reason", reason),
	)
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		DealershipID: p.DealershipID,
		Action:       "authorization.denied",
		TargetType:   object,
		Metadata: map[string]any{
			"action": action,
			"role":   string(p.Role),
			"reason": reason,
		},
	}); err != nil {
		s.log.Warn("failed to audit authorization denial", zap.Error(err))
	}
}
