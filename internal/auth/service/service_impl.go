package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/auth/domain"
	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/auth/token"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/principal"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Tokens   token.Manager
	UserRepo userdomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	tokens   token.Manager
	userRepo userdomain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		clock:    p.Clock,
		tokens:   p.Tokens,
		userRepo: p.UserRepo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindActiveByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.loginFailed(ctx, nil, "unknown_email")
		return nil, domain.ErrInvalidCredentials
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.loginFailed(ctx, user, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	if password.IsBcrypt(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	memberships, err := s.userRepo.LocationIDs(ctx, s.db, []snowflake.ID{user.ID})
	if err != nil {
		return nil, err
	}
	user.LocationIDs = memberships[user.ID]
	if user.LocationIDs == nil {
		user.LocationIDs = []snowflake.ID{}
	}

	raw, expiresAt, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role),
	)
	return &domain.LoginResult{
		Token:     raw,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (principal.Principal, error) {
	return s.tokens.Verify(rawToken)
}

func (s *Service) Me(ctx context.Context) (*userdomain.User, error) {
	p := principal.Current(ctx)
	if p == nil {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.userRepo.FindByID(ctx, s.db, p.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.StatusActive {
		return nil, domain.ErrUserNotFound
	}

	memberships, err := s.userRepo.LocationIDs(ctx, s.db, []snowflake.ID{user.ID})
	if err != nil {
		return nil, err
	}
	user.LocationIDs = memberships[user.ID]
	if user.LocationIDs == nil {
		user.LocationIDs = []snowflake.ID{}
	}
	return user, nil
}

// upgradeHash replaces a legacy bcrypt hash after a successful login.
func (s *Service) upgradeHash(ctx context.Context, userID snowflake.ID, raw string) {
	hash, err := password.Hash(raw)
	if err != nil {
		s.log.Warn("failed to rehash legacy password", zap.Error(err))
		return
	}
	if err := s.userRepo.Update(ctx, s.db, userID, map[string]any{
		"password_hash": hash,
		"updated_at":    s.clock.Now(),
	}); err != nil {
		s.log.Warn("failed to store upgraded password hash", zap.Error(err))
	}
}

func (s *Service) loginFailed(ctx context.Context, user *userdomain.User, reason string) {
	s.log.Info("login failed", zap.String("reason", reason))
	if s.auditSvc == nil {
		return
	}

	entry := auditdomain.Entry{
		Action:     "auth.login_failed",
		TargetType: "user",
		Metadata:   map[string]any{"reason": reason},
	}
	if user != nil {
		entry.DealershipID = user.DealershipID
		entry.TargetID = user.ID.String()
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		s.log.Warn("failed to audit login failure", zap.Error(err))
	}
}
