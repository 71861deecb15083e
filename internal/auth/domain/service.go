package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/dealflow/internal/principal"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
)

type Service interface {
	// Login checks credentials and issues a session token.
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// Authenticate verifies a raw token without touching the database.
	Authenticate(ctx context.Context, rawToken string) (principal.Principal, error)
	// Me loads the current principal's profile.
	Me(ctx context.Context) (*userdomain.User, error)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      userdomain.User `json:"user"`
}
