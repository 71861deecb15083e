package domain

import (
	"context"
	"errors"
)

type CreateUserRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Role         string   `json:"role"`
	LocationIDs  []string `json:"location_ids"`
	ProfileImage *string  `json:"profile_image"`
}

// UpdateUserRequest replaces the editable fields. An empty Password keeps
// the stored hash; a nil LocationIDs clears every membership.
type UpdateUserRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Role         string   `json:"role"`
	LocationIDs  []string `json:"location_ids"`
	ProfileImage *string  `json:"profile_image"`
}

type Service interface {
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (User, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidPassword  = errors.New("invalid_password")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidLocation  = errors.New("invalid_location")
	ErrEmailTaken       = errors.New("email_taken")
	ErrPrincipalExists  = errors.New("principal_exists")
	ErrCannotDeleteSelf = errors.New("cannot_delete_self")
	ErrNotFound         = errors.New("not_found")
)
