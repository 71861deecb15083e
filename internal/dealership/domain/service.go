package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
)

type PrincipalInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LocationInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type CreateDealershipRequest struct {
	Name      string         `json:"name"`
	Principal PrincipalInput `json:"principal"`
	Location  LocationInput  `json:"location"`
}

type CreateDealershipResult struct {
	ID         snowflake.ID    `json:"id"`
	Dealership Dealership      `json:"dealership"`
	Location   Location        `json:"location"`
	Principal  userdomain.User `json:"principal"`
}

type UpdateDealershipRequest struct {
	Name string `json:"name"`
}

type CreateLocationRequest struct {
	DealershipID string `json:"dealership_id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	IsDefault    bool   `json:"is_default"`
}

type UpdateLocationRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	IsDefault *bool   `json:"is_default"`
}

type Service interface {
	ListDealerships(ctx context.Context) ([]Dealership, error)
	CreateDealership(ctx context.Context, req CreateDealershipRequest) (CreateDealershipResult, error)
	UpdateDealership(ctx context.Context, id string, req UpdateDealershipRequest) (Dealership, error)
	DeleteDealership(ctx context.Context, id string) error

	ListLocations(ctx context.Context) ([]Location, error)
	CreateLocation(ctx context.Context, req CreateLocationRequest) (Location, error)
	UpdateLocation(ctx context.Context, id string, req UpdateLocationRequest) (Location, error)
	DeleteLocation(ctx context.Context, id string) error

	ListRoles(ctx context.Context) ([]Role, error)

	// IntakeDealership resolves the dealership that unauthenticated lead
	// intake binds to: the preferred id if it is active, otherwise the
	// oldest active dealership.
	IntakeDealership(ctx context.Context, preferred snowflake.ID) (Dealership, error)
}

var (
	ErrInvalidID                = errors.New("invalid_id")
	ErrInvalidName              = errors.New("invalid_name")
	ErrInvalidDealership        = errors.New("invalid_dealership")
	ErrNotFound                 = errors.New("not_found")
	ErrDefaultLocationProtected = errors.New("default_location_protected")
	ErrDefaultLocationRequired  = errors.New("default_location_required")
	ErrNoDealershipConfigured   = errors.New("no_dealership_configured")
)
