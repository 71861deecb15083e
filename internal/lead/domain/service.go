package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateLeadRequest struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Source          string  `json:"source"`
	VehicleInterest string  `json:"vehicle_interest"`
	LocationID      *string `json:"location_id"`
	AssignedUserID  *string `json:"assigned_user_id"`
}

// UpdateLeadRequest changes only the fields that are present. An empty
// location or assignee id clears it.
type UpdateLeadRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Source          *string `json:"source"`
	VehicleInterest *string `json:"vehicle_interest"`
	Status          *string `json:"status"`
	LocationID      *string `json:"location_id"`
	AssignedUserID  *string `json:"assigned_user_id"`
}

type ListLeadsRequest struct {
	Status         string
	AssignedUserID string
}

// IntakeLeadRequest is the payload accepted from external lead sources. It
// keeps the camelCase field names existing lead providers already send.
type IntakeLeadRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Source          string `json:"source"`
	VehicleInterest string `json:"vehicleInterest"`
}

type Service interface {
	Create(ctx context.Context, req CreateLeadRequest) (Lead, error)
	Get(ctx context.Context, id string) (Lead, error)
	List(ctx context.Context, req ListLeadsRequest) ([]Lead, error)
	Update(ctx context.Context, id string, req UpdateLeadRequest) (Lead, error)
	UpdateStatus(ctx context.Context, id string, status string) (Lead, error)
	// Intake creates a lead on behalf of a trusted external source.
	Intake(ctx context.Context, dealershipID snowflake.ID, req IntakeLeadRequest) (Lead, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidFirstName    = errors.New("invalid_first_name")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidLocation     = errors.New("invalid_location")
	ErrInvalidAssignee     = errors.New("invalid_assigned_user")
	ErrInvalidDealershipID = errors.New("invalid_dealership")
	ErrNotFound            = errors.New("not_found")
)
