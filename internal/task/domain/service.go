package domain

import (
	"context"
	"errors"
)

type CreateTaskRequest struct {
	LeadID      *string `json:"lead_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	// DueDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
	DueDate *string `json:"due_date"`
}

type Service interface {
	Create(ctx context.Context, req CreateTaskRequest) (Task, error)
	List(ctx context.Context) ([]Task, error)
	UpdateStatus(ctx context.Context, id string, status string) (Task, error)
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidTitle   = errors.New("invalid_title")
	ErrInvalidLead    = errors.New("invalid_lead")
	ErrInvalidDueDate = errors.New("invalid_due_date")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrNotFound       = errors.New("not_found")
)
