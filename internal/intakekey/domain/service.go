package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, id string) error
	// Resolve maps a raw key to its dealership. It needs no principal.
	Resolve(ctx context.Context, raw string) (snowflake.ID, error)
}

type CreateRequest struct {
	Name string `json:"name"`
}

type Response struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	Prefix     string       `json:"prefix"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
	LastUsedAt *time.Time   `json:"last_used_at"`
	RevokedAt  *time.Time   `json:"revoked_at"`
}

// SecretResponse carries the raw key. It is returned only at creation.
type SecretResponse struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
	Key  string       `json:"key"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidKey  = errors.New("invalid_intake_key")
	ErrNotFound    = errors.New("not_found")
)
