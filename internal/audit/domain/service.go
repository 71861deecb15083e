package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/pkg/db/pagination"
)

// Entry describes one event to record. Actor and client details are taken
// from the request context.
type Entry struct {
	DealershipID *snowflake.ID
	Action       string
	TargetType   string
	TargetID     string
	Metadata     map[string]any
}

// ListAuditLogRequest filters the trail. A nil DealershipID lists every
// tenant and is only passed for platform-scoped callers.
type ListAuditLogRequest struct {
	pagination.Pagination
	DealershipID *snowflake.ID
	Action       string
	TargetType   string
	TargetID     string
	ActorType    string
	StartAt      *time.Time
	EndAt        *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
