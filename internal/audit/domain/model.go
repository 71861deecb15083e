package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser      ActorType = "user"
	ActorTypeSystem    ActorType = "system"
	ActorTypeIntakeKey ActorType = "intake_key"
	ActorTypeAnonymous ActorType = "anonymous"
)

// AuditLog is an append-only record of an administrative or security event.
type AuditLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	DealershipID *snowflake.ID     `gorm:"index" json:"dealership_id,omitempty"`
	ActorType    string            `gorm:"not null" json:"actor_type"`
	ActorID      *string           `json:"actor_id,omitempty"`
	Action       string            `gorm:"not null;index" json:"action"`
	TargetType   string            `gorm:"not null" json:"target_type"`
	TargetID     *string           `json:"target_id,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress    *string           `json:"ip_address,omitempty"`
	UserAgent    *string           `json:"user_agent,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	DealershipID *snowflake.ID
	Action       string
	TargetType   string
	TargetID     string
	ActorType    string
	StartAt      *time.Time
	EndAt        *time.Time
	Cursor       *AuditCursor
	Limit        int
}
