package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeMention        = "mention"
	TypeInboundMessage = "inbound_message"
	TypeLeadAssigned   = "lead_assigned"
	TypeLeadReceived   = "lead_received"
)

// Notification is addressed to a single user. It is not tenant data and is
// hard-deleted when the recipient clears it.
type Notification struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	Type      string       `gorm:"not null" json:"type"`
	Message   string       `gorm:"not null" json:"message"`
	Link      string       `json:"link"`
	IsRead    bool         `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time    `gorm:"not null;index:idx_notifications_user_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
