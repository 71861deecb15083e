package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Summary is the dashboard counter set. LeadsByStatus always carries every
// lead status, zero when empty.
type Summary struct {
	TotalLeads          int64            `json:"total_leads"`
	ActiveDeals         int64            `json:"active_deals"`
	InboundMessages     int64            `json:"inbound_messages"`
	UnreadNotifications int64            `json:"unread_notifications"`
	LeadsByStatus       map[string]int64 `json:"leads_by_status"`
}

// Repository computes counters. A nil dealership counts across the platform.
type Repository interface {
	LeadsByStatus(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) (map[string]int64, error)
	InboundMessages(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) (int64, error)
	UnreadNotifications(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}

type Service interface {
	Get(ctx context.Context) (Summary, error)
}
