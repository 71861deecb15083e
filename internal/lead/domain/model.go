package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusWorking   = "working"
	StatusClosed    = "closed"
)

// Statuses may move in any direction; only membership is checked.
var Statuses = []string{StatusNew, StatusContacted, StatusWorking, StatusClosed}

const SourceWebhook = "Webhook"

// Lead belongs to one dealership for its whole life and is never deleted.
type Lead struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	DealershipID    snowflake.ID  `gorm:"not null;index:idx_leads_dealership_created,priority:1" json:"dealership_id"`
	LocationID      *snowflake.ID `gorm:"index" json:"location_id,omitempty"`
	AssignedUserID  *snowflake.ID `gorm:"index" json:"assigned_user_id,omitempty"`
	FirstName       string        `gorm:"not null" json:"first_name"`
	LastName        string        `json:"last_name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	Source          string        `json:"source"`
	Status          string        `gorm:"not null;default:new;index" json:"status"`
	VehicleInterest string        `json:"vehicle_interest"`
	CreatedAt       time.Time     `gorm:"not null;index:idx_leads_dealership_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`

	AssignedUserName string `gorm:"->;-:migration" json:"assigned_user_name,omitempty"`
	LocationName     string `gorm:"->;-:migration" json:"location_name,omitempty"`
}

func (Lead) TableName() string { return "leads" }

func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}
