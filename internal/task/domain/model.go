package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusCompleted
}

// Task is a follow-up owned by one user. DealershipID is the owner's
// dealership at creation time and scopes visibility.
type Task struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	DealershipID snowflake.ID  `gorm:"not null;index" json:"dealership_id"`
	LeadID       *snowflake.ID `gorm:"index" json:"lead_id,omitempty"`
	UserID       snowflake.ID  `gorm:"not null;index" json:"user_id"`
	Title        string        `gorm:"not null" json:"title"`
	Description  *string       `json:"description,omitempty"`
	DueDate      *time.Time    `gorm:"index" json:"due_date,omitempty"`
	Status       string        `gorm:"not null;default:pending" json:"status"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`

	LeadFirstName string `gorm:"->;-:migration" json:"lead_first_name,omitempty"`
	LeadLastName  string `gorm:"->;-:migration" json:"lead_last_name,omitempty"`
	OwnerName     string `gorm:"->;-:migration" json:"owner_name,omitempty"`
}

func (Task) TableName() string { return "tasks" }

func (t Task) LeadName() string {
	return strings.TrimSpace(t.LeadFirstName + " " + t.LeadLastName)
}
