package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/principal"
)

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// User is a platform or dealership account. Email is unique across every
// status, so a deleted user's address stays reserved.
type User struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	DealershipID *snowflake.ID `gorm:"index" json:"dealership_id,omitempty"`
	Role         string        `gorm:"not null;index" json:"role"`
	Name         string        `gorm:"not null" json:"name"`
	Email        string        `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"not null" json:"-"`
	Status       string        `gorm:"not null;default:active;index" json:"status"`
	ProfileImage *string       `json:"profile_image,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`

	LocationIDs    []snowflake.ID `gorm:"-" json:"location_ids"`
	DealershipName string         `gorm:"->;-:migration" json:"dealership_name,omitempty"`
}

func (User) TableName() string { return "users" }

func (u User) Principal() principal.Principal {
	return principal.Principal{
		UserID:       u.ID,
		Role:         principal.Role(u.Role),
		DealershipID: u.DealershipID,
		LocationIDs:  u.LocationIDs,
	}
}

// UserLocation is the membership of a user in a location. The set for a user
// is replaced wholesale on every update.
type UserLocation struct {
	UserID     snowflake.ID `gorm:"primaryKey" json:"user_id"`
	LocationID snowflake.ID `gorm:"primaryKey;index" json:"location_id"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (UserLocation) TableName() string { return "user_locations" }
