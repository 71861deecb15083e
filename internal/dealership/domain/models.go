package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

type Dealership struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"not null;index" json:"slug"`
	Status    string       `gorm:"not null;default:active;index" json:"status"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Dealership) TableName() string { return "dealerships" }

// Location is a rooftop of a dealership. Exactly one active location per
// dealership carries IsDefault; the write path keeps that true.
type Location struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	DealershipID snowflake.ID `gorm:"not null;index" json:"dealership_id"`
	Name         string       `gorm:"not null" json:"name"`
	Address      string       `json:"address"`
	IsDefault    bool         `gorm:"not null;default:false" json:"is_default"`
	Status       string       `gorm:"not null;default:active" json:"status"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`

	DealershipName string `gorm:"->;-:migration" json:"dealership_name,omitempty"`
}

func (Location) TableName() string { return "locations" }

// Role is the catalog entry for one of the fixed roles.
type Role struct {
	Name        string `gorm:"primaryKey" json:"name"`
	Description string `json:"description"`
	SortOrder   int    `gorm:"not null;default:0" json:"-"`
}

func (Role) TableName() string { return "roles" }
