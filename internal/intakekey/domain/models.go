package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// IntakeKey binds webhook submissions to one dealership.
type IntakeKey struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	DealershipID snowflake.ID `gorm:"not null;index"`
	Name         string       `gorm:"not null"`
	// Prefix is the non-secret head of the raw key, shown in listings.
	Prefix     string     `gorm:"not null"`
	KeyHash    string     `gorm:"not null;uniqueIndex"`
	IsActive   bool       `gorm:"not null;default:true"`
	CreatedBy  *snowflake.ID
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

func (IntakeKey) TableName() string { return "intake_keys" }

// Repository finders return nil, nil when no row matches.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *IntakeKey) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*IntakeKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*IntakeKey, error)
	List(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) ([]IntakeKey, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}
