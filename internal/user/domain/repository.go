package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	DealershipID  *snowflake.ID
	ExcludeUserID snowflake.ID
}

// Repository persists users and memberships. Finders return nil, nil when
// the row does not exist.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindActiveByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	EmailTaken(ctx context.Context, db *gorm.DB, email string, excludeID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, error)
	ListActiveByDealership(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) ([]User, error)
	CountActivePrincipals(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, excludeID snowflake.ID) (int64, error)
	FindActivePrincipal(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) (*User, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	ReplaceLocations(ctx context.Context, db *gorm.DB, userID snowflake.ID, locationIDs []snowflake.ID, now time.Time) error
	LocationIDs(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error)
}
