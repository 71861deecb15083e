package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads and writes tenant directory rows. Finders return nil, nil
// when the row does not exist.
type Repository interface {
	InsertDealership(ctx context.Context, db *gorm.DB, dealership *Dealership) error
	FindDealership(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Dealership, error)
	ListDealerships(ctx context.Context, db *gorm.DB) ([]Dealership, error)
	UpdateDealership(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	OldestActiveDealership(ctx context.Context, db *gorm.DB) (*Dealership, error)

	InsertLocation(ctx context.Context, db *gorm.DB, location *Location) error
	FindLocation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Location, error)
	ListLocations(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) ([]Location, error)
	CountActiveLocations(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) (int64, error)
	ClearDefaultLocation(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) error
	UpdateLocation(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	ActiveLocationIDs(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, ids []snowflake.ID) ([]snowflake.ID, error)

	ListRoles(ctx context.Context, db *gorm.DB) ([]Role, error)
	UpsertRole(ctx context.Context, db *gorm.DB, role Role) error
}
