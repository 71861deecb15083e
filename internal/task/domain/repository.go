package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists tasks. FindByID returns nil, nil when missing.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, task *Task) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Task, error)
	// ListVisible returns tasks in the dealership or owned by userID, due
	// soonest first with undated tasks last.
	ListVisible(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID, userID snowflake.ID) ([]Task, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error
}
