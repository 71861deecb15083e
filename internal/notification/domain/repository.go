package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, items []Notification) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	// MarkRead reports whether a notification owned by userID was found.
	MarkRead(ctx context.Context, db *gorm.DB, id, userID snowflake.ID) (bool, error)
	MarkAllRead(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	DeleteByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}
