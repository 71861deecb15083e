package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCommunication(ctx context.Context, db *gorm.DB, communication *Communication) error
	InsertMentions(ctx context.Context, db *gorm.DB, mentions []Mention) error
	// ListByLead returns the transcript oldest first.
	ListByLead(ctx context.Context, db *gorm.DB, leadID snowflake.ID) ([]Communication, error)
	// ListFeed returns the newest communications across a dealership.
	ListFeed(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, limit int) ([]Communication, error)
	MentionedUsers(ctx context.Context, db *gorm.DB, communicationIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error)
}
