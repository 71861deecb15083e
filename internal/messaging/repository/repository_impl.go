package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/messaging/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCommunication(ctx context.Context, db *gorm.DB, communication *domain.Communication) error {
	return db.WithContext(ctx).Create(communication).Error
}

func (r *repo) InsertMentions(ctx context.Context, db *gorm.DB, mentions []domain.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&mentions).Error
}

func (r *repo) ListByLead(ctx context.Context, db *gorm.DB, leadID snowflake.ID) ([]domain.Communication, error) {
	var items []domain.Communication
	err := db.WithContext(ctx).
		Table("communications AS c").
		Select("c.*, u.name AS sender_name").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("c.lead_id = ?", leadID).
		Order("c.created_at asc, c.id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListFeed(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, limit int) ([]domain.Communication, error) {
	var items []domain.Communication
	err := db.WithContext(ctx).
		Table("communications AS c").
		Select("c.*, u.name AS sender_name, l.first_name AS lead_first_name, l.last_name AS lead_last_name").
		Joins("JOIN leads l ON l.id = c.lead_id").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("l.dealership_id = ?", dealershipID).
		Order("c.created_at desc, c.id desc").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) MentionedUsers(ctx context.Context, db *gorm.DB, communicationIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error) {
	out := make(map[snowflake.ID][]snowflake.ID, len(communicationIDs))
	if len(communicationIDs) == 0 {
		return out, nil
	}
	var rows []domain.Mention
	if err := db.WithContext(ctx).
		Where("communication_id IN ?", communicationIDs).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommunicationID] = append(out[row.CommunicationID], row.UserID)
	}
	return out, nil
}
