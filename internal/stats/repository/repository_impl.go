package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	"github.com/smallbiznis/dealflow/internal/stats/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type statusCount struct {
	Status string
	Total  int64
}

func (r *repo) LeadsByStatus(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) (map[string]int64, error) {
	var rows []statusCount
	stmt := db.WithContext(ctx).Model(&leaddomain.Lead{}).
		Select("status, COUNT(*) AS total").
		Group("status")
	if dealershipID != nil {
		stmt = stmt.Where("dealership_id = ?", *dealershipID)
	}
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *repo) InboundMessages(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&messagingdomain.Communication{}).
		Where("communications.direction = ?", messagingdomain.DirectionInbound)
	if dealershipID != nil {
		stmt = stmt.
			Joins("JOIN leads ON leads.id = communications.lead_id").
			Where("leads.dealership_id = ?", *dealershipID)
	}
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) UnreadNotifications(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
