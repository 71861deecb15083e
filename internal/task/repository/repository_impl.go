package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/task/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Create(task).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Task, error) {
	var task domain.Task
	err := enriched(db.WithContext(ctx)).Where("t.id = ?", id).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repo) ListVisible(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID, userID snowflake.ID) ([]domain.Task, error) {
	var tasks []domain.Task
	stmt := enriched(db.WithContext(ctx))
	if dealershipID != nil {
		stmt = stmt.Where("t.dealership_id = ? OR t.user_id = ?", *dealershipID, userID)
	} else {
		stmt = stmt.Where("t.user_id = ?", userID)
	}
	// NULLS LAST is not portable to mysql.
	err := stmt.
		Order("CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END").
		Order("t.due_date asc").
		Order("t.created_at asc, t.id asc").
		Find(&tasks).Error
	return tasks, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

func enriched(db *gorm.DB) *gorm.DB {
	return db.Table("tasks AS t").
		Select("t.*, l.first_name AS lead_first_name, l.last_name AS lead_last_name, u.name AS owner_name").
		Joins("LEFT JOIN leads l ON l.id = t.lead_id").
		Joins("LEFT JOIN users u ON u.id = t.user_id")
}
