package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/lead/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, lead *domain.Lead) error {
	return db.WithContext(ctx).Create(lead).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lead, error) {
	var lead domain.Lead
	err := enriched(db.WithContext(ctx)).Where("l.id = ?", id).Take(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Lead, error) {
	var leads []domain.Lead
	stmt := enriched(db.WithContext(ctx)).Where("l.dealership_id = ?", filter.DealershipID)
	if filter.Status != "" {
		stmt = stmt.Where("l.status = ?", filter.Status)
	}
	if filter.AssignedUserID != nil {
		stmt = stmt.Where("l.assigned_user_id = ?", *filter.AssignedUserID)
	}
	err := stmt.Order("l.created_at desc, l.id desc").Find(&leads).Error
	return leads, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Lead{}).Where("id = ?", id).Updates(fields).Error
}

func enriched(db *gorm.DB) *gorm.DB {
	return db.Table("leads AS l").
		Select("l.*, u.name AS assigned_user_name, loc.name AS location_name").
		Joins("LEFT JOIN users u ON u.id = l.assigned_user_id").
		Joins("LEFT JOIN locations loc ON loc.id = l.location_id")
}
