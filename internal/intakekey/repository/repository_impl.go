package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/intakekey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *domain.IntakeKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.IntakeKey, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.IntakeKey, error) {
	return first(db.WithContext(ctx).Where("key_hash = ?", hash))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) ([]domain.IntakeKey, error) {
	var keys []domain.IntakeKey
	err := db.WithContext(ctx).
		Where("dealership_id = ?", dealershipID).
		Order("created_at desc, id desc").
		Find(&keys).Error
	return keys, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.IntakeKey{}).Where("id = ?", id).Updates(fields).Error
}

func first(stmt *gorm.DB) (*domain.IntakeKey, error) {
	var key domain.IntakeKey
	err := stmt.Take(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}
