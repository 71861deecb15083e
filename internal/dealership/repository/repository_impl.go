package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/dealership/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertDealership(ctx context.Context, db *gorm.DB, dealership *domain.Dealership) error {
	return db.WithContext(ctx).Create(dealership).Error
}

func (r *repo) FindDealership(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Dealership, error) {
	var dealership domain.Dealership
	err := db.WithContext(ctx).Where("id = ?", id).First(&dealership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dealership, nil
}

func (r *repo) ListDealerships(ctx context.Context, db *gorm.DB) ([]domain.Dealership, error) {
	var items []domain.Dealership
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Order("name asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateDealership(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Dealership{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) OldestActiveDealership(ctx context.Context, db *gorm.DB) (*domain.Dealership, error) {
	var dealership domain.Dealership
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Order("created_at asc, id asc").
		First(&dealership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dealership, nil
}

func (r *repo) InsertLocation(ctx context.Context, db *gorm.DB, location *domain.Location) error {
	return db.WithContext(ctx).Create(location).Error
}

func (r *repo) FindLocation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Location, error) {
	var location domain.Location
	err := db.WithContext(ctx).Where("id = ?", id).First(&location).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repo) ListLocations(ctx context.Context, db *gorm.DB, dealershipID *snowflake.ID) ([]domain.Location, error) {
	var items []domain.Location
	stmt := db.WithContext(ctx).
		Table("locations AS l").
		Select("l.*, d.name AS dealership_name").
		Joins("JOIN dealerships d ON d.id = l.dealership_id").
		Where("l.status = ? AND d.status = ?", domain.StatusActive, domain.StatusActive)
	if dealershipID != nil {
		stmt = stmt.Where("l.dealership_id = ?", *dealershipID)
	}
	err := stmt.Order("d.name asc, l.is_default desc, l.name asc").Find(&items).Error
	return items, err
}

func (r *repo) CountActiveLocations(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Location{}).
		Where("dealership_id = ? AND status = ?", dealershipID, domain.StatusActive).
		Count(&count).Error
	return count, err
}

// ClearDefaultLocation locks the dealership's locations and clears every
// default flag.
func (r *repo) ClearDefaultLocation(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) error {
	var ids []snowflake.ID
	stmt := db.WithContext(ctx).Model(&domain.Location{}).Where("dealership_id = ?", dealershipID)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := stmt.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.Location{}).
		Where("id IN ?", ids).
		Update("is_default", false).Error
}

func (r *repo) UpdateLocation(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Location{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) ActiveLocationIDs(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.Location{}).
		Where("dealership_id = ? AND status = ? AND id IN ?", dealershipID, domain.StatusActive, ids).
		Pluck("id", &found).Error
	return found, err
}

func (r *repo) ListRoles(ctx context.Context, db *gorm.DB) ([]domain.Role, error) {
	var roles []domain.Role
	err := db.WithContext(ctx).Order("sort_order asc").Find(&roles).Error
	return roles, err
}

func (r *repo) UpsertRole(ctx context.Context, db *gorm.DB, role domain.Role) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "sort_order"}),
	}).Create(&role).Error
}
