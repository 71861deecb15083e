package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.first(db.WithContext(ctx).Where("email = ?", email))
}

func (r *repo) FindActiveByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.first(db.WithContext(ctx).Where("email = ? AND status = ?", email, domain.StatusActive))
}

func (r *repo) first(stmt *gorm.DB) (*domain.User, error) {
	var user domain.User
	err := stmt.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) EmailTaken(ctx context.Context, db *gorm.DB, email string, excludeID snowflake.ID) (bool, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email)
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.User, error) {
	var users []domain.User
	stmt := db.WithContext(ctx).
		Table("users AS u").
		Select("u.*, d.name AS dealership_name").
		Joins("LEFT JOIN dealerships d ON d.id = u.dealership_id").
		Where("u.status = ?", domain.StatusActive)
	if filter.DealershipID != nil {
		stmt = stmt.Where("u.dealership_id = ?", *filter.DealershipID)
	}
	if filter.ExcludeUserID != 0 {
		stmt = stmt.Where("u.id <> ?", filter.ExcludeUserID)
	}
	err := stmt.Order("u.name asc, u.id asc").Find(&users).Error
	return users, err
}

func (r *repo) ListActiveByDealership(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).
		Where("dealership_id = ? AND status = ?", dealershipID, domain.StatusActive).
		Order("id asc").
		Find(&users).Error
	return users, err
}

func (r *repo) CountActivePrincipals(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID, excludeID snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&domain.User{}).
		Where("dealership_id = ? AND role = ? AND status = ?", dealershipID, principal.RolePrincipal, domain.StatusActive)
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) FindActivePrincipal(ctx context.Context, db *gorm.DB, dealershipID snowflake.ID) (*domain.User, error) {
	return r.first(db.WithContext(ctx).
		Where("dealership_id = ? AND role = ? AND status = ?", dealershipID, principal.RolePrincipal, domain.StatusActive).
		Order("created_at asc"))
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) ReplaceLocations(ctx context.Context, db *gorm.DB, userID snowflake.ID, locationIDs []snowflake.ID, now time.Time) error {
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.UserLocation{}).Error; err != nil {
		return err
	}
	if len(locationIDs) == 0 {
		return nil
	}
	rows := make([]domain.UserLocation, 0, len(locationIDs))
	for _, locationID := range locationIDs {
		rows = append(rows, domain.UserLocation{UserID: userID, LocationID: locationID, CreatedAt: now})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) LocationIDs(ctx context.Context, db *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error) {
	out := make(map[snowflake.ID][]snowflake.ID, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.UserLocation
	if err := db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("location_id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.LocationID)
	}
	return out, nil
}
