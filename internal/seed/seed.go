package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	superAdminEmail    = "super@dealflow.com"
	superAdminPassword = "superadmin123"
	superAdminName     = "Super Admin"

	principalEmail    = "principal@dealflow.com"
	principalPassword = "principal123"
	principalName     = "Principal User"

	dealershipName = "Default Motors"
	showroomName   = "Main Showroom"
)

type demoLead struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Source          string
	VehicleInterest string
	Status          string
}

var demoLeads = []demoLead{
	{"John", "Doe", "john.doe@example.com", "555-0101", "Web Inquiry", "2024 Ford F-150", leaddomain.StatusNew},
	{"Jane", "Smith", "jane.smith@example.com", "555-0102", "Walk-in", "2024 Mustang GT", leaddomain.StatusContacted},
	{"Robert", "Brown", "robert.brown@example.com", "555-0103", "Referral", "2024 Explorer", leaddomain.StatusNew},
}

// EnsureRoles upserts the fixed role catalog.
func EnsureRoles(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	roles := dealershipdomain.DefaultRoles()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "sort_order"}),
		}).
		Create(&roles).Error
}

// Seeder loads demo data. Every step is find-or-create so reruns are no-ops.
type Seeder struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

func New(db *gorm.DB, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) *Seeder {
	return &Seeder{db: db, genID: genID, clock: clk, log: log.Named("seed")}
}

func (s *Seeder) Run(ctx context.Context) error {
	if s.db == nil {
		return errors.New("seed database handle is required")
	}
	if err := EnsureRoles(ctx, s.db); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ensureUser(ctx, tx, superAdminEmail, superAdminPassword, superAdminName, principal.RoleSuperAdmin, nil); err != nil {
			return err
		}

		dealership, err := s.ensureDealership(ctx, tx)
		if err != nil {
			return err
		}
		location, err := s.ensureLocation(ctx, tx, dealership.ID)
		if err != nil {
			return err
		}
		owner, err := s.ensureUser(ctx, tx, principalEmail, principalPassword, principalName, principal.RolePrincipal, &dealership.ID)
		if err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&userdomain.UserLocation{
			UserID:     owner.ID,
			LocationID: location.ID,
			CreatedAt:  s.clock.Now(),
		}).Error; err != nil {
			return err
		}

		for _, demo := range demoLeads {
			if err := s.ensureLead(ctx, tx, dealership.ID, location.ID, demo); err != nil {
				return err
			}
		}
		s.log.Info("demo data ready", zap.String("dealership_id", dealership.ID.String()))
		return nil
	})
}

func (s *Seeder) ensureUser(ctx context.Context, tx *gorm.DB, email, raw, name string, role principal.Role, dealershipID *snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := password.Hash(raw)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	user = userdomain.User{
		ID:           s.genID.Generate(),
		DealershipID: dealershipID,
		Role:         role.String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       userdomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Seeder) ensureDealership(ctx context.Context, tx *gorm.DB) (*dealershipdomain.Dealership, error) {
	dealershipSlug := slug.Make(dealershipName)
	var dealership dealershipdomain.Dealership
	err := tx.WithContext(ctx).
		Where("slug = ? AND status = ?", dealershipSlug, dealershipdomain.StatusActive).
		First(&dealership).Error
	if err == nil {
		return &dealership, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	dealership = dealershipdomain.Dealership{
		ID:        s.genID.Generate(),
		Name:      dealershipName,
		Slug:      dealershipSlug,
		Status:    dealershipdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&dealership).Error; err != nil {
		return nil, err
	}
	return &dealership, nil
}

func (s *Seeder) ensureLocation(ctx context.Context, tx *gorm.DB, dealershipID snowflake.ID) (*dealershipdomain.Location, error) {
	var location dealershipdomain.Location
	err := tx.WithContext(ctx).
		Where("dealership_id = ? AND is_default = ? AND status = ?", dealershipID, true, dealershipdomain.StatusActive).
		First(&location).Error
	if err == nil {
		return &location, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	location = dealershipdomain.Location{
		ID:           s.genID.Generate(),
		DealershipID: dealershipID,
		Name:         showroomName,
		IsDefault:    true,
		Status:       dealershipdomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (s *Seeder) ensureLead(ctx context.Context, tx *gorm.DB, dealershipID, locationID snowflake.ID, demo demoLead) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&leaddomain.Lead{}).
		Where("dealership_id = ? AND email = ?", dealershipID, demo.Email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := s.clock.Now()
	return tx.WithContext(ctx).Create(&leaddomain.Lead{
		ID:              s.genID.Generate(),
		DealershipID:    dealershipID,
		LocationID:      &locationID,
		FirstName:       demo.FirstName,
		LastName:        demo.LastName,
		Email:           demo.Email,
		Phone:           demo.Phone,
		Source:          demo.Source,
		Status:          demo.Status,
		VehicleInterest: demo.VehicleInterest,
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error
}
