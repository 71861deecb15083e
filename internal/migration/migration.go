package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	intakekeydomain "github.com/smallbiznis/dealflow/internal/intakekey/domain"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	taskdomain "github.com/smallbiznis/dealflow/internal/task/domain"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted model, parents first.
func Models() []any {
	return []any{
		&dealershipdomain.Dealership{},
		&dealershipdomain.Location{},
		&dealershipdomain.Role{},
		&userdomain.User{},
		&userdomain.UserLocation{},
		&leaddomain.Lead{},
		&messagingdomain.Communication{},
		&messagingdomain.Mention{},
		&notificationdomain.Notification{},
		&taskdomain.Task{},
		&intakekeydomain.IntakeKey{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL
// migrations; mysql and sqlite are migrated from the gorm models.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql", "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
