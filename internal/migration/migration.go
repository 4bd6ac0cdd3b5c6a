package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	invitationdomain "github.com/smallbiznis/tenantly/internal/invitation/domain"
	leaddomain "github.com/smallbiznis/tenantly/internal/lead/domain"
	orgdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/organization/event"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type, parents first.
func Models() []any {
	return []any{
		&orgdomain.Organization{},
		&orgdomain.Profile{},
		&orgdomain.CustomDomain{},
		&invitationdomain.Invitation{},
		&auditdomain.ActivityLog{},
		&authdomain.Identity{},
		&authdomain.IdentitySession{},
		&event.OutboxEvent{},
		&leaddomain.Lead{},
		&leaddomain.DripCampaign{},
		&leaddomain.DripCampaignStep{},
		&leaddomain.LeadPage{},
	}
}

// Run applies the schema for the connected dialect. Postgres uses the
// embedded SQL migrations; mysql and sqlite fall back to AutoMigrate.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
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
