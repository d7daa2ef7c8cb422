package infra

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewDatabase opens a pooled GORM connection backed by pgx. The schema is
// owned by the SQL migrations, never by AutoMigrate. Unique violations
// surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrar applies every pending embedded migration.
func Migrar(db *gorm.DB) error {
	m, err := novoMigrador(db)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("migrations: nothing to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migrations version: %w", err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}

// Reverter rolls back n migrations.
func Reverter(db *gorm.DB, n int) error {
	m, err := novoMigrador(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations down: %w", err)
	}
	return nil
}

func novoMigrador(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}
