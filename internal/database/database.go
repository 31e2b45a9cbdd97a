package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wholesale-catalog-service/internal/models"
)

// Connect opens the Postgres connection pool. Query logging is verbose in
// development and warnings-only elsewhere.
func Connect(databaseURL, environment string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Migrate creates the schema plus the partial unique index that enforces at
// most one STARTED run per sync type. The index is what makes the run guard
// race-proof under READ COMMITTED; the insert-time NOT EXISTS check alone is
// evaluated against each transaction's own snapshot.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.SyncRun{},
		&models.SyncRunLog{},
		&models.RawVariantRecord{},
		&models.CollectionMapping{},
		&models.Category{},
		&models.ProductSku{},
	); err != nil {
		return err
	}

	return db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sync_runs_one_active ON sync_runs (sync_type) WHERE status = '%s'",
		models.SyncRunStarted,
	)).Error
}
