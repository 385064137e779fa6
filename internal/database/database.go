package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMembership{},
		&models.Subscription{},
		&models.AssetCategory{},
		&models.Asset{},
		&models.AssetStatusHistory{},
		&models.AssetLocation{},
		&models.AssetLoan{},
		&models.WorkFlow{},
		&models.Log{},
		&models.OtpToken{},
		&models.ResetCode{},
		&models.LoginAttempt{},
	)
}

// IsDuplicateKey reports whether err is a uniqueness-constraint violation.
// Concurrent duplicate inserts surface here instead of through the logical
// pre-checks; callers must treat both as "already exists".
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
