// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/models"
)

// Initialize opens the shared connection pool. The returned handle is meant to
// live for the whole process.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

// LogLevel maps the DB_LOG_LEVEL setting onto gorm's logger levels.
func LogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// RunMigrations creates the primary tables and every derived lookup table.
// The query layer assumes all of them exist before the first request.
func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations")

	err := db.AutoMigrate(Models()...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed")
	return nil
}

// Models lists every table the query layer reads from.
func Models() []interface{} {
	return []interface{}{
		&models.Asset{},
		&models.AssetByProject{},
		&models.AssetByName{},
		&models.AssetByLicense{},
		&models.AssetByCategory{},
		&models.User{},
		&models.UserByOrganization{},
	}
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// Partition columns of the derived tables
		"CREATE INDEX IF NOT EXISTS idx_assets_by_project_project ON assets_by_project(project_id, asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_assets_by_name_name ON assets_by_name(name, asset_id)",

		// Cursor order for scoped user pages
		"CREATE INDEX IF NOT EXISTS idx_users_by_organization_email ON users_by_organization(organization, email)",
		"CREATE INDEX IF NOT EXISTS idx_users_by_organization_member ON users_by_organization(email)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("statement", index).Warn("Failed to create index")
		}
	}
}

// WithTransaction runs fn inside a transaction and rolls back on error or panic.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
