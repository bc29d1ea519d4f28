package database

import (
	"fmt"

	"github.com/casbin/gorm-adapter/v3"
	"github.com/you/feedauth/internal/infrastructure/repositories"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a new relational database connection for driver
// ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), config)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), config)
	default:
		return nil, fmt.Errorf("unsupported relational driver %q", driver)
	}
}

// AutoMigrate creates the account, device and casbin policy tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&repositories.DBAccount{}, &repositories.DBDevice{}); err != nil {
		return fmt.Errorf("failed to migrate account tables: %w", err)
	}

	// The adapter creates casbin_rule on construction.
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	return nil
}
