// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
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

	logrus.Info("Database connection established successfully")
	return db, nil
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
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Person{},
		&models.Follow{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Customer{},
		&models.Order{},
		&models.OrderLine{},
		&models.Affiliation{},
		&models.Referral{},
		&models.Influence{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Person indexes
		"CREATE INDEX IF NOT EXISTS idx_people_role_level ON people(role, level)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_status_processed ON orders(status, processed_at)",
		"CREATE INDEX IF NOT EXISTS idx_orders_processed_at ON orders(processed_at DESC)",

		// Edge indexes for the analytics read side
		"CREATE INDEX IF NOT EXISTS idx_referrals_order ON referrals(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_influences_order ON influences(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_lines_variant ON order_lines(variant_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product ON product_variants(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id)",

		// Soft-delete aware listings
		"CREATE INDEX IF NOT EXISTS idx_products_deleted ON products(deleted)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	var adminCount int64
	db.Model(&models.Person{}).Where("role = ?", models.PersonRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.Person{
			ID:    "admin",
			Name:  "System Administrator",
			Email: "admin@affigraph.io",
			Role:  models.PersonRoleAdmin,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		logrus.Info("Default admin user created successfully")
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// Transaction helper
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
