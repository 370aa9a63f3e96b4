package database

import (
	"fmt"
	"time"

	"docflow/internal/config"
	"docflow/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var readDB *gorm.DB

// GetReadDB returns the read-replica connection, or nil when none is configured.
// Repositories fall back to the primary connection on nil.
func GetReadDB() *gorm.DB {
	return readDB
}

// SetReadDB overrides the read-replica connection. Intended for tests.
func SetReadDB(db *gorm.DB) {
	readDB = db
}

// ConnectReadReplica opens a read-only replica connection when DB_READ_HOST is set.
// Missing configuration is not an error: reads simply go to the primary.
func ConnectReadReplica(cfg *config.Config) error {
	if cfg.DBReadHost == "" {
		return nil
	}

	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBReadHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to read replica: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	middleware.Logger.Info("Read replica connected successfully")
	readDB = db
	return nil
}
