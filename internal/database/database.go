// Package database handles database connections and migrations.
package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bloh/internal/config"
	"bloh/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	// DB is the global database connection instance.
	DB *gorm.DB
	// readDB is an optional replica used for feed reads.
	readDB *gorm.DB
)

// GetReadDB returns the read replica connection, or nil when none is configured.
func GetReadDB() *gorm.DB {
	return readDB
}

// Dialector builds the GORM dialector for the configured driver.
func Dialector(cfg *config.Config) gorm.Dialector {
	if strings.EqualFold(cfg.DBDriver, "sqlite") {
		return sqlite.Open(cfg.SQLitePath)
	}
	return postgres.Open(postgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode))
}

func postgresDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

// Connect opens a database connection using the provided configuration and returns the gorm DB instance.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dbInstance, err := gorm.Open(Dialector(cfg), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger, cfg.SlowQueryThreshold()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	middleware.Logger.Info("Database connected successfully", slog.String("driver", driverName(cfg)))

	if !cfg.IsProduction() {
		if err := Migrate(dbInstance); err != nil {
			return nil, err
		}
		middleware.Logger.Info("Database migration completed")
	}

	sqlDB, err := dbInstance.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		if driverName(cfg) == "sqlite" {
			// SQLite allows a single writer.
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if cfg.DBReadHost != "" && driverName(cfg) == "postgres" {
		replica, err := gorm.Open(postgres.Open(postgresDSN(
			cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode,
		)), &gorm.Config{Logger: NewGormLogger(middleware.Logger, cfg.SlowQueryThreshold())})
		if err != nil {
			middleware.Logger.Warn("Read replica unavailable, using primary for reads", slog.String("error", err.Error()))
		} else {
			readDB = replica
		}
	}

	DB = dbInstance
	return DB, nil
}

// Migrate creates or updates every table the application persists.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func driverName(cfg *config.Config) string {
	if strings.EqualFold(cfg.DBDriver, "sqlite") {
		return "sqlite"
	}
	return "postgres"
}
