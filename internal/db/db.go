package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bagel-preorder-backend/config"
	"bagel-preorder-backend/internal/model"
)

// Init opens the SQL backend named by cfg.Backend and runs migrations.
func Init(cfg *config.StoreConfig) (*gorm.DB, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLite.Path, gormLogLevel(cfg.LogLevel))
	case config.BackendPostgres:
		return OpenPostgres(&cfg.Postgres, gormLogLevel(cfg.LogLevel))
	default:
		return nil, fmt.Errorf("backend %q is not a SQL backend", cfg.Backend)
	}
}

// OpenSQLite opens the embedded database file at path.
//
// The pool is pinned to a single connection and transactions begin IMMEDIATE,
// so a capacity check and its insert are never interleaved with another writer.
func OpenSQLite(path string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000"
}

// OpenPostgres connects to postgres, runs migrations and applies constraints.
func OpenPostgres(cfg *config.DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Applying postgres constraints...")
	if err := applyPostgresDDL(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the tables used by every SQL backend.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Order{},
		&model.TimeSlot{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresDDL adds the enumeration checks AutoMigrate cannot express.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_day_check;",
		"ALTER TABLE orders ADD CONSTRAINT orders_day_check CHECK (day IN ('Saturday', 'Sunday'));",
		"ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_item_check;",
		"ALTER TABLE orders ADD CONSTRAINT orders_item_check CHECK (item IN ('bagel', 'sandwich'));",
		"ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_status_check;",
		"ALTER TABLE orders ADD CONSTRAINT orders_status_check CHECK (status IN ('queued', 'working', 'ready', 'handed_off', 'canceled', 'no_show'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
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
