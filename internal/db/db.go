// Package db opens GORM connections for the registry. SQLite is the
// zero-dependency default for single-node deployments and tests; postgres
// and mysql back multi-node installs.
package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the database backend.
type Config struct {
	// Type is one of "sqlite", "postgres" or "mysql".
	Type string
	// DSN is the driver connection string. For sqlite this is a file path
	// or ":memory:".
	DSN string
	// MaxOpenConns bounds the pool. 0 uses the driver default.
	MaxOpenConns int
	// MaxIdleConns bounds idle connections. 0 uses the driver default.
	MaxIdleConns int
	// LogQueries switches the gorm logger from silent to info.
	LogQueries bool
}

// Open connects to the configured database and tunes the pool.
func Open(cfg Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.LogQueries {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "registry.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql requires a DSN")
		}
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database type %q (expected sqlite, postgres or mysql)", cfg.Type)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb, nil
}
