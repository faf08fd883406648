package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/papertoplan/ptp/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDSN builds the sqlite DSN for the state file at path.
func SQLiteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
}

// Open opens the state store described by the config. For sqlite the parent
// directory of statePath is created with owner-only permissions.
func Open(store config.StoreConfig, statePath string) (*gorm.DB, error) {
	switch store.Driver {
	case "", "sqlite":
		return OpenSQLite(statePath)
	case "mysql":
		return OpenMySQL(store.DSN)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", store.Driver)
	}
}

// OpenSQLite opens (and creates if needed) a sqlite state file.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("db: create state dir for %s: %w", path, err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

// OpenMySQL opens a GORM connection to a MySQL-compatible server.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to mysql: %w", err)
	}
	return gdb, nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
