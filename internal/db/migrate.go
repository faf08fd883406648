package db

import (
	"fmt"

	"github.com/papertoplan/ptp/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Preference{},
		&models.CachedUser{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// OpenAndMigrate opens the store and migrates it in one step.
func OpenAndMigrate(open func() (*gorm.DB, error)) (*gorm.DB, error) {
	gdb, err := open()
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(gdb); err != nil {
		Close(gdb)
		return nil, err
	}
	return gdb, nil
}
