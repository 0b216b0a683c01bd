package database

import (
	"fmt"

	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/gorm"
)

// Models lists every persisted table in creation order.
func Models() []interface{} {
	return []interface{}{
		&models.Dock{},
		&models.Booking{},
		&models.Driver{},
	}
}

// Migrate creates missing tables, then adds any column that an older schema
// lacks. Changes are additive only; nothing is dropped or altered.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := EnsureColumns(db, Models()...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// EnsureColumns adds columns present on the model but missing in the table.
func EnsureColumns(db *gorm.DB, values ...interface{}) error {
	migrator := db.Migrator()
	for _, value := range values {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(value); err != nil {
			return fmt.Errorf("parse %T: %w", value, err)
		}
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || migrator.HasColumn(value, field.DBName) {
				continue
			}
			if err := migrator.AddColumn(value, field.Name); err != nil {
				return fmt.Errorf("add column %s.%s: %w", stmt.Schema.Table, field.DBName, err)
			}
			utils.InfoLogger.Printf("Added missing column %s.%s", stmt.Schema.Table, field.DBName)
		}
	}
	return nil
}

// DefaultDockName is the dock seeded into an empty database.
const DefaultDockName = "Dock 1"

// SeedDefaultDock creates one dock when the table is empty.
func SeedDefaultDock(db *gorm.DB) (*models.Dock, error) {
	var count int64
	if err := db.Model(&models.Dock{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	dock := models.Dock{
		Name:         DefaultDockName,
		Capabilities: models.StringList{"General"},
		IsActive:     true,
	}
	if err := db.Create(&dock).Error; err != nil {
		return nil, fmt.Errorf("seed default dock: %w", err)
	}
	utils.InfoLogger.Printf("Seeded default dock %q (id=%d)", dock.Name, dock.ID)
	return &dock, nil
}
