// Package testutil builds isolated in-memory databases for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dock-scheduler/database"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// NewTestDB returns a migrated in-memory sqlite database private to t.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	if utils.InfoLogger == nil {
		utils.InitLogger()
	}

	name := unsafeName.ReplaceAllString(t.Name(), "_") + "_" + uuid.NewString()[:8]
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewFileDB returns a migrated WAL sqlite file with maxConns connections, so
// transactions from different goroutines really run side by side.
func NewFileDB(t testing.TB, maxConns int) *gorm.DB {
	t.Helper()
	if utils.InfoLogger == nil {
		utils.InitLogger()
	}

	path := filepath.Join(t.TempDir(), "dock.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateDock inserts an active dock with the given name.
func CreateDock(t testing.TB, db *gorm.DB, name string) models.Dock {
	t.Helper()
	dock := models.Dock{Name: name, Capabilities: models.StringList{"General"}, IsActive: true}
	require.NoError(t, db.Create(&dock).Error)
	return dock
}

// CreateBooking inserts a booking directly, bypassing admission rules.
func CreateBooking(t testing.TB, db *gorm.DB, b models.Booking) models.Booking {
	t.Helper()
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	if b.Status == "" {
		b.Status = models.StatusConfirmed
	}
	if b.PONumber == "" {
		b.PONumber = "PO-TEST"
	}
	if b.CarrierName == "" {
		b.CarrierName = "Acme"
	}
	require.NoError(t, db.Create(&b).Error)
	return b
}
