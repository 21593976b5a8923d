// Package dbtest opens throwaway in-memory SQLite databases with the real
// schema for package tests.
package dbtest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database private to the caller.
// Each call gets its own named shared-cache database so parallel suites
// never see each other's rows.
func Open() (*gorm.DB, error) {
	logger.InitializeNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := database.MigrateDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the database
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
