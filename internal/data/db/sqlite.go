package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// NewSQLiteService opens a file-backed SQLite database for single-process local runs.
// SQLite has one writer, so the pool is pinned to a single connection.
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	path = strings.TrimSpace(path)
	if path == "" {
		path = "vaccilearn.db"
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=off", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	serviceLog.Info("Opened sqlite", "path", path)
	return &Service{db: db, log: serviceLog}, nil
}
