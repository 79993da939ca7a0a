package database

import (
	"fmt"

	"github.com/AdmitPathLabs/admitpath/backend/internal/accounts"
	"github.com/AdmitPathLabs/admitpath/backend/internal/essay"
	"github.com/AdmitPathLabs/admitpath/backend/internal/match"
	"github.com/AdmitPathLabs/admitpath/backend/internal/ping"
	"github.com/AdmitPathLabs/admitpath/backend/internal/tasks"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&accounts.User{},
		&essay.Essay{},
		&essay.Comment{},
		&essay.Strikethrough{},
		&essay.Addition{},
		&essay.Suggestion{},
		&match.MatchProfile{},
		&match.CollegeApplication{},
		&ping.Ping{},
		&tasks.Task{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
