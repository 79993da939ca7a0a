package database

import (
	"errors"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/essay"
	"github.com/AdmitPathLabs/admitpath/backend/internal/ping"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillCommentAuthorRole = "2026-07-14_backfill_comment_author_role"
	migrationNormalizePingStatus       = "2026-08-02_normalize_ping_status"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillCommentAuthorRole, apply: backfillCommentAuthorRole},
		{name: migrationNormalizePingStatus, apply: normalizePingStatus},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Comments written before the author role tag existed were all consultant
// feedback; stamp them so cross-role checks keep working.
func backfillCommentAuthorRole(db *gorm.DB) error {
	return db.Model(&essay.Comment{}).
		Where("author_role = ?", "").
		Update("author_role", "consultant").Error
}

// Early builds stored ping status in mixed case.
func normalizePingStatus(db *gorm.DB) error {
	return db.Model(&ping.Ping{}).
		Where("status <> lower(status)").
		Update("status", gorm.Expr("lower(status)")).Error
}
