package database

import (
	"path/filepath"
	"testing"

	"github.com/AdmitPathLabs/admitpath/backend/internal/essay"
	"github.com/AdmitPathLabs/admitpath/backend/internal/ping"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsBackfillsCommentAuthorRole(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&essay.Comment{}, &ping.Ping{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := essay.Comment{
		CommentID: "comment-1",
		EssayID:   "essay-1",
		AuthorID:  "consultant-1",
		Body:      "tighten the opening",
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert comment: %v", err)
	}
	tagged := essay.Comment{
		CommentID:  "comment-2",
		EssayID:    "essay-1",
		AuthorID:   "student-1",
		AuthorRole: "student",
	}
	if err := database.Create(&tagged).Error; err != nil {
		testContext.Fatalf("failed to insert comment: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored essay.Comment
	if err := database.Where("comment_id = ?", legacy.CommentID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload comment: %v", err)
	}
	if stored.AuthorRole != "consultant" {
		testContext.Fatalf("expected legacy comment stamped consultant, got %q", stored.AuthorRole)
	}

	var untouched essay.Comment
	if err := database.Where("comment_id = ?", tagged.CommentID).Take(&untouched).Error; err != nil {
		testContext.Fatalf("failed to reload comment: %v", err)
	}
	if untouched.AuthorRole != "student" {
		testContext.Fatalf("expected tagged comment untouched, got %q", untouched.AuthorRole)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillCommentAuthorRole).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsNormalizesPingStatus(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&essay.Comment{}, &ping.Ping{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	record := ping.Ping{
		PingID:    "ping-1",
		StudentID: "student-1",
		College:   "MIT",
		Question:  "q",
		Status:    "Open",
	}
	if err := database.Create(&record).Error; err != nil {
		testContext.Fatalf("failed to insert ping: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored ping.Ping
	if err := database.Where("ping_id = ?", record.PingID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload ping: %v", err)
	}
	if stored.Status != "open" {
		testContext.Fatalf("expected lowercased status, got %q", stored.Status)
	}

	// Re-running is a no-op.
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("second migration pass must succeed: %v", err)
	}
}
