package accounts

import (
	"strings"
)

// User captures a credentialed platform account and its onboarding progress.
type User struct {
	UserID                    string `gorm:"column:user_id;primaryKey;size:190;not null"`
	Role                      string `gorm:"column:role;size:32;not null"`
	Email                     string `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash              string `gorm:"column:password_hash;size:190;not null"`
	DisplayName               string `gorm:"column:display_name;size:320"`
	QuizCompleted             bool   `gorm:"column:quiz_completed;not null;default:false"`
	CollegeSelectionCompleted bool   `gorm:"column:college_selection_completed;not null;default:false"`
	MatchingCompleted         bool   `gorm:"column:matching_completed;not null;default:false"`
	CreatedAtSeconds          int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds          int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
