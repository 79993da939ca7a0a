package match

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// stringList stores a JSON-encoded list of display names in a text column.
type stringList []string

// Value implements driver.Valuer.
func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *stringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch typed := value.(type) {
	case []byte:
		raw = typed
	case string:
		raw = []byte(typed)
	default:
		return fmt.Errorf("match: cannot scan %T into string list", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// MatchProfile holds one user's matching quiz answers. One row per user,
// updated in place on resubmission.
type MatchProfile struct {
	UserID               string     `gorm:"column:user_id;primaryKey;size:190;not null"`
	Role                 string     `gorm:"column:role;size:32;not null"`
	Subjects             stringList `gorm:"column:subjects;type:text;not null"`
	Competitions         stringList `gorm:"column:competitions;type:text;not null"`
	Activities           stringList `gorm:"column:activities;type:text;not null"`
	OtherSubjects        string     `gorm:"column:other_subjects;type:text"`
	OtherActivities      string     `gorm:"column:other_activities;type:text"`
	HasPublishedResearch bool       `gorm:"column:has_published_research;not null;default:false"`
	IsFirstGeneration    bool       `gorm:"column:is_first_generation;not null;default:false"`
	Gender               string     `gorm:"column:gender;size:64"`
	IncomeBracket        string     `gorm:"column:income_bracket;size:64"`
	CitizenshipStatus    string     `gorm:"column:citizenship_status;size:64"`
	IsUnderrepresented   bool       `gorm:"column:is_underrepresented;not null;default:false"`
	CreatedAtSeconds     int64      `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds     int64      `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (MatchProfile) TableName() string {
	return "match_profiles"
}

// CollegeApplication is one student's application to one college. An empty
// ConsultantID means the application has not been matched yet.
type CollegeApplication struct {
	ApplicationID    string  `gorm:"column:application_id;primaryKey;size:190;not null"`
	StudentID        string  `gorm:"column:student_id;size:190;not null;index"`
	CollegeName      string  `gorm:"column:college_name;size:320;not null"`
	MajorCategory    string  `gorm:"column:major_category;size:190;not null"`
	MajorName        string  `gorm:"column:major_name;size:190"`
	ConsultantID     string  `gorm:"column:consultant_id;size:190;index"`
	MatchScore       float64 `gorm:"column:match_score;not null;default:0"`
	CreatedAtSeconds int64   `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (CollegeApplication) TableName() string {
	return "college_applications"
}
