package ping

import (
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the lifecycle of a ping thread.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusClosed   Status = "closed"
)

// ErrInvalidStatus indicates an unknown ping status value.
var ErrInvalidStatus = errors.New("ping: invalid status")

// ParseStatus validates raw input and returns a Status.
func ParseStatus(rawInput string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(StatusOpen):
		return StatusOpen, nil
	case string(StatusAnswered):
		return StatusAnswered, nil
	case string(StatusClosed):
		return StatusClosed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// String returns the underlying status value.
func (s Status) String() string {
	return string(s)
}

// Ping is one question from a student to the consultant on an application.
// ConsultantID is filled when a consultant answers.
type Ping struct {
	PingID           string `gorm:"column:ping_id;primaryKey;size:190;not null"`
	ApplicationID    string `gorm:"column:application_id;size:190;index"`
	StudentID        string `gorm:"column:student_id;size:190;not null;index"`
	ConsultantID     string `gorm:"column:consultant_id;size:190;index"`
	College          string `gorm:"column:college;size:320;not null"`
	Question         string `gorm:"column:question;type:text;not null"`
	Answer           string `gorm:"column:answer;type:text"`
	Status           string `gorm:"column:status;size:32;not null;default:open"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Ping) TableName() string {
	return "pings"
}
