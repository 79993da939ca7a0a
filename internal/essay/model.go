package essay

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidEssayID indicates that an essay identifier is empty or exceeds storage bounds.
	ErrInvalidEssayID = errors.New("essay: invalid essay id")
	// ErrInvalidSuggestionKind indicates an unknown suggestion category.
	ErrInvalidSuggestionKind = errors.New("essay: invalid suggestion kind")
)

// EssayID represents a validated essay identifier.
type EssayID string

// NewEssayID validates raw input and returns an EssayID.
func NewEssayID(rawInput string) (EssayID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEssayID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidEssayID, maxIdentifierLength)
	}
	return EssayID(trimmed), nil
}

// String returns the underlying string identifier.
func (id EssayID) String() string {
	return string(id)
}

// SuggestionKind enumerates the categories of non-anchored suggestions.
type SuggestionKind string

const (
	SuggestionKindGrammar   SuggestionKind = "grammar"
	SuggestionKindStyle     SuggestionKind = "style"
	SuggestionKindContent   SuggestionKind = "content"
	SuggestionKindStructure SuggestionKind = "structure"
)

// ParseSuggestionKind validates raw input and returns a SuggestionKind.
func ParseSuggestionKind(rawInput string) (SuggestionKind, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(SuggestionKindGrammar):
		return SuggestionKindGrammar, nil
	case string(SuggestionKindStyle):
		return SuggestionKindStyle, nil
	case string(SuggestionKindContent):
		return SuggestionKindContent, nil
	case string(SuggestionKindStructure):
		return SuggestionKindStructure, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSuggestionKind, rawInput)
	}
}

// String returns the underlying kind value.
func (k SuggestionKind) String() string {
	return string(k)
}

// Essay models one essay response buffer. The response text changes only
// through the edit primitives in buffer.go; version increases once per
// committed edit.
type Essay struct {
	EssayID             string `gorm:"column:essay_id;primaryKey;size:190;not null"`
	ApplicationID       string `gorm:"column:application_id;size:190;not null;index"`
	Prompt              string `gorm:"column:prompt;type:text;not null"`
	Response            string `gorm:"column:response;type:text;not null"`
	Version             int64  `gorm:"column:version;not null;default:1"`
	LastEditedAtSeconds int64  `gorm:"column:last_edited_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Essay) TableName() string {
	return "essays"
}

// Comment is an annotation anchored to a half-open range [AnchorStart,
// AnchorEnd) of the essay response. An empty body is a highlight-only
// comment. Resolved comments are retained for history.
type Comment struct {
	CommentID        string `gorm:"column:comment_id;primaryKey;size:190;not null"`
	EssayID          string `gorm:"column:essay_id;size:190;not null;index"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorRole       string `gorm:"column:author_role;size:32;not null"`
	AnchorStart      int    `gorm:"column:anchor_start;not null"`
	AnchorEnd        int    `gorm:"column:anchor_end;not null"`
	Body             string `gorm:"column:body;type:text;not null"`
	Resolved         bool   `gorm:"column:resolved;not null;default:false"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "essay_comments"
}

// Strikethrough proposes deleting the range [AnchorStart, AnchorEnd) of the
// essay response. RemovedText is the snapshot taken at proposal time.
type Strikethrough struct {
	StrikethroughID  string `gorm:"column:strikethrough_id;primaryKey;size:190;not null"`
	EssayID          string `gorm:"column:essay_id;size:190;not null;index"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorRole       string `gorm:"column:author_role;size:32;not null"`
	AnchorStart      int    `gorm:"column:anchor_start;not null"`
	AnchorEnd        int    `gorm:"column:anchor_end;not null"`
	RemovedText      string `gorm:"column:removed_text;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Strikethrough) TableName() string {
	return "essay_strikethroughs"
}

// Addition proposes inserting InsertText at the single point AnchorStart.
type Addition struct {
	AdditionID       string `gorm:"column:addition_id;primaryKey;size:190;not null"`
	EssayID          string `gorm:"column:essay_id;size:190;not null;index"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorRole       string `gorm:"column:author_role;size:32;not null"`
	AnchorStart      int    `gorm:"column:anchor_start;not null"`
	InsertText       string `gorm:"column:insert_text;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Addition) TableName() string {
	return "essay_additions"
}

// Suggestion is a non-anchored alternative wording for part of the essay.
type Suggestion struct {
	SuggestionID     string `gorm:"column:suggestion_id;primaryKey;size:190;not null"`
	EssayID          string `gorm:"column:essay_id;size:190;not null;index"`
	AuthorID         string `gorm:"column:author_id;size:190;not null"`
	AuthorRole       string `gorm:"column:author_role;size:32;not null"`
	OriginalText     string `gorm:"column:original_text;type:text;not null"`
	SuggestedText    string `gorm:"column:suggested_text;type:text;not null"`
	Kind             string `gorm:"column:kind;size:32;not null"`
	Comment          string `gorm:"column:comment;type:text"`
	Accepted         bool   `gorm:"column:accepted;not null;default:false"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Suggestion) TableName() string {
	return "essay_suggestions"
}
