package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"github.com/AdmitPathLabs/admitpath/backend/internal/match"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates an unknown task identifier.
	ErrNotFound = errors.New("tasks: not found")
	// ErrForbidden indicates the caller does not own the task or application.
	ErrForbidden = errors.New("tasks: forbidden")
	// ErrInvalidInput indicates a malformed submission.
	ErrInvalidInput = errors.New("tasks: invalid input")
)

const (
	opServiceNew = "tasks.service.new"
	opCreate     = "tasks.create"
	opList       = "tasks.list"
	opGet        = "tasks.get"
	opUpdate     = "tasks.update"
	opComplete   = "tasks.complete"
	opDelete     = "tasks.delete"
)

// ServiceError carries a stable machine-readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the "<operation>.<reason>" error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new tasks.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the tasks service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages a student's task checklist.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the tasks service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Draft describes a new task.
type Draft struct {
	Title                string
	Description          string
	DueDateSeconds       int64
	Priority             Priority
	Category             string
	RelatedApplicationID string
}

// requireOwnApplication checks that a referenced application exists and
// belongs to the student.
func requireOwnApplication(tx *gorm.DB, operation, applicationID, studentID string) error {
	if applicationID == "" {
		return nil
	}
	var application match.CollegeApplication
	err := tx.Where("application_id = ?", applicationID).Take(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, "application_not_found", ErrNotFound)
	}
	if err != nil {
		return newServiceError(operation, "application_lookup_failed", err)
	}
	if application.StudentID != studentID {
		return newServiceError(operation, "application_not_owned", ErrForbidden)
	}
	return nil
}

// Create records a new task for the student.
func (s *Service) Create(ctx context.Context, principal auth.Principal, draft Draft) (Task, error) {
	if principal.Role != auth.RoleStudent {
		return Task{}, newServiceError(opCreate, "consultant_create", ErrForbidden)
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Task{}, newServiceError(opCreate, "missing_title", ErrInvalidInput)
	}
	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if _, err := ParsePriority(priority.String()); err != nil {
		return Task{}, newServiceError(opCreate, "invalid_priority", err)
	}

	taskID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Task{}, newServiceError(opCreate, "id_generation_failed", err)
	}
	now := s.clock().UTC().Unix()
	record := Task{
		TaskID:               taskID,
		StudentID:            principal.UserID,
		Title:                title,
		Description:          strings.TrimSpace(draft.Description),
		DueDateSeconds:       draft.DueDateSeconds,
		Status:               StatusPending.String(),
		Priority:             priority.String(),
		Category:             strings.TrimSpace(draft.Category),
		RelatedApplicationID: strings.TrimSpace(draft.RelatedApplicationID),
		CreatedAtSeconds:     now,
		UpdatedAtSeconds:     now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwnApplication(tx, opCreate, record.RelatedApplicationID, principal.UserID); err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return newServiceError(opCreate, "task_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logOutcome(opCreate, txErr, zap.String("student_id", principal.UserID))
		return Task{}, txErr
	}
	return record, nil
}

// Filter narrows a task listing. Empty fields match everything.
type Filter struct {
	Status   Status
	Priority Priority
	Category string
}

// List returns the student's tasks, optionally filtered, ordered by due
// date with undated tasks last.
func (s *Service) List(ctx context.Context, principal auth.Principal, filter Filter) ([]Task, error) {
	if principal.Role != auth.RoleStudent {
		return nil, newServiceError(opList, "consultant_list", ErrForbidden)
	}
	query := s.db.WithContext(ctx).Where("student_id = ?", principal.UserID)
	if filter.Status != "" {
		if _, err := ParseStatus(filter.Status.String()); err != nil {
			return nil, newServiceError(opList, "invalid_status", err)
		}
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Priority != "" {
		if _, err := ParsePriority(filter.Priority.String()); err != nil {
			return nil, newServiceError(opList, "invalid_priority", err)
		}
		query = query.Where("priority = ?", filter.Priority.String())
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var records []Task
	if err := query.
		Order("CASE WHEN due_date_s = 0 THEN 1 ELSE 0 END ASC").
		Order("due_date_s ASC").
		Order("created_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("student_id", principal.UserID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Get fetches one task owned by the student.
func (s *Service) Get(ctx context.Context, principal auth.Principal, taskID string) (Task, error) {
	var record Task
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Task{}, newServiceError(opGet, "task_not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGet, "lookup_failed", err, zap.String("task_id", taskID))
		return Task{}, newServiceError(opGet, "lookup_failed", err)
	}
	if record.StudentID != principal.UserID {
		return Task{}, newServiceError(opGet, "not_owner", ErrForbidden)
	}
	return record, nil
}

// Update describes a partial task update; nil fields are left unchanged.
type Update struct {
	Title                *string
	Description          *string
	DueDateSeconds       *int64
	Status               *Status
	Priority             *Priority
	Category             *string
	RelatedApplicationID *string
}

// Apply patches the task with the update's set fields. Moving into the
// completed status stamps CompletedAtSeconds; moving out clears it.
func (s *Service) Apply(ctx context.Context, principal auth.Principal, taskID string, update Update) (Task, error) {
	if update.Status != nil {
		if _, err := ParseStatus(update.Status.String()); err != nil {
			return Task{}, newServiceError(opUpdate, "invalid_status", err)
		}
	}
	if update.Priority != nil {
		if _, err := ParsePriority(update.Priority.String()); err != nil {
			return Task{}, newServiceError(opUpdate, "invalid_priority", err)
		}
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return Task{}, newServiceError(opUpdate, "missing_title", ErrInvalidInput)
	}

	var updated Task
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Task
		err := tx.Where("task_id = ?", taskID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdate, "task_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opUpdate, "task_select_failed", err)
		}
		if record.StudentID != principal.UserID {
			return newServiceError(opUpdate, "not_owner", ErrForbidden)
		}

		if update.RelatedApplicationID != nil {
			applicationID := strings.TrimSpace(*update.RelatedApplicationID)
			if err := requireOwnApplication(tx, opUpdate, applicationID, principal.UserID); err != nil {
				return err
			}
			record.RelatedApplicationID = applicationID
		}
		if update.Title != nil {
			record.Title = strings.TrimSpace(*update.Title)
		}
		if update.Description != nil {
			record.Description = strings.TrimSpace(*update.Description)
		}
		if update.DueDateSeconds != nil {
			record.DueDateSeconds = *update.DueDateSeconds
		}
		if update.Priority != nil {
			record.Priority = update.Priority.String()
		}
		if update.Category != nil {
			record.Category = strings.TrimSpace(*update.Category)
		}
		if update.Status != nil {
			next := update.Status.String()
			switch {
			case next == StatusCompleted.String() && record.Status != StatusCompleted.String():
				record.CompletedAtSeconds = s.clock().UTC().Unix()
			case next != StatusCompleted.String() && record.Status == StatusCompleted.String():
				record.CompletedAtSeconds = 0
			}
			record.Status = next
		}
		record.UpdatedAtSeconds = s.clock().UTC().Unix()

		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opUpdate, "task_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opUpdate, txErr, zap.String("task_id", taskID))
		return Task{}, txErr
	}
	return updated, nil
}

// Complete marks the task completed. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, principal auth.Principal, taskID string) (Task, error) {
	var completed Task
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Task
		err := tx.Where("task_id = ?", taskID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opComplete, "task_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opComplete, "task_select_failed", err)
		}
		if record.StudentID != principal.UserID {
			return newServiceError(opComplete, "not_owner", ErrForbidden)
		}
		if record.Status == StatusCompleted.String() {
			completed = record
			return nil
		}

		now := s.clock().UTC().Unix()
		record.Status = StatusCompleted.String()
		record.CompletedAtSeconds = now
		record.UpdatedAtSeconds = now
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opComplete, "task_save_failed", err)
		}
		completed = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opComplete, txErr, zap.String("task_id", taskID))
		return Task{}, txErr
	}
	return completed, nil
}

// Delete removes the task.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, taskID string) error {
	result := s.db.WithContext(ctx).Delete(&Task{}, "task_id = ? AND student_id = ?", taskID, principal.UserID)
	if result.Error != nil {
		s.logError(opDelete, "task_delete_failed", result.Error, zap.String("task_id", taskID))
		return newServiceError(opDelete, "task_delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, "task_not_found", ErrNotFound)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("tasks service error", attrs...)
}

// logOutcome records unexpected failures, skipping expected caller outcomes.
func (s *Service) logOutcome(operation string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidInput) {
		return
	}
	s.logError(operation, "transaction_failed", err, fields...)
}
