package ping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates an unknown ping identifier.
	ErrNotFound = errors.New("ping: not found")
	// ErrForbidden indicates a role not permitted to perform the action.
	ErrForbidden = errors.New("ping: forbidden")
	// ErrInvalidInput indicates a malformed submission.
	ErrInvalidInput = errors.New("ping: invalid input")
	// ErrClosed indicates the ping thread no longer accepts changes.
	ErrClosed = errors.New("ping: thread closed")
)

const (
	opServiceNew = "ping.service.new"
	opCreate     = "ping.create"
	opList       = "ping.list"
	opAnswer     = "ping.answer"
	opClose      = "ping.close"
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

// IDProvider issues identifiers for new pings.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the ping service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages per-application question threads between students and
// consultants.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the ping service.
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

// Draft describes a new ping question.
type Draft struct {
	ApplicationID string
	College       string
	Question      string
}

// Create opens a new ping thread. Students only.
func (s *Service) Create(ctx context.Context, principal auth.Principal, draft Draft) (Ping, error) {
	if principal.Role != auth.RoleStudent {
		return Ping{}, newServiceError(opCreate, "consultant_create", ErrForbidden)
	}
	college := strings.TrimSpace(draft.College)
	question := strings.TrimSpace(draft.Question)
	if college == "" {
		return Ping{}, newServiceError(opCreate, "missing_college", ErrInvalidInput)
	}
	if question == "" {
		return Ping{}, newServiceError(opCreate, "missing_question", ErrInvalidInput)
	}

	pingID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Ping{}, newServiceError(opCreate, "id_generation_failed", err)
	}
	now := s.clock().UTC().Unix()
	record := Ping{
		PingID:           pingID,
		ApplicationID:    strings.TrimSpace(draft.ApplicationID),
		StudentID:        principal.UserID,
		College:          college,
		Question:         question,
		Status:           StatusOpen.String(),
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "ping_insert_failed", err, zap.String("student_id", principal.UserID))
		return Ping{}, newServiceError(opCreate, "ping_insert_failed", err)
	}
	return record, nil
}

// List returns the caller's ping threads: a student's own questions, or for
// a consultant every open question plus the ones they have answered.
func (s *Service) List(ctx context.Context, principal auth.Principal) ([]Ping, error) {
	query := s.db.WithContext(ctx)
	switch principal.Role {
	case auth.RoleStudent:
		query = query.Where("student_id = ?", principal.UserID)
	case auth.RoleConsultant:
		query = query.Where("status = ? OR consultant_id = ?", StatusOpen.String(), principal.UserID)
	default:
		return nil, newServiceError(opList, "unknown_role", ErrForbidden)
	}

	var records []Ping
	if err := query.Order("created_at_s ASC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", principal.UserID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Answer records a consultant's answer on an open ping and claims the
// thread for that consultant.
func (s *Service) Answer(ctx context.Context, principal auth.Principal, pingID, answer string) (Ping, error) {
	if principal.Role != auth.RoleConsultant {
		return Ping{}, newServiceError(opAnswer, "student_answer", ErrForbidden)
	}
	if strings.TrimSpace(answer) == "" {
		return Ping{}, newServiceError(opAnswer, "missing_answer", ErrInvalidInput)
	}

	var updated Ping
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Ping
		err := tx.Where("ping_id = ?", pingID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAnswer, "ping_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opAnswer, "ping_select_failed", err)
		}
		if record.Status == StatusClosed.String() {
			return newServiceError(opAnswer, "thread_closed", ErrClosed)
		}
		if record.ConsultantID != "" && record.ConsultantID != principal.UserID {
			return newServiceError(opAnswer, "claimed_elsewhere", ErrForbidden)
		}

		record.ConsultantID = principal.UserID
		record.Answer = strings.TrimSpace(answer)
		record.Status = StatusAnswered.String()
		record.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAnswer, "ping_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opAnswer, txErr, zap.String("ping_id", pingID))
		return Ping{}, txErr
	}
	return updated, nil
}

// Close ends a ping thread. The owning student or the answering consultant
// may close; closing twice is a no-op.
func (s *Service) Close(ctx context.Context, principal auth.Principal, pingID string) (Ping, error) {
	var updated Ping
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Ping
		err := tx.Where("ping_id = ?", pingID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opClose, "ping_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opClose, "ping_select_failed", err)
		}
		if record.StudentID != principal.UserID && record.ConsultantID != principal.UserID {
			return newServiceError(opClose, "not_participant", ErrForbidden)
		}
		if record.Status == StatusClosed.String() {
			updated = record
			return nil
		}

		record.Status = StatusClosed.String()
		record.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opClose, "ping_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opClose, txErr, zap.String("ping_id", pingID))
		return Ping{}, txErr
	}
	return updated, nil
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
	s.logger.Error("ping service error", attrs...)
}

// logOutcome records unexpected failures, skipping expected caller outcomes.
func (s *Service) logOutcome(operation string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrClosed) {
		return
	}
	s.logError(operation, "transaction_failed", err, fields...)
}
