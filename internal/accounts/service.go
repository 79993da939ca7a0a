package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrEmailTaken indicates that the email already belongs to an account.
	ErrEmailTaken = errors.New("accounts: email already registered")
	// ErrInvalidCredentials indicates a failed email/password login.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	// ErrUserNotFound indicates that no account exists for the identifier.
	ErrUserNotFound = errors.New("accounts: user not found")
	// ErrInvalidInput indicates a malformed registration request.
	ErrInvalidInput = errors.New("accounts: invalid input")
)

const (
	opServiceNew   = "accounts.service.new"
	opRegister     = "accounts.register"
	opAuthenticate = "accounts.authenticate"
	opGetUser      = "accounts.get_user"

	minPasswordLength = 8
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

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the accounts service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages account registration and credential verification.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the accounts service.
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

// RegisterRequest describes a new account submission.
type RegisterRequest struct {
	Email       string
	Password    string
	Role        auth.Role
	DisplayName string
}

// Register creates a new account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, request RegisterRequest) (User, error) {
	email := normalizeEmail(request.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, newServiceError(opRegister, "invalid_email", ErrInvalidInput)
	}
	if len(request.Password) < minPasswordLength {
		return User{}, newServiceError(opRegister, "password_too_short", ErrInvalidInput)
	}
	role, err := auth.ParseRole(request.Role.String())
	if err != nil {
		return User{}, newServiceError(opRegister, "invalid_role", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logError(opRegister, "hash_failed", err)
		return User{}, newServiceError(opRegister, "hash_failed", err)
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRegister, "id_generation_failed", err)
		return User{}, newServiceError(opRegister, "id_generation_failed", err)
	}

	now := s.clock().UTC().Unix()
	user := User{
		UserID:           userID,
		Role:             role.String(),
		Email:            email,
		PasswordHash:     string(hash),
		DisplayName:      strings.TrimSpace(request.DisplayName),
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing User
		err := tx.Where("email = ?", email).Take(&existing).Error
		if err == nil {
			return newServiceError(opRegister, "email_taken", ErrEmailTaken)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opRegister, "email_lookup_failed", err)
		}
		if err := tx.Create(&user).Error; err != nil {
			return newServiceError(opRegister, "user_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrEmailTaken) {
			s.logError(opRegister, "transaction_failed", txErr, zap.String("email", email))
		}
		return User{}, txErr
	}

	return user, nil
}

// Authenticate verifies the email/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, newServiceError(opAuthenticate, "unknown_email", ErrInvalidCredentials)
	}
	if err != nil {
		s.logError(opAuthenticate, "lookup_failed", err)
		return User{}, newServiceError(opAuthenticate, "lookup_failed", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, newServiceError(opAuthenticate, "password_mismatch", ErrInvalidCredentials)
	}
	return user, nil
}

// GetUser fetches an account by identifier.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, newServiceError(opGetUser, "unknown_user", ErrUserNotFound)
	}
	if err != nil {
		s.logError(opGetUser, "lookup_failed", err, zap.String("user_id", userID))
		return User{}, newServiceError(opGetUser, "lookup_failed", err)
	}
	return user, nil
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
	s.logger.Error("accounts service error", attrs...)
}
