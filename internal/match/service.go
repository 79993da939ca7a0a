package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/accounts"
	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrProfileNotFound indicates that the user has not submitted the quiz.
	ErrProfileNotFound = errors.New("match: quiz profile not found")
	// ErrQuizIncomplete indicates matching was requested before the quiz.
	ErrQuizIncomplete = errors.New("match: quiz not completed")
	// ErrSelectionIncomplete indicates matching was requested before college selection.
	ErrSelectionIncomplete = errors.New("match: college selection not completed")
	// ErrMatchingDone indicates matching already ran for the student.
	ErrMatchingDone = errors.New("match: matching already completed")
	// ErrNoApplications indicates there is nothing left to match.
	ErrNoApplications = errors.New("match: no unmatched applications")
	// ErrForbidden indicates a role not permitted to perform the action.
	ErrForbidden = errors.New("match: forbidden")
	// ErrInvalidInput indicates a malformed submission.
	ErrInvalidInput = errors.New("match: invalid input")
)

const (
	opServiceNew        = "match.service.new"
	opSubmitQuiz        = "match.submit_quiz"
	opGetProfile        = "match.get_profile"
	opQuizCompletion    = "match.quiz_completion"
	opCreateApplication = "match.create_application"
	opListApplications  = "match.list_applications"
	opStartMatching     = "match.start_matching"
	opMatchingStatus    = "match.matching_status"
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

// IDProvider issues identifiers for new applications.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the match service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns quiz profiles, college applications, and the matching
// workflow assigning consultants to applications by score.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the match service.
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

// QuizSubmission carries one user's matching quiz answers.
type QuizSubmission struct {
	Subjects             []string
	Competitions         []string
	Activities           []string
	OtherSubjects        string
	OtherActivities      string
	HasPublishedResearch bool
	IsFirstGeneration    bool
	Gender               string
	IncomeBracket        string
	CitizenshipStatus    string
	IsUnderrepresented   bool
}

// SubmitQuiz upserts the caller's quiz profile and marks the account's quiz
// as completed. Resubmission updates the profile in place.
func (s *Service) SubmitQuiz(ctx context.Context, principal auth.Principal, submission QuizSubmission) (MatchProfile, error) {
	if principal.UserID == "" {
		return MatchProfile{}, newServiceError(opSubmitQuiz, "missing_user", ErrForbidden)
	}
	role, err := auth.ParseRole(principal.Role.String())
	if err != nil {
		return MatchProfile{}, newServiceError(opSubmitQuiz, "unknown_role", ErrForbidden)
	}

	now := s.clock().UTC().Unix()
	var saved MatchProfile
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile MatchProfile
		err := tx.Where("user_id = ?", principal.UserID).Take(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opSubmitQuiz, "profile_lookup_failed", err)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = MatchProfile{UserID: principal.UserID, CreatedAtSeconds: now}
		}
		profile.Role = role.String()
		profile.Subjects = stringList(submission.Subjects)
		profile.Competitions = stringList(submission.Competitions)
		profile.Activities = stringList(submission.Activities)
		profile.OtherSubjects = strings.TrimSpace(submission.OtherSubjects)
		profile.OtherActivities = strings.TrimSpace(submission.OtherActivities)
		profile.HasPublishedResearch = submission.HasPublishedResearch
		profile.IsFirstGeneration = submission.IsFirstGeneration
		profile.Gender = strings.TrimSpace(submission.Gender)
		profile.IncomeBracket = strings.TrimSpace(submission.IncomeBracket)
		profile.CitizenshipStatus = strings.TrimSpace(submission.CitizenshipStatus)
		profile.IsUnderrepresented = submission.IsUnderrepresented
		profile.UpdatedAtSeconds = now
		if err := tx.Save(&profile).Error; err != nil {
			return newServiceError(opSubmitQuiz, "profile_save_failed", err)
		}

		if err := tx.Model(&accounts.User{}).
			Where("user_id = ?", principal.UserID).
			Updates(map[string]interface{}{"quiz_completed": true, "updated_at_s": now}).Error; err != nil {
			return newServiceError(opSubmitQuiz, "user_flag_update_failed", err)
		}
		saved = profile
		return nil
	})
	if txErr != nil {
		s.logError(opSubmitQuiz, "transaction_failed", txErr, zap.String("user_id", principal.UserID))
		return MatchProfile{}, txErr
	}
	return saved, nil
}

// GetProfile fetches the caller's quiz profile.
func (s *Service) GetProfile(ctx context.Context, principal auth.Principal) (MatchProfile, error) {
	var profile MatchProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", principal.UserID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MatchProfile{}, newServiceError(opGetProfile, "profile_not_found", ErrProfileNotFound)
	}
	if err != nil {
		s.logError(opGetProfile, "lookup_failed", err, zap.String("user_id", principal.UserID))
		return MatchProfile{}, newServiceError(opGetProfile, "lookup_failed", err)
	}
	return profile, nil
}

// QuizCompletion reports whether the caller has submitted the quiz.
func (s *Service) QuizCompletion(ctx context.Context, principal auth.Principal) (bool, error) {
	var user accounts.User
	err := s.db.WithContext(ctx).Where("user_id = ?", principal.UserID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, newServiceError(opQuizCompletion, "unknown_user", accounts.ErrUserNotFound)
	}
	if err != nil {
		s.logError(opQuizCompletion, "lookup_failed", err, zap.String("user_id", principal.UserID))
		return false, newServiceError(opQuizCompletion, "lookup_failed", err)
	}
	return user.QuizCompleted, nil
}

// ApplicationDraft describes a new college application.
type ApplicationDraft struct {
	CollegeName   string
	MajorCategory string
	MajorName     string
}

// CreateApplication records a college application for the student and marks
// college selection as completed.
func (s *Service) CreateApplication(ctx context.Context, principal auth.Principal, draft ApplicationDraft) (CollegeApplication, error) {
	if principal.Role != auth.RoleStudent {
		return CollegeApplication{}, newServiceError(opCreateApplication, "consultant_create", ErrForbidden)
	}
	collegeName := strings.TrimSpace(draft.CollegeName)
	majorCategory := strings.TrimSpace(draft.MajorCategory)
	if collegeName == "" {
		return CollegeApplication{}, newServiceError(opCreateApplication, "missing_college_name", ErrInvalidInput)
	}
	if majorCategory == "" {
		return CollegeApplication{}, newServiceError(opCreateApplication, "missing_major_category", ErrInvalidInput)
	}

	applicationID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateApplication, "id_generation_failed", err)
		return CollegeApplication{}, newServiceError(opCreateApplication, "id_generation_failed", err)
	}
	now := s.clock().UTC().Unix()
	application := CollegeApplication{
		ApplicationID:    applicationID,
		StudentID:        principal.UserID,
		CollegeName:      collegeName,
		MajorCategory:    majorCategory,
		MajorName:        strings.TrimSpace(draft.MajorName),
		CreatedAtSeconds: now,
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&application).Error; err != nil {
			return newServiceError(opCreateApplication, "application_insert_failed", err)
		}
		if err := tx.Model(&accounts.User{}).
			Where("user_id = ?", principal.UserID).
			Updates(map[string]interface{}{"college_selection_completed": true, "updated_at_s": now}).Error; err != nil {
			return newServiceError(opCreateApplication, "user_flag_update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opCreateApplication, "transaction_failed", txErr, zap.String("student_id", principal.UserID))
		return CollegeApplication{}, txErr
	}
	return application, nil
}

// ListApplications returns the caller's applications: a student's own, or
// the applications assigned to a consultant.
func (s *Service) ListApplications(ctx context.Context, principal auth.Principal) ([]CollegeApplication, error) {
	query := s.db.WithContext(ctx)
	switch principal.Role {
	case auth.RoleStudent:
		query = query.Where("student_id = ?", principal.UserID)
	case auth.RoleConsultant:
		query = query.Where("consultant_id = ?", principal.UserID)
	default:
		return nil, newServiceError(opListApplications, "unknown_role", ErrForbidden)
	}

	var applications []CollegeApplication
	if err := query.Order("created_at_s ASC").Find(&applications).Error; err != nil {
		s.logError(opListApplications, "query_failed", err, zap.String("user_id", principal.UserID))
		return nil, newServiceError(opListApplications, "query_failed", err)
	}
	return applications, nil
}

// MatchingResult summarizes one matching run.
type MatchingResult struct {
	ApplicationsMatched int
	TotalApplications   int
}

// StartMatching assigns the best-scoring consultant to each of the
// student's unmatched applications. Requires the quiz and college selection
// to be complete and matching not yet run. Consultants are evaluated in
// ascending id order; an equal later score never displaces an earlier
// winner.
func (s *Service) StartMatching(ctx context.Context, principal auth.Principal) (MatchingResult, error) {
	if principal.Role != auth.RoleStudent {
		return MatchingResult{}, newServiceError(opStartMatching, "consultant_start", ErrForbidden)
	}

	var result MatchingResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user accounts.User
		err := tx.Where("user_id = ?", principal.UserID).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opStartMatching, "unknown_user", accounts.ErrUserNotFound)
		}
		if err != nil {
			return newServiceError(opStartMatching, "user_lookup_failed", err)
		}
		if !user.QuizCompleted {
			return newServiceError(opStartMatching, "quiz_incomplete", ErrQuizIncomplete)
		}
		if !user.CollegeSelectionCompleted {
			return newServiceError(opStartMatching, "selection_incomplete", ErrSelectionIncomplete)
		}
		if user.MatchingCompleted {
			return newServiceError(opStartMatching, "already_matched", ErrMatchingDone)
		}

		var studentProfile MatchProfile
		err = tx.Where("user_id = ?", principal.UserID).Take(&studentProfile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opStartMatching, "profile_not_found", ErrProfileNotFound)
		}
		if err != nil {
			return newServiceError(opStartMatching, "profile_lookup_failed", err)
		}

		var unmatched []CollegeApplication
		if err := tx.Where("student_id = ? AND consultant_id = ?", principal.UserID, "").
			Order("created_at_s ASC").
			Find(&unmatched).Error; err != nil {
			return newServiceError(opStartMatching, "application_query_failed", err)
		}
		if len(unmatched) == 0 {
			return newServiceError(opStartMatching, "nothing_to_match", ErrNoApplications)
		}

		var consultants []MatchProfile
		if err := tx.Where("role = ?", auth.RoleConsultant.String()).
			Order("user_id ASC").
			Find(&consultants).Error; err != nil {
			return newServiceError(opStartMatching, "consultant_query_failed", err)
		}

		for i := range unmatched {
			major := appliedMajor(unmatched[i])
			bestID := ""
			bestScore := -1.0
			for j := range consultants {
				score := Score(studentProfile, &consultants[j], major)
				if score > bestScore {
					bestScore = score
					bestID = consultants[j].UserID
				}
			}
			if bestID == "" {
				continue
			}
			unmatched[i].ConsultantID = bestID
			unmatched[i].MatchScore = bestScore
			if err := tx.Save(&unmatched[i]).Error; err != nil {
				return newServiceError(opStartMatching, "application_save_failed", err)
			}
			result.ApplicationsMatched++
		}

		if err := tx.Model(&accounts.User{}).
			Where("user_id = ?", principal.UserID).
			Updates(map[string]interface{}{"matching_completed": true, "updated_at_s": s.clock().UTC().Unix()}).Error; err != nil {
			return newServiceError(opStartMatching, "user_flag_update_failed", err)
		}
		result.TotalApplications = len(unmatched)
		return nil
	})
	if txErr != nil {
		s.logOutcome(opStartMatching, txErr, zap.String("student_id", principal.UserID))
		return MatchingResult{}, txErr
	}
	return result, nil
}

// MatchingStatus reports the student's matching progress and assignments.
type MatchingStatus struct {
	MatchingCompleted   bool
	MatchedApplications int
	TotalApplications   int
	Applications        []CollegeApplication
}

// GetMatchingStatus returns the matching progress for the student.
func (s *Service) GetMatchingStatus(ctx context.Context, principal auth.Principal) (MatchingStatus, error) {
	if principal.Role != auth.RoleStudent {
		return MatchingStatus{}, newServiceError(opMatchingStatus, "consultant_status", ErrForbidden)
	}

	var user accounts.User
	err := s.db.WithContext(ctx).Where("user_id = ?", principal.UserID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MatchingStatus{}, newServiceError(opMatchingStatus, "unknown_user", accounts.ErrUserNotFound)
	}
	if err != nil {
		s.logError(opMatchingStatus, "user_lookup_failed", err, zap.String("user_id", principal.UserID))
		return MatchingStatus{}, newServiceError(opMatchingStatus, "user_lookup_failed", err)
	}

	var matched []CollegeApplication
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND consultant_id <> ?", principal.UserID, "").
		Order("created_at_s ASC").
		Find(&matched).Error; err != nil {
		s.logError(opMatchingStatus, "application_query_failed", err, zap.String("user_id", principal.UserID))
		return MatchingStatus{}, newServiceError(opMatchingStatus, "application_query_failed", err)
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&CollegeApplication{}).
		Where("student_id = ?", principal.UserID).
		Count(&total).Error; err != nil {
		s.logError(opMatchingStatus, "application_count_failed", err, zap.String("user_id", principal.UserID))
		return MatchingStatus{}, newServiceError(opMatchingStatus, "application_count_failed", err)
	}

	return MatchingStatus{
		MatchingCompleted:   user.MatchingCompleted,
		MatchedApplications: len(matched),
		TotalApplications:   int(total),
		Applications:        matched,
	}, nil
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
	s.logger.Error("match service error", attrs...)
}

// logOutcome records unexpected failures, skipping expected caller outcomes.
func (s *Service) logOutcome(operation string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrQuizIncomplete) || errors.Is(err, ErrSelectionIncomplete) ||
		errors.Is(err, ErrMatchingDone) || errors.Is(err, ErrNoApplications) ||
		errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrForbidden) {
		return
	}
	s.logError(operation, "transaction_failed", err, fields...)
}
