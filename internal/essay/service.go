package essay

import (
	"context"
	"errors"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew          = "review.service.new"
	opCreateEssay         = "review.create_essay"
	opGetEssay            = "review.get_essay"
	opReplaceResponse     = "review.replace_response"
	opCreateComment       = "review.create_comment"
	opListComments        = "review.list_comments"
	opResolveComment      = "review.resolve_comment"
	opCreateStrikethrough = "review.create_strikethrough"
	opListStrikethroughs  = "review.list_strikethroughs"
	opAcceptStrikethrough = "review.accept_strikethrough"
	opRejectStrikethrough = "review.reject_strikethrough"
	opCreateAddition      = "review.create_addition"
	opListAdditions       = "review.list_additions"
	opAcceptAddition      = "review.accept_addition"
	opRejectAddition      = "review.reject_addition"
	opCreateSuggestion    = "review.create_suggestion"
	opListSuggestions     = "review.list_suggestions"
	opAcceptSuggestion    = "review.accept_suggestion"
	opRejectSuggestion    = "review.reject_suggestion"
)

// IDProvider issues identifiers for new essays and annotations.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the review service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns the essay buffers and their annotations: creation,
// listing, the proposal lifecycle, and offset reconciliation on accepted
// edits.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the review service.
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

func requireParticipant(operation string, principal auth.Principal) error {
	if principal.UserID == "" {
		return newServiceError(operation, "missing_user", ErrForbidden)
	}
	if _, err := auth.ParseRole(principal.Role.String()); err != nil {
		return newServiceError(operation, "unknown_role", ErrForbidden)
	}
	return nil
}

// requireCrossRole enforces that a proposal is accepted by the opposite
// role from its author.
func requireCrossRole(operation string, principal auth.Principal, authorRole string) error {
	if principal.Role.String() == authorRole {
		return newServiceError(operation, "same_role_accept", ErrForbidden)
	}
	return nil
}

// CreateEssay registers a new essay response buffer for an application.
func (s *Service) CreateEssay(ctx context.Context, applicationID, prompt, response string) (Essay, error) {
	essayID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateEssay, "id_generation_failed", err)
		return Essay{}, newServiceError(opCreateEssay, "id_generation_failed", err)
	}
	record := Essay{
		EssayID:             essayID,
		ApplicationID:       applicationID,
		Prompt:              prompt,
		Response:            response,
		Version:             1,
		LastEditedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreateEssay, "essay_insert_failed", err)
		return Essay{}, newServiceError(opCreateEssay, "essay_insert_failed", err)
	}
	return record, nil
}

// GetEssay fetches one essay buffer.
func (s *Service) GetEssay(ctx context.Context, essayID string) (Essay, error) {
	var record Essay
	err := s.db.WithContext(ctx).Where("essay_id = ?", essayID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Essay{}, newServiceError(opGetEssay, "essay_not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGetEssay, "essay_select_failed", err, zap.String("essay_id", essayID))
		return Essay{}, newServiceError(opGetEssay, "essay_select_failed", err)
	}
	return record, nil
}

// ReplaceResponse overwrites the whole essay response. Students only. The
// replace is refused while strikethrough or addition proposals are live,
// since their anchors would no longer reference anything; open comments are
// resolved with their anchors cleared.
func (s *Service) ReplaceResponse(ctx context.Context, principal auth.Principal, essayID, response string) (Essay, error) {
	if err := requireParticipant(opReplaceResponse, principal); err != nil {
		return Essay{}, err
	}
	if principal.Role != auth.RoleStudent {
		return Essay{}, newServiceError(opReplaceResponse, "consultant_edit", ErrForbidden)
	}

	var updated Essay
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essayForUpdate(tx, opReplaceResponse, essayID)
		if err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&Strikethrough{}).Where("essay_id = ?", essayID).Count(&pending).Error; err != nil {
			return newServiceError(opReplaceResponse, "strikethrough_count_failed", err)
		}
		var pendingAdditions int64
		if err := tx.Model(&Addition{}).Where("essay_id = ?", essayID).Count(&pendingAdditions).Error; err != nil {
			return newServiceError(opReplaceResponse, "addition_count_failed", err)
		}
		if pending+pendingAdditions > 0 {
			return newServiceError(opReplaceResponse, "pending_proposals", ErrConflict)
		}

		if err := tx.Model(&Comment{}).
			Where("essay_id = ? AND resolved = ?", essayID, false).
			Updates(map[string]interface{}{"resolved": true, "anchor_start": 0, "anchor_end": 0}).Error; err != nil {
			return newServiceError(opReplaceResponse, "comment_resolve_failed", err)
		}

		record.Response = response
		record.Version++
		record.LastEditedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opReplaceResponse, "essay_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opReplaceResponse, txErr, zap.String("essay_id", essayID))
		return Essay{}, txErr
	}
	return updated, nil
}

// CommentDraft describes a new anchored comment.
type CommentDraft struct {
	AnchorStart int
	AnchorEnd   int
	Body        string
}

// CreateComment anchors a comment to [AnchorStart, AnchorEnd) of the
// current essay response. An empty body is a highlight-only comment.
func (s *Service) CreateComment(ctx context.Context, principal auth.Principal, essayID string, draft CommentDraft) (Comment, error) {
	if err := requireParticipant(opCreateComment, principal); err != nil {
		return Comment{}, err
	}

	var created Comment
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essaySnapshot(tx, opCreateComment, essayID)
		if err != nil {
			return err
		}
		if draft.AnchorStart < 0 || draft.AnchorStart > draft.AnchorEnd || draft.AnchorEnd > record.contentLength() {
			return newServiceError(opCreateComment, "anchor_out_of_bounds", ErrInvalidRange)
		}

		commentID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(opCreateComment, "id_generation_failed", err)
		}
		created = Comment{
			CommentID:        commentID,
			EssayID:          essayID,
			AuthorID:         principal.UserID,
			AuthorRole:       principal.Role.String(),
			AnchorStart:      draft.AnchorStart,
			AnchorEnd:        draft.AnchorEnd,
			Body:             draft.Body,
			CreatedAtSeconds: s.clock().UTC().Unix(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return newServiceError(opCreateComment, "comment_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logOutcome(opCreateComment, txErr, zap.String("essay_id", essayID))
		return Comment{}, txErr
	}
	return created, nil
}

// ListComments returns all comments on the essay, open and resolved.
func (s *Service) ListComments(ctx context.Context, essayID string) ([]Comment, error) {
	var records []Comment
	if err := s.db.WithContext(ctx).
		Where("essay_id = ?", essayID).
		Order("created_at_s ASC").
		Find(&records).Error; err != nil {
		s.logError(opListComments, "query_failed", err, zap.String("essay_id", essayID))
		return nil, newServiceError(opListComments, "query_failed", err)
	}
	return records, nil
}

// ResolveComment marks a comment resolved. Resolving twice is a no-op.
func (s *Service) ResolveComment(ctx context.Context, principal auth.Principal, essayID, commentID string) (Comment, error) {
	if err := requireParticipant(opResolveComment, principal); err != nil {
		return Comment{}, err
	}

	var resolved Comment
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Comment
		err := tx.Where("comment_id = ? AND essay_id = ?", commentID, essayID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opResolveComment, "comment_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opResolveComment, "comment_select_failed", err)
		}
		if record.Resolved {
			resolved = record
			return nil
		}
		record.Resolved = true
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opResolveComment, "comment_save_failed", err)
		}
		resolved = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opResolveComment, txErr, zap.String("essay_id", essayID), zap.String("comment_id", commentID))
		return Comment{}, txErr
	}
	return resolved, nil
}

// CreateStrikethrough proposes deleting [start, end) of the current essay
// response, snapshotting the covered text for display.
func (s *Service) CreateStrikethrough(ctx context.Context, principal auth.Principal, essayID string, start, end int) (Strikethrough, error) {
	if err := requireParticipant(opCreateStrikethrough, principal); err != nil {
		return Strikethrough{}, err
	}

	var created Strikethrough
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essaySnapshot(tx, opCreateStrikethrough, essayID)
		if err != nil {
			return err
		}
		if start < 0 || start >= end || end > record.contentLength() {
			return newServiceError(opCreateStrikethrough, "anchor_out_of_bounds", ErrInvalidRange)
		}

		strikethroughID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(opCreateStrikethrough, "id_generation_failed", err)
		}
		runes := []rune(record.Response)
		created = Strikethrough{
			StrikethroughID:  strikethroughID,
			EssayID:          essayID,
			AuthorID:         principal.UserID,
			AuthorRole:       principal.Role.String(),
			AnchorStart:      start,
			AnchorEnd:        end,
			RemovedText:      string(runes[start:end]),
			CreatedAtSeconds: s.clock().UTC().Unix(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return newServiceError(opCreateStrikethrough, "strikethrough_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logOutcome(opCreateStrikethrough, txErr, zap.String("essay_id", essayID))
		return Strikethrough{}, txErr
	}
	return created, nil
}

// ListStrikethroughs returns all pending strikethrough proposals.
func (s *Service) ListStrikethroughs(ctx context.Context, essayID string) ([]Strikethrough, error) {
	var records []Strikethrough
	if err := s.db.WithContext(ctx).
		Where("essay_id = ?", essayID).
		Order("anchor_start ASC").
		Find(&records).Error; err != nil {
		s.logError(opListStrikethroughs, "query_failed", err, zap.String("essay_id", essayID))
		return nil, newServiceError(opListStrikethroughs, "query_failed", err)
	}
	return records, nil
}

// AcceptStrikethrough applies the proposed deletion to the essay buffer,
// reconciles every other live annotation, and removes the accepted
// proposal. expectedVersion is the buffer version the caller acted on; a
// mismatch surfaces as a conflict for the caller to retry after refreshing.
func (s *Service) AcceptStrikethrough(ctx context.Context, principal auth.Principal, essayID, strikethroughID string, expectedVersion int64) (Essay, error) {
	if err := requireParticipant(opAcceptStrikethrough, principal); err != nil {
		return Essay{}, err
	}

	var updated Essay
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essayForUpdate(tx, opAcceptStrikethrough, essayID)
		if err != nil {
			return err
		}
		if record.Version != expectedVersion {
			return newServiceError(opAcceptStrikethrough, "version_mismatch", ErrConflict)
		}

		var strike Strikethrough
		err = tx.Where("strikethrough_id = ? AND essay_id = ?", strikethroughID, essayID).Take(&strike).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAcceptStrikethrough, "strikethrough_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opAcceptStrikethrough, "strikethrough_select_failed", err)
		}
		if err := requireCrossRole(opAcceptStrikethrough, principal, strike.AuthorRole); err != nil {
			return err
		}

		if _, err := record.deleteRange(strike.AnchorStart, strike.AnchorEnd, s.clock()); err != nil {
			return newServiceError(opAcceptStrikethrough, "anchor_out_of_bounds", err)
		}

		set, err := s.liveAnnotations(tx, opAcceptStrikethrough, essayID, strike.StrikethroughID, "")
		if err != nil {
			return err
		}
		outcome := reconcileAfterDelete(set, strike.AnchorStart, strike.AnchorEnd)
		if err := s.persistReconciliation(tx, opAcceptStrikethrough, outcome); err != nil {
			return err
		}

		if err := tx.Delete(&Strikethrough{}, "strikethrough_id = ?", strike.StrikethroughID).Error; err != nil {
			return newServiceError(opAcceptStrikethrough, "strikethrough_delete_failed", err)
		}
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAcceptStrikethrough, "essay_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opAcceptStrikethrough, txErr,
			zap.String("essay_id", essayID),
			zap.String("strikethrough_id", strikethroughID))
		return Essay{}, txErr
	}
	return updated, nil
}

// RejectStrikethrough discards a pending strikethrough proposal. Any
// participant on the application may reject.
func (s *Service) RejectStrikethrough(ctx context.Context, principal auth.Principal, essayID, strikethroughID string) error {
	if err := requireParticipant(opRejectStrikethrough, principal); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&Strikethrough{}, "strikethrough_id = ? AND essay_id = ?", strikethroughID, essayID)
	if result.Error != nil {
		s.logError(opRejectStrikethrough, "strikethrough_delete_failed", result.Error, zap.String("essay_id", essayID))
		return newServiceError(opRejectStrikethrough, "strikethrough_delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opRejectStrikethrough, "strikethrough_not_found", ErrNotFound)
	}
	return nil
}

// CreateAddition proposes inserting text at a single point of the current
// essay response.
func (s *Service) CreateAddition(ctx context.Context, principal auth.Principal, essayID string, anchorStart int, insertText string) (Addition, error) {
	if err := requireParticipant(opCreateAddition, principal); err != nil {
		return Addition{}, err
	}
	if insertText == "" {
		return Addition{}, newServiceError(opCreateAddition, "empty_insert_text", ErrInvalidRange)
	}

	var created Addition
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essaySnapshot(tx, opCreateAddition, essayID)
		if err != nil {
			return err
		}
		if anchorStart < 0 || anchorStart > record.contentLength() {
			return newServiceError(opCreateAddition, "anchor_out_of_bounds", ErrInvalidRange)
		}

		additionID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(opCreateAddition, "id_generation_failed", err)
		}
		created = Addition{
			AdditionID:       additionID,
			EssayID:          essayID,
			AuthorID:         principal.UserID,
			AuthorRole:       principal.Role.String(),
			AnchorStart:      anchorStart,
			InsertText:       insertText,
			CreatedAtSeconds: s.clock().UTC().Unix(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return newServiceError(opCreateAddition, "addition_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logOutcome(opCreateAddition, txErr, zap.String("essay_id", essayID))
		return Addition{}, txErr
	}
	return created, nil
}

// ListAdditions returns all pending addition proposals.
func (s *Service) ListAdditions(ctx context.Context, essayID string) ([]Addition, error) {
	var records []Addition
	if err := s.db.WithContext(ctx).
		Where("essay_id = ?", essayID).
		Order("anchor_start ASC").
		Find(&records).Error; err != nil {
		s.logError(opListAdditions, "query_failed", err, zap.String("essay_id", essayID))
		return nil, newServiceError(opListAdditions, "query_failed", err)
	}
	return records, nil
}

// AcceptAddition applies the proposed insertion to the essay buffer,
// reconciles every other live annotation, and removes the accepted
// proposal.
func (s *Service) AcceptAddition(ctx context.Context, principal auth.Principal, essayID, additionID string, expectedVersion int64) (Essay, error) {
	if err := requireParticipant(opAcceptAddition, principal); err != nil {
		return Essay{}, err
	}

	var updated Essay
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.essayForUpdate(tx, opAcceptAddition, essayID)
		if err != nil {
			return err
		}
		if record.Version != expectedVersion {
			return newServiceError(opAcceptAddition, "version_mismatch", ErrConflict)
		}

		var addition Addition
		err = tx.Where("addition_id = ? AND essay_id = ?", additionID, essayID).Take(&addition).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAcceptAddition, "addition_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opAcceptAddition, "addition_select_failed", err)
		}
		if err := requireCrossRole(opAcceptAddition, principal, addition.AuthorRole); err != nil {
			return err
		}

		delta, err := record.insertAt(addition.AnchorStart, addition.InsertText, s.clock())
		if err != nil {
			return newServiceError(opAcceptAddition, "anchor_out_of_bounds", err)
		}

		set, err := s.liveAnnotations(tx, opAcceptAddition, essayID, "", addition.AdditionID)
		if err != nil {
			return err
		}
		outcome := reconcileAfterInsert(set, addition.AnchorStart, delta)
		if err := s.persistReconciliation(tx, opAcceptAddition, outcome); err != nil {
			return err
		}

		if err := tx.Delete(&Addition{}, "addition_id = ?", addition.AdditionID).Error; err != nil {
			return newServiceError(opAcceptAddition, "addition_delete_failed", err)
		}
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAcceptAddition, "essay_save_failed", err)
		}
		updated = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opAcceptAddition, txErr,
			zap.String("essay_id", essayID),
			zap.String("addition_id", additionID))
		return Essay{}, txErr
	}
	return updated, nil
}

// RejectAddition discards a pending addition proposal.
func (s *Service) RejectAddition(ctx context.Context, principal auth.Principal, essayID, additionID string) error {
	if err := requireParticipant(opRejectAddition, principal); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&Addition{}, "addition_id = ? AND essay_id = ?", additionID, essayID)
	if result.Error != nil {
		s.logError(opRejectAddition, "addition_delete_failed", result.Error, zap.String("essay_id", essayID))
		return newServiceError(opRejectAddition, "addition_delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opRejectAddition, "addition_not_found", ErrNotFound)
	}
	return nil
}

// SuggestionDraft describes a new non-anchored suggestion.
type SuggestionDraft struct {
	OriginalText  string
	SuggestedText string
	Kind          SuggestionKind
	Comment       string
}

// CreateSuggestion records a non-anchored alternative wording.
func (s *Service) CreateSuggestion(ctx context.Context, principal auth.Principal, essayID string, draft SuggestionDraft) (Suggestion, error) {
	if err := requireParticipant(opCreateSuggestion, principal); err != nil {
		return Suggestion{}, err
	}
	kind, err := ParseSuggestionKind(draft.Kind.String())
	if err != nil {
		return Suggestion{}, newServiceError(opCreateSuggestion, "invalid_kind", err)
	}
	if draft.SuggestedText == "" {
		return Suggestion{}, newServiceError(opCreateSuggestion, "empty_suggested_text", ErrInvalidRange)
	}

	if _, err := s.GetEssay(ctx, essayID); err != nil {
		return Suggestion{}, err
	}

	suggestionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateSuggestion, "id_generation_failed", err)
		return Suggestion{}, newServiceError(opCreateSuggestion, "id_generation_failed", err)
	}
	created := Suggestion{
		SuggestionID:     suggestionID,
		EssayID:          essayID,
		AuthorID:         principal.UserID,
		AuthorRole:       principal.Role.String(),
		OriginalText:     draft.OriginalText,
		SuggestedText:    draft.SuggestedText,
		Kind:             kind.String(),
		Comment:          draft.Comment,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		s.logError(opCreateSuggestion, "suggestion_insert_failed", err, zap.String("essay_id", essayID))
		return Suggestion{}, newServiceError(opCreateSuggestion, "suggestion_insert_failed", err)
	}
	return created, nil
}

// ListSuggestions returns all suggestions for the essay.
func (s *Service) ListSuggestions(ctx context.Context, essayID string) ([]Suggestion, error) {
	var records []Suggestion
	if err := s.db.WithContext(ctx).
		Where("essay_id = ?", essayID).
		Order("created_at_s ASC").
		Find(&records).Error; err != nil {
		s.logError(opListSuggestions, "query_failed", err, zap.String("essay_id", essayID))
		return nil, newServiceError(opListSuggestions, "query_failed", err)
	}
	return records, nil
}

// AcceptSuggestion marks a suggestion accepted. Suggestions are not
// anchored, so no buffer mutation or reconciliation happens. Accepting
// twice is a no-op.
func (s *Service) AcceptSuggestion(ctx context.Context, principal auth.Principal, essayID, suggestionID string) (Suggestion, error) {
	if err := requireParticipant(opAcceptSuggestion, principal); err != nil {
		return Suggestion{}, err
	}

	var accepted Suggestion
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Suggestion
		err := tx.Where("suggestion_id = ? AND essay_id = ?", suggestionID, essayID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAcceptSuggestion, "suggestion_not_found", ErrNotFound)
		}
		if err != nil {
			return newServiceError(opAcceptSuggestion, "suggestion_select_failed", err)
		}
		if err := requireCrossRole(opAcceptSuggestion, principal, record.AuthorRole); err != nil {
			return err
		}
		if record.Accepted {
			accepted = record
			return nil
		}
		record.Accepted = true
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAcceptSuggestion, "suggestion_save_failed", err)
		}
		accepted = record
		return nil
	})
	if txErr != nil {
		s.logOutcome(opAcceptSuggestion, txErr, zap.String("essay_id", essayID), zap.String("suggestion_id", suggestionID))
		return Suggestion{}, txErr
	}
	return accepted, nil
}

// RejectSuggestion discards a suggestion.
func (s *Service) RejectSuggestion(ctx context.Context, principal auth.Principal, essayID, suggestionID string) error {
	if err := requireParticipant(opRejectSuggestion, principal); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&Suggestion{}, "suggestion_id = ? AND essay_id = ?", suggestionID, essayID)
	if result.Error != nil {
		s.logError(opRejectSuggestion, "suggestion_delete_failed", result.Error, zap.String("essay_id", essayID))
		return newServiceError(opRejectSuggestion, "suggestion_delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opRejectSuggestion, "suggestion_not_found", ErrNotFound)
	}
	return nil
}

func (s *Service) essayForUpdate(tx *gorm.DB, operation, essayID string) (Essay, error) {
	var record Essay
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("essay_id = ?", essayID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Essay{}, newServiceError(operation, "essay_not_found", ErrNotFound)
	}
	if err != nil {
		return Essay{}, newServiceError(operation, "essay_select_failed", err)
	}
	return record, nil
}

// essaySnapshot reads the essay inside the caller's transaction so anchor
// validation sees the same content length the insert will reference.
func (s *Service) essaySnapshot(tx *gorm.DB, operation, essayID string) (Essay, error) {
	var record Essay
	err := tx.Where("essay_id = ?", essayID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Essay{}, newServiceError(operation, "essay_not_found", ErrNotFound)
	}
	if err != nil {
		return Essay{}, newServiceError(operation, "essay_select_failed", err)
	}
	return record, nil
}

// liveAnnotations loads the reconciliation input: unresolved comments and
// every pending proposal except the one consumed by the triggering accept.
func (s *Service) liveAnnotations(tx *gorm.DB, operation, essayID, excludeStrikethroughID, excludeAdditionID string) (annotationSet, error) {
	var set annotationSet

	if err := tx.Where("essay_id = ? AND resolved = ?", essayID, false).Find(&set.comments).Error; err != nil {
		return annotationSet{}, newServiceError(operation, "comment_query_failed", err)
	}

	strikeQuery := tx.Where("essay_id = ?", essayID)
	if excludeStrikethroughID != "" {
		strikeQuery = strikeQuery.Where("strikethrough_id <> ?", excludeStrikethroughID)
	}
	if err := strikeQuery.Find(&set.strikethroughs).Error; err != nil {
		return annotationSet{}, newServiceError(operation, "strikethrough_query_failed", err)
	}

	additionQuery := tx.Where("essay_id = ?", essayID)
	if excludeAdditionID != "" {
		additionQuery = additionQuery.Where("addition_id <> ?", excludeAdditionID)
	}
	if err := additionQuery.Find(&set.additions).Error; err != nil {
		return annotationSet{}, newServiceError(operation, "addition_query_failed", err)
	}

	return set, nil
}

func (s *Service) persistReconciliation(tx *gorm.DB, operation string, outcome reconciliation) error {
	for i := range outcome.comments {
		if err := tx.Save(&outcome.comments[i]).Error; err != nil {
			return newServiceError(operation, "comment_save_failed", err)
		}
	}
	for i := range outcome.strikethroughs {
		if err := tx.Save(&outcome.strikethroughs[i]).Error; err != nil {
			return newServiceError(operation, "strikethrough_save_failed", err)
		}
	}
	for i := range outcome.additions {
		if err := tx.Save(&outcome.additions[i]).Error; err != nil {
			return newServiceError(operation, "addition_save_failed", err)
		}
	}
	if len(outcome.droppedStrikethroughs) > 0 {
		if err := tx.Delete(&Strikethrough{}, "strikethrough_id IN ?", outcome.droppedStrikethroughs).Error; err != nil {
			return newServiceError(operation, "strikethrough_drop_failed", err)
		}
	}
	if len(outcome.droppedAdditions) > 0 {
		if err := tx.Delete(&Addition{}, "addition_id IN ?", outcome.droppedAdditions).Error; err != nil {
			return newServiceError(operation, "addition_drop_failed", err)
		}
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
	s.logger.Error("review service error", attrs...)
}

// logOutcome records unexpected transaction failures, skipping the error
// kinds that are expected caller outcomes.
func (s *Service) logOutcome(operation string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidRange) {
		return
	}
	s.logError(operation, "transaction_failed", err, fields...)
}
