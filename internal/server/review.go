package server

import (
	"net/http"

	"github.com/AdmitPathLabs/admitpath/backend/internal/essay"
	"github.com/gin-gonic/gin"
)

type essayPayload struct {
	EssayID             string `json:"essay_id"`
	ApplicationID       string `json:"application_id"`
	Prompt              string `json:"prompt"`
	Response            string `json:"response"`
	Version             int64  `json:"version"`
	LastEditedAtSeconds int64  `json:"last_edited_at_s"`
}

func toEssayPayload(record essay.Essay) essayPayload {
	return essayPayload{
		EssayID:             record.EssayID,
		ApplicationID:       record.ApplicationID,
		Prompt:              record.Prompt,
		Response:            record.Response,
		Version:             record.Version,
		LastEditedAtSeconds: record.LastEditedAtSeconds,
	}
}

type commentPayload struct {
	CommentID        string `json:"comment_id"`
	EssayID          string `json:"essay_id"`
	AuthorID         string `json:"author_id"`
	AuthorRole       string `json:"author_role"`
	AnchorStart      int    `json:"anchor_start"`
	AnchorEnd        int    `json:"anchor_end"`
	Body             string `json:"body"`
	Resolved         bool   `json:"resolved"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

func toCommentPayload(record essay.Comment) commentPayload {
	return commentPayload{
		CommentID:        record.CommentID,
		EssayID:          record.EssayID,
		AuthorID:         record.AuthorID,
		AuthorRole:       record.AuthorRole,
		AnchorStart:      record.AnchorStart,
		AnchorEnd:        record.AnchorEnd,
		Body:             record.Body,
		Resolved:         record.Resolved,
		CreatedAtSeconds: record.CreatedAtSeconds,
	}
}

type strikethroughPayload struct {
	StrikethroughID  string `json:"strikethrough_id"`
	EssayID          string `json:"essay_id"`
	AuthorID         string `json:"author_id"`
	AuthorRole       string `json:"author_role"`
	AnchorStart      int    `json:"anchor_start"`
	AnchorEnd        int    `json:"anchor_end"`
	RemovedText      string `json:"removed_text"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

func toStrikethroughPayload(record essay.Strikethrough) strikethroughPayload {
	return strikethroughPayload{
		StrikethroughID:  record.StrikethroughID,
		EssayID:          record.EssayID,
		AuthorID:         record.AuthorID,
		AuthorRole:       record.AuthorRole,
		AnchorStart:      record.AnchorStart,
		AnchorEnd:        record.AnchorEnd,
		RemovedText:      record.RemovedText,
		CreatedAtSeconds: record.CreatedAtSeconds,
	}
}

type additionPayload struct {
	AdditionID       string `json:"addition_id"`
	EssayID          string `json:"essay_id"`
	AuthorID         string `json:"author_id"`
	AuthorRole       string `json:"author_role"`
	AnchorStart      int    `json:"anchor_start"`
	InsertText       string `json:"insert_text"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

func toAdditionPayload(record essay.Addition) additionPayload {
	return additionPayload{
		AdditionID:       record.AdditionID,
		EssayID:          record.EssayID,
		AuthorID:         record.AuthorID,
		AuthorRole:       record.AuthorRole,
		AnchorStart:      record.AnchorStart,
		InsertText:       record.InsertText,
		CreatedAtSeconds: record.CreatedAtSeconds,
	}
}

type suggestionPayload struct {
	SuggestionID     string `json:"suggestion_id"`
	EssayID          string `json:"essay_id"`
	AuthorID         string `json:"author_id"`
	AuthorRole       string `json:"author_role"`
	OriginalText     string `json:"original_text"`
	SuggestedText    string `json:"suggested_text"`
	Kind             string `json:"kind"`
	Comment          string `json:"comment"`
	Accepted         bool   `json:"accepted"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

func toSuggestionPayload(record essay.Suggestion) suggestionPayload {
	return suggestionPayload{
		SuggestionID:     record.SuggestionID,
		EssayID:          record.EssayID,
		AuthorID:         record.AuthorID,
		AuthorRole:       record.AuthorRole,
		OriginalText:     record.OriginalText,
		SuggestedText:    record.SuggestedText,
		Kind:             record.Kind,
		Comment:          record.Comment,
		Accepted:         record.Accepted,
		CreatedAtSeconds: record.CreatedAtSeconds,
	}
}

func (h *httpHandler) essayID(c *gin.Context) (string, bool) {
	id, err := essay.NewEssayID(c.Param("essayId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_essay_id"})
		return "", false
	}
	return id.String(), true
}

type createEssayPayload struct {
	ApplicationID string `json:"application_id"`
	Prompt        string `json:"prompt"`
	Response      string `json:"response"`
}

func (h *httpHandler) handleCreateEssay(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	var request createEssayPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.ApplicationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.CreateEssay(c.Request.Context(), request.ApplicationID, request.Prompt, request.Response)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEssayPayload(record))
}

func (h *httpHandler) handleGetEssay(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	record, err := h.essays.GetEssay(c.Request.Context(), essayID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEssayPayload(record))
}

type replaceResponsePayload struct {
	Response string `json:"response"`
}

func (h *httpHandler) handleReplaceResponse(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request replaceResponsePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.ReplaceResponse(c.Request.Context(), principal, essayID, request.Response)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEssayPayload(record))
}

type createCommentPayload struct {
	AnchorStart int    `json:"anchor_start"`
	AnchorEnd   int    `json:"anchor_end"`
	Body        string `json:"body"`
}

func (h *httpHandler) handleCreateComment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request createCommentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.CreateComment(c.Request.Context(), principal, essayID, essay.CommentDraft{
		AnchorStart: request.AnchorStart,
		AnchorEnd:   request.AnchorEnd,
		Body:        request.Body,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentPayload(record))
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	records, err := h.essays.ListComments(c.Request.Context(), essayID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]commentPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toCommentPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payloads})
}

func (h *httpHandler) handleResolveComment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	record, err := h.essays.ResolveComment(c.Request.Context(), principal, essayID, c.Param("commentId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentPayload(record))
}

type createStrikethroughPayload struct {
	AnchorStart int `json:"anchor_start"`
	AnchorEnd   int `json:"anchor_end"`
}

func (h *httpHandler) handleCreateStrikethrough(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request createStrikethroughPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.CreateStrikethrough(c.Request.Context(), principal, essayID, request.AnchorStart, request.AnchorEnd)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStrikethroughPayload(record))
}

func (h *httpHandler) handleListStrikethroughs(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	records, err := h.essays.ListStrikethroughs(c.Request.Context(), essayID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]strikethroughPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toStrikethroughPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"strikethroughs": payloads})
}

// acceptProposalPayload carries the essay version the caller last observed;
// the accept fails with a conflict when the buffer has moved on.
type acceptProposalPayload struct {
	EssayVersion int64 `json:"essay_version"`
}

func (h *httpHandler) handleAcceptStrikethrough(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request acceptProposalPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.AcceptStrikethrough(c.Request.Context(), principal, essayID, c.Param("proposalId"), request.EssayVersion)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEssayPayload(record))
}

func (h *httpHandler) handleRejectStrikethrough(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	if err := h.essays.RejectStrikethrough(c.Request.Context(), principal, essayID, c.Param("proposalId")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

type createAdditionPayload struct {
	AnchorStart int    `json:"anchor_start"`
	InsertText  string `json:"insert_text"`
}

func (h *httpHandler) handleCreateAddition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request createAdditionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.CreateAddition(c.Request.Context(), principal, essayID, request.AnchorStart, request.InsertText)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAdditionPayload(record))
}

func (h *httpHandler) handleListAdditions(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	records, err := h.essays.ListAdditions(c.Request.Context(), essayID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]additionPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toAdditionPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"additions": payloads})
}

func (h *httpHandler) handleAcceptAddition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request acceptProposalPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.AcceptAddition(c.Request.Context(), principal, essayID, c.Param("proposalId"), request.EssayVersion)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEssayPayload(record))
}

func (h *httpHandler) handleRejectAddition(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	if err := h.essays.RejectAddition(c.Request.Context(), principal, essayID, c.Param("proposalId")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

type createSuggestionPayload struct {
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	Kind          string `json:"kind"`
	Comment       string `json:"comment"`
}

func (h *httpHandler) handleCreateSuggestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}
	var request createSuggestionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.essays.CreateSuggestion(c.Request.Context(), principal, essayID, essay.SuggestionDraft{
		OriginalText:  request.OriginalText,
		SuggestedText: request.SuggestedText,
		Kind:          essay.SuggestionKind(request.Kind),
		Comment:       request.Comment,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSuggestionPayload(record))
}

func (h *httpHandler) handleListSuggestions(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	records, err := h.essays.ListSuggestions(c.Request.Context(), essayID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]suggestionPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toSuggestionPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": payloads})
}

func (h *httpHandler) handleAcceptSuggestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	record, err := h.essays.AcceptSuggestion(c.Request.Context(), principal, essayID, c.Param("proposalId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSuggestionPayload(record))
}

func (h *httpHandler) handleRejectSuggestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	essayID, ok := h.essayID(c)
	if !ok {
		return
	}

	if err := h.essays.RejectSuggestion(c.Request.Context(), principal, essayID, c.Param("proposalId")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}
