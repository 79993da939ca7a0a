package server

import (
	"net/http"

	"github.com/AdmitPathLabs/admitpath/backend/internal/ping"
	"github.com/gin-gonic/gin"
)

type pingPayload struct {
	PingID           string `json:"ping_id"`
	ApplicationID    string `json:"application_id"`
	StudentID        string `json:"student_id"`
	ConsultantID     string `json:"consultant_id"`
	College          string `json:"college"`
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	Status           string `json:"status"`
	CreatedAtSeconds int64  `json:"created_at_s"`
	UpdatedAtSeconds int64  `json:"updated_at_s"`
}

func toPingPayload(record ping.Ping) pingPayload {
	return pingPayload{
		PingID:           record.PingID,
		ApplicationID:    record.ApplicationID,
		StudentID:        record.StudentID,
		ConsultantID:     record.ConsultantID,
		College:          record.College,
		Question:         record.Question,
		Answer:           record.Answer,
		Status:           record.Status,
		CreatedAtSeconds: record.CreatedAtSeconds,
		UpdatedAtSeconds: record.UpdatedAtSeconds,
	}
}

type createPingPayload struct {
	ApplicationID string `json:"application_id"`
	College       string `json:"college"`
	Question      string `json:"question"`
}

func (h *httpHandler) handleCreatePing(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request createPingPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.pings.Create(c.Request.Context(), principal, ping.Draft{
		ApplicationID: request.ApplicationID,
		College:       request.College,
		Question:      request.Question,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPingPayload(record))
}

func (h *httpHandler) handleListPings(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	records, err := h.pings.List(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]pingPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toPingPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"pings": payloads})
}

type answerPingPayload struct {
	Answer string `json:"answer"`
}

func (h *httpHandler) handleAnswerPing(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request answerPingPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.pings.Answer(c.Request.Context(), principal, c.Param("pingId"), request.Answer)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPingPayload(record))
}

func (h *httpHandler) handleClosePing(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	record, err := h.pings.Close(c.Request.Context(), principal, c.Param("pingId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPingPayload(record))
}
