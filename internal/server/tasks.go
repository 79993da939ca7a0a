package server

import (
	"net/http"

	"github.com/AdmitPathLabs/admitpath/backend/internal/tasks"
	"github.com/gin-gonic/gin"
)

type taskPayload struct {
	TaskID               string `json:"task_id"`
	StudentID            string `json:"student_id"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	DueDateSeconds       int64  `json:"due_date_s"`
	Status               string `json:"status"`
	Priority             string `json:"priority"`
	Category             string `json:"category"`
	RelatedApplicationID string `json:"related_application_id"`
	CreatedAtSeconds     int64  `json:"created_at_s"`
	UpdatedAtSeconds     int64  `json:"updated_at_s"`
	CompletedAtSeconds   int64  `json:"completed_at_s"`
}

func toTaskPayload(record tasks.Task) taskPayload {
	return taskPayload{
		TaskID:               record.TaskID,
		StudentID:            record.StudentID,
		Title:                record.Title,
		Description:          record.Description,
		DueDateSeconds:       record.DueDateSeconds,
		Status:               record.Status,
		Priority:             record.Priority,
		Category:             record.Category,
		RelatedApplicationID: record.RelatedApplicationID,
		CreatedAtSeconds:     record.CreatedAtSeconds,
		UpdatedAtSeconds:     record.UpdatedAtSeconds,
		CompletedAtSeconds:   record.CompletedAtSeconds,
	}
}

type createTaskPayload struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	DueDateSeconds       int64  `json:"due_date_s"`
	Priority             string `json:"priority"`
	Category             string `json:"category"`
	RelatedApplicationID string `json:"related_application_id"`
}

func (h *httpHandler) handleCreateTask(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request createTaskPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.tasks.Create(c.Request.Context(), principal, tasks.Draft{
		Title:                request.Title,
		Description:          request.Description,
		DueDateSeconds:       request.DueDateSeconds,
		Priority:             tasks.Priority(request.Priority),
		Category:             request.Category,
		RelatedApplicationID: request.RelatedApplicationID,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskPayload(record))
}

func (h *httpHandler) handleListTasks(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	records, err := h.tasks.List(c.Request.Context(), principal, tasks.Filter{
		Status:   tasks.Status(c.Query("status")),
		Priority: tasks.Priority(c.Query("priority")),
		Category: c.Query("category"),
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]taskPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toTaskPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": payloads})
}

type updateTaskPayload struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	DueDateSeconds       *int64  `json:"due_date_s"`
	Status               *string `json:"status"`
	Priority             *string `json:"priority"`
	Category             *string `json:"category"`
	RelatedApplicationID *string `json:"related_application_id"`
}

func (h *httpHandler) handleUpdateTask(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request updateTaskPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	update := tasks.Update{
		Title:          request.Title,
		Description:    request.Description,
		DueDateSeconds: request.DueDateSeconds,
		Category:       request.Category,
	}
	if request.Status != nil {
		status := tasks.Status(*request.Status)
		update.Status = &status
	}
	if request.Priority != nil {
		priority := tasks.Priority(*request.Priority)
		update.Priority = &priority
	}
	if request.RelatedApplicationID != nil {
		update.RelatedApplicationID = request.RelatedApplicationID
	}

	record, err := h.tasks.Apply(c.Request.Context(), principal, c.Param("taskId"), update)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskPayload(record))
}

func (h *httpHandler) handleCompleteTask(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	record, err := h.tasks.Complete(c.Request.Context(), principal, c.Param("taskId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskPayload(record))
}

func (h *httpHandler) handleDeleteTask(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), principal, c.Param("taskId")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
