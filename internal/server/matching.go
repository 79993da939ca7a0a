package server

import (
	"net/http"

	"github.com/AdmitPathLabs/admitpath/backend/internal/match"
	"github.com/gin-gonic/gin"
)

type quizSubmissionPayload struct {
	Subjects             []string `json:"subjects"`
	Competitions         []string `json:"competitions"`
	Activities           []string `json:"activities"`
	OtherSubjects        string   `json:"other_subjects"`
	OtherActivities      string   `json:"other_activities"`
	HasPublishedResearch bool     `json:"has_published_research"`
	IsFirstGeneration    bool     `json:"is_first_generation"`
	Gender               string   `json:"gender"`
	IncomeBracket        string   `json:"income_bracket"`
	CitizenshipStatus    string   `json:"citizenship_status"`
	IsUnderrepresented   bool     `json:"is_underrepresented_group"`
}

type profilePayload struct {
	UserID               string   `json:"user_id"`
	Role                 string   `json:"role"`
	Subjects             []string `json:"subjects"`
	Competitions         []string `json:"competitions"`
	Activities           []string `json:"activities"`
	OtherSubjects        string   `json:"other_subjects"`
	OtherActivities      string   `json:"other_activities"`
	HasPublishedResearch bool     `json:"has_published_research"`
	IsFirstGeneration    bool     `json:"is_first_generation"`
	Gender               string   `json:"gender"`
	IncomeBracket        string   `json:"income_bracket"`
	CitizenshipStatus    string   `json:"citizenship_status"`
	IsUnderrepresented   bool     `json:"is_underrepresented_group"`
	UpdatedAtSeconds     int64    `json:"updated_at_s"`
}

func toProfilePayload(record match.MatchProfile) profilePayload {
	return profilePayload{
		UserID:               record.UserID,
		Role:                 record.Role,
		Subjects:             record.Subjects,
		Competitions:         record.Competitions,
		Activities:           record.Activities,
		OtherSubjects:        record.OtherSubjects,
		OtherActivities:      record.OtherActivities,
		HasPublishedResearch: record.HasPublishedResearch,
		IsFirstGeneration:    record.IsFirstGeneration,
		Gender:               record.Gender,
		IncomeBracket:        record.IncomeBracket,
		CitizenshipStatus:    record.CitizenshipStatus,
		IsUnderrepresented:   record.IsUnderrepresented,
		UpdatedAtSeconds:     record.UpdatedAtSeconds,
	}
}

type applicationPayload struct {
	ApplicationID    string  `json:"application_id"`
	StudentID        string  `json:"student_id"`
	CollegeName      string  `json:"college_name"`
	MajorCategory    string  `json:"major_category"`
	MajorName        string  `json:"major_name"`
	ConsultantID     string  `json:"consultant_id"`
	MatchScore       float64 `json:"match_score"`
	CreatedAtSeconds int64   `json:"created_at_s"`
}

func toApplicationPayload(record match.CollegeApplication) applicationPayload {
	return applicationPayload{
		ApplicationID:    record.ApplicationID,
		StudentID:        record.StudentID,
		CollegeName:      record.CollegeName,
		MajorCategory:    record.MajorCategory,
		MajorName:        record.MajorName,
		ConsultantID:     record.ConsultantID,
		MatchScore:       record.MatchScore,
		CreatedAtSeconds: record.CreatedAtSeconds,
	}
}

func (h *httpHandler) handleSubmitQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request quizSubmissionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.match.SubmitQuiz(c.Request.Context(), principal, match.QuizSubmission{
		Subjects:             request.Subjects,
		Competitions:         request.Competitions,
		Activities:           request.Activities,
		OtherSubjects:        request.OtherSubjects,
		OtherActivities:      request.OtherActivities,
		HasPublishedResearch: request.HasPublishedResearch,
		IsFirstGeneration:    request.IsFirstGeneration,
		Gender:               request.Gender,
		IncomeBracket:        request.IncomeBracket,
		CitizenshipStatus:    request.CitizenshipStatus,
		IsUnderrepresented:   request.IsUnderrepresented,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfilePayload(profile))
}

func (h *httpHandler) handleQuizResponses(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	profile, err := h.match.GetProfile(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfilePayload(profile))
}

func (h *httpHandler) handleQuizCompletion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	completed, err := h.match.QuizCompletion(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz_completed": completed})
}

func (h *httpHandler) handleStartMatching(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.match.StartMatching(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":              "matching completed",
		"applications_matched": result.ApplicationsMatched,
		"total_applications":   result.TotalApplications,
	})
}

func (h *httpHandler) handleMatchingStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	status, err := h.match.GetMatchingStatus(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	applications := make([]applicationPayload, 0, len(status.Applications))
	for _, record := range status.Applications {
		applications = append(applications, toApplicationPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{
		"matching_completed":   status.MatchingCompleted,
		"matched_applications": status.MatchedApplications,
		"total_applications":   status.TotalApplications,
		"applications":         applications,
	})
}

type createApplicationPayload struct {
	CollegeName   string `json:"college_name"`
	MajorCategory string `json:"major_category"`
	MajorName     string `json:"major_name"`
}

func (h *httpHandler) handleCreateApplication(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var request createApplicationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.match.CreateApplication(c.Request.Context(), principal, match.ApplicationDraft{
		CollegeName:   request.CollegeName,
		MajorCategory: request.MajorCategory,
		MajorName:     request.MajorName,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toApplicationPayload(record))
}

func (h *httpHandler) handleListApplications(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	records, err := h.match.ListApplications(c.Request.Context(), principal)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payloads := make([]applicationPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toApplicationPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"applications": payloads})
}
