package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/accounts"
	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	"github.com/AdmitPathLabs/admitpath/backend/internal/essay"
	"github.com/AdmitPathLabs/admitpath/backend/internal/match"
	"github.com/AdmitPathLabs/admitpath/backend/internal/ping"
	"github.com/AdmitPathLabs/admitpath/backend/internal/tasks"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalContextKey = "admitpath_principal"

var (
	errMissingTokenIssuer     = errors.New("token issuer dependency required")
	errMissingAccountsService = errors.New("accounts service dependency required")
	errMissingEssayService    = errors.New("essay service dependency required")
	errMissingMatchService    = errors.New("match service dependency required")
	errMissingPingService     = errors.New("ping service dependency required")
	errMissingTasksService    = errors.New("tasks service dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// Dependencies carries every service the HTTP surface dispatches to.
type Dependencies struct {
	TokenIssuer *auth.TokenIssuer
	Accounts    *accounts.Service
	Essays      *essay.Service
	Match       *match.Service
	Pings       *ping.Service
	Tasks       *tasks.Service
	Logger      *zap.Logger
}

// NewHTTPHandler validates the dependencies and assembles the router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountsService
	}
	if deps.Essays == nil {
		return nil, errMissingEssayService
	}
	if deps.Match == nil {
		return nil, errMissingMatchService
	}
	if deps.Pings == nil {
		return nil, errMissingPingService
	}
	if deps.Tasks == nil {
		return nil, errMissingTasksService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:   deps.TokenIssuer,
		accounts: deps.Accounts,
		essays:   deps.Essays,
		match:    deps.Match,
		pings:    deps.Pings,
		tasks:    deps.Tasks,
		logger:   logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/review", handler.handleCreateEssay)
	protected.GET("/review/:essayId", handler.handleGetEssay)
	protected.PUT("/review/:essayId", handler.handleReplaceResponse)
	protected.GET("/review/:essayId/comments", handler.handleListComments)
	protected.POST("/review/:essayId/comments", handler.handleCreateComment)
	protected.POST("/review/:essayId/comments/:commentId/resolve", handler.handleResolveComment)
	protected.GET("/review/:essayId/strikethroughs", handler.handleListStrikethroughs)
	protected.POST("/review/:essayId/strikethroughs", handler.handleCreateStrikethrough)
	protected.POST("/review/:essayId/strikethroughs/:proposalId/accept", handler.handleAcceptStrikethrough)
	protected.POST("/review/:essayId/strikethroughs/:proposalId/reject", handler.handleRejectStrikethrough)
	protected.GET("/review/:essayId/additions", handler.handleListAdditions)
	protected.POST("/review/:essayId/additions", handler.handleCreateAddition)
	protected.POST("/review/:essayId/additions/:proposalId/accept", handler.handleAcceptAddition)
	protected.POST("/review/:essayId/additions/:proposalId/reject", handler.handleRejectAddition)
	protected.GET("/review/:essayId/suggestions", handler.handleListSuggestions)
	protected.POST("/review/:essayId/suggestions", handler.handleCreateSuggestion)
	protected.POST("/review/:essayId/suggestions/:proposalId/accept", handler.handleAcceptSuggestion)
	protected.POST("/review/:essayId/suggestions/:proposalId/reject", handler.handleRejectSuggestion)

	protected.POST("/quiz/submit", handler.handleSubmitQuiz)
	protected.GET("/quiz/responses", handler.handleQuizResponses)
	protected.GET("/quiz/check-completion", handler.handleQuizCompletion)

	protected.POST("/matching/start", handler.handleStartMatching)
	protected.GET("/matching/status", handler.handleMatchingStatus)

	protected.GET("/applications", handler.handleListApplications)
	protected.POST("/applications", handler.handleCreateApplication)

	protected.GET("/pings", handler.handleListPings)
	protected.POST("/pings", handler.handleCreatePing)
	protected.POST("/pings/:pingId/answer", handler.handleAnswerPing)
	protected.POST("/pings/:pingId/close", handler.handleClosePing)

	protected.GET("/tasks", handler.handleListTasks)
	protected.POST("/tasks", handler.handleCreateTask)
	protected.PATCH("/tasks/:taskId", handler.handleUpdateTask)
	protected.POST("/tasks/:taskId/complete", handler.handleCompleteTask)
	protected.DELETE("/tasks/:taskId", handler.handleDeleteTask)

	return router, nil
}

type httpHandler struct {
	tokens   *auth.TokenIssuer
	accounts *accounts.Service
	essays   *essay.Service
	match    *match.Service
	pings    *ping.Service
	tasks    *tasks.Service
	logger   *zap.Logger
}

type registerRequestPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), accounts.RegisterRequest{
		Email:       request.Email,
		Password:    request.Password,
		Role:        auth.Role(request.Role),
		DisplayName: request.DisplayName,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
			return
		}
		h.writeServiceError(c, err)
		return
	}

	h.issueToken(c, auth.Principal{UserID: user.UserID, Role: auth.Role(user.Role)}, http.StatusCreated)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.writeServiceError(c, err)
		return
	}

	h.issueToken(c, auth.Principal{UserID: user.UserID, Role: auth.Role(user.Role)}, http.StatusOK)
}

func (h *httpHandler) issueToken(c *gin.Context, principal auth.Principal, status int) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), principal)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(status, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Role:        principal.Role.String(),
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	principal, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(principalContextKey, principal)
	c.Next()
}

func (h *httpHandler) principal(c *gin.Context) (auth.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Principal{}, false
	}
	principal, ok := value.(auth.Principal)
	if !ok || principal.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Principal{}, false
	}
	return principal, true
}

type coded interface {
	Code() string
}

// writeServiceError maps service sentinels onto HTTP statuses; anything
// unexpected surfaces as a 500 carrying the service error code.
func (h *httpHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, essay.ErrInvalidRange),
		errors.Is(err, essay.ErrInvalidSuggestionKind),
		errors.Is(err, accounts.ErrInvalidInput),
		errors.Is(err, match.ErrInvalidInput),
		errors.Is(err, match.ErrQuizIncomplete),
		errors.Is(err, match.ErrSelectionIncomplete),
		errors.Is(err, match.ErrMatchingDone),
		errors.Is(err, match.ErrNoApplications),
		errors.Is(err, ping.ErrInvalidInput),
		errors.Is(err, tasks.ErrInvalidInput),
		errors.Is(err, tasks.ErrInvalidStatus),
		errors.Is(err, tasks.ErrInvalidPriority):
		c.JSON(http.StatusBadRequest, gin.H{"error": errorCode(err)})
	case errors.Is(err, essay.ErrNotFound),
		errors.Is(err, accounts.ErrUserNotFound),
		errors.Is(err, match.ErrProfileNotFound),
		errors.Is(err, ping.ErrNotFound),
		errors.Is(err, tasks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errorCode(err)})
	case errors.Is(err, essay.ErrForbidden),
		errors.Is(err, match.ErrForbidden),
		errors.Is(err, ping.ErrForbidden),
		errors.Is(err, tasks.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": errorCode(err)})
	case errors.Is(err, essay.ErrConflict),
		errors.Is(err, ping.ErrClosed):
		c.JSON(http.StatusConflict, gin.H{"error": errorCode(err)})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err)})
	}
}

func errorCode(err error) string {
	var serviceErr coded
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return "internal_error"
}
