package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursemap-backend/internal/http/middleware"
	"github.com/yungbote/coursemap-backend/internal/http/response"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
	defaultWizard  string
	defaultVersion int
}

func NewSessionHandler(sessionService services.SessionService, defaultWizard string, defaultVersion int) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		defaultWizard:  defaultWizard,
		defaultVersion: defaultVersion,
	}
}

func (sh *SessionHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	var req struct {
		WizardID string `json:"wizardId"`
		Version  int    `json:"version"`
	}
	// Body is optional; an empty body starts the default wizard.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
			return
		}
	}
	if req.WizardID == "" {
		req.WizardID = sh.defaultWizard
	}
	if req.Version < 1 {
		req.Version = sh.defaultVersion
	}

	session, err := sh.sessionService.Start(c.Request.Context(), user.ID, req.WizardID, req.Version)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": session})
}

func (sh *SessionHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("invalid session id"))
		return
	}
	view, err := sh.sessionService.GetView(c.Request.Context(), user.ID, sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (sh *SessionHandler) Submit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	var req struct {
		SessionID string                  `json:"sessionId" binding:"required"`
		StepID    string                  `json:"stepId" binding:"required"`
		Answers   []services.SubmitAnswer `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("invalid session id"))
		return
	}

	result, err := sh.sessionService.SubmitStep(c.Request.Context(), user.ID, sessionID, req.StepID, req.Answers)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, result)
}

func (sh *SessionHandler) AddComment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("invalid session id"))
		return
	}
	var req struct {
		StepID string `json:"stepId"`
		Body   string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	comment, err := sh.sessionService.AddComment(c.Request.Context(), user.ID, sessionID, req.StepID, req.Body)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"comment": comment})
}
