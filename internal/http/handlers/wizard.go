package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemap-backend/internal/http/response"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/services"
)

type WizardHandler struct {
	wizardService  services.WizardService
	defaultWizard  string
	defaultVersion int
}

func NewWizardHandler(wizardService services.WizardService, defaultWizard string, defaultVersion int) *WizardHandler {
	return &WizardHandler{
		wizardService:  wizardService,
		defaultWizard:  defaultWizard,
		defaultVersion: defaultVersion,
	}
}

// Get returns the stored wizard definition for client rendering.
// wizardId and version query params fall back to the configured
// defaults so the standard client needs neither.
func (wh *WizardHandler) Get(c *gin.Context) {
	wizardID := c.Query("wizardId")
	if wizardID == "" {
		wizardID = wh.defaultWizard
	}
	version := wh.defaultVersion
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
			return
		}
		version = v
	}

	raw, err := wh.wizardService.RawConfig(c.Request.Context(), wizardID, version)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"wizardId": wizardID,
		"version":  version,
		"config":   json.RawMessage(raw),
	})
}
