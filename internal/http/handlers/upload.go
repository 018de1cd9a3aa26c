package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemap-backend/internal/http/middleware"
	"github.com/yungbote/coursemap-backend/internal/http/response"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/services"
)

type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

func (uh *UploadHandler) CreateURL(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"contentType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	signed, err := uh.uploadService.CreateUploadURL(c.Request.Context(), user.ID, req.Filename, req.ContentType)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, signed)
}
