package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemap-backend/internal/http/response"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) RequestLogin(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	result, err := ah.authService.RequestLogin(c.Request.Context(), req.Email)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	payload := gin.H{"ok": true}
	if result.Token != "" {
		payload["token"] = result.Token
	}
	response.RespondOK(c, payload)
}

func (ah *AuthHandler) VerifyLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	result, err := ah.authService.VerifyLogin(c.Request.Context(), req.Token)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}
