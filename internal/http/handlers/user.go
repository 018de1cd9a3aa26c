package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemap-backend/internal/http/middleware"
	"github.com/yungbote/coursemap-backend/internal/http/response"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func (uh *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("not authenticated"))
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}
