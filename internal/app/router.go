package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/yungbote/coursemap-backend/internal/http"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		AuthHandler:    h.Auth,
		AuthMiddleware: mw.Auth,
		UserHandler:    h.User,
		WizardHandler:  h.Wizard,
		SessionHandler: h.Session,
		UploadHandler:  h.Upload,
		HealthHandler:  h.Health,
	})
}
