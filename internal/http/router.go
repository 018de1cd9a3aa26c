package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursemap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemap-backend/internal/http/middleware"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler
	WizardHandler  *httpH.WizardHandler
	SessionHandler *httpH.SessionHandler
	UploadHandler  *httpH.UploadHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/request", cfg.AuthHandler.RequestLogin)
			api.POST("/auth/verify", cfg.AuthHandler.VerifyLogin)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.Me)
		}

		// Wizard definition
		if cfg.WizardHandler != nil {
			protected.GET("/wizard", cfg.WizardHandler.Get)
		}

		// Sessions
		if cfg.SessionHandler != nil {
			protected.POST("/session", cfg.SessionHandler.Create)
			protected.GET("/session/:id", cfg.SessionHandler.Get)
			protected.POST("/session/:id/comment", cfg.SessionHandler.AddComment)
			protected.POST("/submit", cfg.SessionHandler.Submit)
		}

		// Uploads
		if cfg.UploadHandler != nil {
			protected.POST("/upload/url", cfg.UploadHandler.CreateURL)
		}
	}

	return r
}
