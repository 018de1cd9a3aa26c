package app

import (
	httpH "github.com/yungbote/coursemap-backend/internal/http/handlers"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

type Handlers struct {
	Auth    *httpH.AuthHandler
	User    *httpH.UserHandler
	Wizard  *httpH.WizardHandler
	Session *httpH.SessionHandler
	Upload  *httpH.UploadHandler
	Health  *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, s Services) Handlers {
	log.Info("Wiring handlers...")

	h := Handlers{
		Auth:    httpH.NewAuthHandler(s.Auth),
		User:    httpH.NewUserHandler(),
		Wizard:  httpH.NewWizardHandler(s.Wizard, cfg.DefaultWizard, cfg.DefaultVersion),
		Session: httpH.NewSessionHandler(s.Session, cfg.DefaultWizard, cfg.DefaultVersion),
		Health:  httpH.NewHealthHandler(),
	}
	if s.Upload != nil {
		h.Upload = httpH.NewUploadHandler(s.Upload)
	}
	return h
}
