package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/services"
)

type Services struct {
	Auth    services.AuthService
	Wizard  services.WizardService
	Judge   services.Judge
	Session services.SessionService
	Upload  services.UploadService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients) Services {
	log.Info("Wiring services...")

	authService := services.NewAuthService(db, log, r.User, r.LoginToken, clients.SendGrid, services.AuthConfig{
		JWTSecret:  cfg.JWTSecretKey,
		AccessTTL:  cfg.AccessTokenTTL,
		LoginTTL:   cfg.LoginTokenTTL,
		AppBaseURL: cfg.AppBaseURL,
		Bypass:     cfg.AuthBypass,
	})

	wizardService := services.NewWizardService(db, log, r.WizardConfig, r.Rubric)
	judge := services.NewOpenAIJudge(log, clients.OpenAI)
	sessionService := services.NewSessionService(
		db, log,
		r.Session, r.Answer, r.Feedback, r.Comment,
		wizardService, judge, clients.Locker,
	)

	var uploadService services.UploadService
	if clients.Bucket != nil {
		uploadService = services.NewUploadService(log, clients.Bucket)
	}

	return Services{
		Auth:    authService,
		Wizard:  wizardService,
		Judge:   judge,
		Session: sessionService,
		Upload:  uploadService,
	}
}
