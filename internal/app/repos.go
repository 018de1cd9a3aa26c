package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	LoginToken   repos.LoginTokenRepo
	WizardConfig repos.WizardConfigRepo
	Rubric       repos.RubricRepo
	Session      repos.SessionRepo
	Answer       repos.AnswerRepo
	Feedback     repos.FeedbackRepo
	Comment      repos.CommentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		LoginToken:   repos.NewLoginTokenRepo(db, log),
		WizardConfig: repos.NewWizardConfigRepo(db, log),
		Rubric:       repos.NewRubricRepo(db, log),
		Session:      repos.NewSessionRepo(db, log),
		Answer:       repos.NewAnswerRepo(db, log),
		Feedback:     repos.NewFeedbackRepo(db, log),
		Comment:      repos.NewCommentRepo(db, log),
	}
}
