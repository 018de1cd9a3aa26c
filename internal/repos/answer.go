package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type AnswerRepo interface {
	AppendMany(ctx context.Context, tx *gorm.DB, answers []*types.Answer) error
	// ListBySession returns the complete history, oldest first.
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Answer, error)
	// LatestByStep derives the current value per question for one step.
	// This is the single place "latest" is defined; both the submit and
	// read paths go through it.
	LatestByStep(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, stepID string) (map[string]datatypes.JSON, error)
}

type answerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	return &answerRepo{db: db, log: baseLog.With("repo", "AnswerRepo")}
}

func (ar *answerRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *answerRepo) AppendMany(ctx context.Context, tx *gorm.DB, answers []*types.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return ar.conn(tx).WithContext(ctx).Create(&answers).Error
}

func (ar *answerRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Answer, error) {
	var results []*types.Answer
	err := ar.conn(tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *answerRepo) LatestByStep(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, stepID string) (map[string]datatypes.JSON, error) {
	var rows []*types.Answer
	err := ar.conn(tx).WithContext(ctx).
		Where("session_id = ? AND step_id = ?", sessionID, stepID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	latest := make(map[string]datatypes.JSON, len(rows))
	for _, row := range rows {
		latest[row.QuestionID] = row.Value
	}
	return latest, nil
}
