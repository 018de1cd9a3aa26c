package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type FeedbackRepo interface {
	// DeleteByStep clears prior evaluation rows so the step's current
	// feedback is always a single row.
	DeleteByStep(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, stepID string) error
	Create(ctx context.Context, tx *gorm.DB, record *types.FeedbackRecord) error
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.FeedbackRecord, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (fr *feedbackRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return fr.db
}

func (fr *feedbackRepo) DeleteByStep(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, stepID string) error {
	return fr.conn(tx).WithContext(ctx).
		Where("session_id = ? AND step_id = ?", sessionID, stepID).
		Delete(&types.FeedbackRecord{}).Error
}

func (fr *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, record *types.FeedbackRecord) error {
	return fr.conn(tx).WithContext(ctx).Create(record).Error
}

func (fr *feedbackRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.FeedbackRecord, error) {
	var results []*types.FeedbackRecord
	err := fr.conn(tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
