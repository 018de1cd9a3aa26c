package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.Session) error
	// GetByIDForUser scopes the lookup to the owner; a foreign session
	// surfaces as gorm.ErrRecordNotFound, indistinguishable from absence.
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Session, error)
	// AdvancePointer applies (stepID, status) in one guarded update.
	// fromStepID is the pointer observed at the start of the transition;
	// false means another transition moved it first.
	AdvancePointer(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStepID, toStepID, status string) (bool, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (sr *sessionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return sr.db
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) error {
	return sr.conn(tx).WithContext(ctx).Create(session).Error
}

func (sr *sessionRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Session, error) {
	var session types.Session
	err := sr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (sr *sessionRepo) AdvancePointer(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStepID, toStepID, status string) (bool, error) {
	res := sr.conn(tx).WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ? AND step_id = ?", id, fromStepID).
		Updates(map[string]interface{}{
			"step_id": toStepID,
			"status":  status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
