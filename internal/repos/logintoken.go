package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type LoginTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.LoginToken) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LoginToken, error)
	// MarkConsumed burns a token; zero rows means it was already used.
	MarkConsumed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) error
}

type loginTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoginTokenRepo(db *gorm.DB, baseLog *logger.Logger) LoginTokenRepo {
	return &loginTokenRepo{db: db, log: baseLog.With("repo", "LoginTokenRepo")}
}

func (lr *loginTokenRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return lr.db
}

func (lr *loginTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.LoginToken) error {
	return lr.conn(tx).WithContext(ctx).Create(token).Error
}

func (lr *loginTokenRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LoginToken, error) {
	var token types.LoginToken
	err := lr.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (lr *loginTokenRepo) MarkConsumed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	res := lr.conn(tx).WithContext(ctx).
		Model(&types.LoginToken{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (lr *loginTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) error {
	return lr.conn(tx).WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&types.LoginToken{}).Error
}
