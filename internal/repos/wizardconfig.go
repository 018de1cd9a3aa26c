package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type WizardConfigRepo interface {
	Get(ctx context.Context, tx *gorm.DB, wizardID string, version int) (*types.WizardConfig, error)
	// Upsert is seeder-only; the runtime never writes configs.
	Upsert(ctx context.Context, tx *gorm.DB, cfg *types.WizardConfig) error
}

type wizardConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWizardConfigRepo(db *gorm.DB, baseLog *logger.Logger) WizardConfigRepo {
	return &wizardConfigRepo{db: db, log: baseLog.With("repo", "WizardConfigRepo")}
}

func (wr *wizardConfigRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return wr.db
}

func (wr *wizardConfigRepo) Get(ctx context.Context, tx *gorm.DB, wizardID string, version int) (*types.WizardConfig, error) {
	var cfg types.WizardConfig
	err := wr.conn(tx).WithContext(ctx).
		Where("id = ?", types.WizardConfigID(wizardID, version)).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (wr *wizardConfigRepo) Upsert(ctx context.Context, tx *gorm.DB, cfg *types.WizardConfig) error {
	return wr.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"wizard_id", "version", "json", "updated_at"}),
		}).
		Create(cfg).Error
}
