package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type RubricRepo interface {
	GetByStep(ctx context.Context, tx *gorm.DB, wizardID string, version int, stepID string) (*types.Rubric, error)
	// Upsert is seeder-only; the runtime never writes rubrics.
	Upsert(ctx context.Context, tx *gorm.DB, rubric *types.Rubric) error
}

type rubricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRubricRepo(db *gorm.DB, baseLog *logger.Logger) RubricRepo {
	return &rubricRepo{db: db, log: baseLog.With("repo", "RubricRepo")}
}

func (rr *rubricRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return rr.db
}

func (rr *rubricRepo) GetByStep(ctx context.Context, tx *gorm.DB, wizardID string, version int, stepID string) (*types.Rubric, error) {
	var rubric types.Rubric
	err := rr.conn(tx).WithContext(ctx).
		Where("id = ?", types.RubricID(wizardID, version, stepID)).
		First(&rubric).Error
	if err != nil {
		return nil, err
	}
	return &rubric, nil
}

func (rr *rubricRepo) Upsert(ctx context.Context, tx *gorm.DB, rubric *types.Rubric) error {
	return rr.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"wizard_id", "version", "step_id", "json", "updated_at"}),
		}).
		Create(rubric).Error
}
