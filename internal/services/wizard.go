package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/repos"
	"github.com/yungbote/coursemap-backend/internal/types"
	"github.com/yungbote/coursemap-backend/internal/wizard"
)

// WizardService resolves stored wizard configs into parsed definitions.
// Published definitions are immutable, so parses are cached for the
// process lifetime.
type WizardService interface {
	Definition(ctx context.Context, wizardID string, version int) (*wizard.Definition, error)
	RawConfig(ctx context.Context, wizardID string, version int) (datatypes.JSON, error)
	Rubric(ctx context.Context, wizardID string, version int, stepID string) (*types.Rubric, error)
}

type wizardService struct {
	db         *gorm.DB
	log        *logger.Logger
	configRepo repos.WizardConfigRepo
	rubricRepo repos.RubricRepo

	mu    sync.RWMutex
	cache map[string]*wizard.Definition
}

func NewWizardService(db *gorm.DB, log *logger.Logger, configRepo repos.WizardConfigRepo, rubricRepo repos.RubricRepo) WizardService {
	return &wizardService{
		db:         db,
		log:        log.With("service", "WizardService"),
		configRepo: configRepo,
		rubricRepo: rubricRepo,
		cache:      make(map[string]*wizard.Definition),
	}
}

func (ws *wizardService) Definition(ctx context.Context, wizardID string, version int) (*wizard.Definition, error) {
	key := types.WizardConfigID(wizardID, version)

	ws.mu.RLock()
	def, ok := ws.cache[key]
	ws.mu.RUnlock()
	if ok {
		return def, nil
	}

	cfg, err := ws.configRepo.Get(ctx, nil, wizardID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("wizard %s not found", key))
		}
		return nil, err
	}

	def, err = wizard.Parse(cfg.JSON)
	if err != nil {
		// A stored config that fails validation is a seeding defect.
		ws.log.Error("Stored wizard config invalid", "wizard", key, "error", err)
		return nil, fmt.Errorf("wizard %s: %w", key, err)
	}

	ws.mu.Lock()
	ws.cache[key] = def
	ws.mu.Unlock()
	return def, nil
}

func (ws *wizardService) RawConfig(ctx context.Context, wizardID string, version int) (datatypes.JSON, error) {
	cfg, err := ws.configRepo.Get(ctx, nil, wizardID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("wizard %s not found", types.WizardConfigID(wizardID, version)))
		}
		return nil, err
	}
	return cfg.JSON, nil
}

// Rubric returns nil (not an error) when no rubric is bound to the
// step: an ungated step simply has nothing to evaluate against.
func (ws *wizardService) Rubric(ctx context.Context, wizardID string, version int, stepID string) (*types.Rubric, error) {
	rubric, err := ws.rubricRepo.GetByStep(ctx, nil, wizardID, version, stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rubric, nil
}
