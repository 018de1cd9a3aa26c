package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/coursemap-backend/internal/db"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/repos"
	"github.com/yungbote/coursemap-backend/internal/types"
	"github.com/yungbote/coursemap-backend/internal/wizard"
)

type seedFile struct {
	Wizard  map[string]any `yaml:"wizard"`
	Rubrics []seedRubric   `yaml:"rubrics"`
}

type seedRubric struct {
	StepID string         `yaml:"step_id"`
	JSON   map[string]any `yaml:"json"`
}

func main() {
	path := flag.String("file", "seed/coursemap.yaml", "path to the seed data file")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), log, *path); err != nil {
		log.Error("Seed failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if seed.Wizard == nil {
		return fmt.Errorf("seed file has no wizard block")
	}

	configJSON, err := json.Marshal(seed.Wizard)
	if err != nil {
		return fmt.Errorf("encode wizard config: %w", err)
	}
	def, err := wizard.Parse(configJSON)
	if err != nil {
		return fmt.Errorf("validate wizard config: %w", err)
	}
	for _, r := range seed.Rubrics {
		if _, ok := def.ResolveStep(r.StepID); !ok {
			return fmt.Errorf("rubric references unknown step %q", r.StepID)
		}
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	theDB := pg.DB()

	configRepo := repos.NewWizardConfigRepo(theDB, log)
	rubricRepo := repos.NewRubricRepo(theDB, log)

	if err := configRepo.Upsert(ctx, nil, &types.WizardConfig{
		ID:       types.WizardConfigID(def.WizardID, def.Version),
		WizardID: def.WizardID,
		Version:  def.Version,
		JSON:     datatypes.JSON(configJSON),
	}); err != nil {
		return fmt.Errorf("upsert wizard config: %w", err)
	}

	for _, r := range seed.Rubrics {
		rubricJSON, err := json.Marshal(r.JSON)
		if err != nil {
			return fmt.Errorf("encode rubric for step %s: %w", r.StepID, err)
		}
		if err := rubricRepo.Upsert(ctx, nil, &types.Rubric{
			ID:       types.RubricID(def.WizardID, def.Version, r.StepID),
			WizardID: def.WizardID,
			Version:  def.Version,
			StepID:   r.StepID,
			JSON:     datatypes.JSON(rubricJSON),
		}); err != nil {
			return fmt.Errorf("upsert rubric for step %s: %w", r.StepID, err)
		}
	}

	log.Info("Seeded wizard config and rubrics",
		"wizard_id", def.WizardID,
		"version", def.Version,
		"steps", len(def.Steps),
		"rubrics", len(seed.Rubrics),
	)
	return nil
}
