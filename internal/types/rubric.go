package types

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Rubric is the evaluation criteria blob for one step of one wizard
// version. Opaque to the engine; handed to the judge verbatim.
type Rubric struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	WizardID  string         `gorm:"index;not null;column:wizard_id" json:"wizard_id"`
	Version   int            `gorm:"not null;column:version" json:"version"`
	StepID    string         `gorm:"not null;column:step_id" json:"step_id"`
	JSON      datatypes.JSON `gorm:"column:json" json:"json"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Rubric) TableName() string {
	return "rubric"
}

func RubricID(wizardID string, version int, stepID string) string {
	return fmt.Sprintf("%s:%d:%s", wizardID, version, stepID)
}
