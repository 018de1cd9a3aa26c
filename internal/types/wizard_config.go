package types

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// WizardConfig stores one published wizard definition. A published
// (wizard_id, version) is immutable at runtime; new behavior ships as
// a new version written by the seeder.
type WizardConfig struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	WizardID  string         `gorm:"index;not null;column:wizard_id" json:"wizard_id"`
	Version   int            `gorm:"not null;column:version" json:"version"`
	JSON      datatypes.JSON `gorm:"column:json" json:"json"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (WizardConfig) TableName() string {
	return "wizard_config"
}

func WizardConfigID(wizardID string, version int) string {
	return fmt.Sprintf("%s:%d", wizardID, version)
}
