package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusInProgress = "in_progress"
	SessionStatusComplete   = "complete"
)

// Session is one user's run through a wizard version. StepID always
// names a step of the bound wizard; after completion it stays pinned
// to the last step.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	WizardID  string    `gorm:"not null;column:wizard_id" json:"wizard_id"`
	Version   int       `gorm:"not null;column:version" json:"version"`
	StepID    string    `gorm:"not null;column:step_id" json:"step_id"`
	Status    string    `gorm:"not null;column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Session) TableName() string {
	return "session"
}
