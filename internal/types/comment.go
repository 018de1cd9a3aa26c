package types

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a reviewer note attached to one step of a session.
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null;column:session_id" json:"session_id"`
	StepID    string    `gorm:"not null;column:step_id" json:"step_id"`
	Body      string    `gorm:"not null;column:body" json:"body"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Comment) TableName() string {
	return "comment"
}
