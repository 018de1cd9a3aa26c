package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Answer is one submitted value for one question. Rows are append-only;
// the current value for a question is the most recently created row.
// Value is opaque structured data the engine passes through untouched.
type Answer struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  uuid.UUID      `gorm:"type:uuid;index:idx_answer_session_step;not null;column:session_id" json:"session_id"`
	StepID     string         `gorm:"index:idx_answer_session_step;not null;column:step_id" json:"step_id"`
	QuestionID string         `gorm:"not null;column:question_id" json:"question_id"`
	Value      datatypes.JSON `gorm:"column:value" json:"value"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Answer) TableName() string {
	return "answer"
}
