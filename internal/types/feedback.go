package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// FeedbackRecord is the outcome of one evaluation run for one step.
// Prior rows for the same (session, step) are deleted before a new one
// is inserted, so the current feedback for a step is always a single
// unambiguous row.
type FeedbackRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;index:idx_feedback_session_step;not null;column:session_id" json:"session_id"`
	StepID    string         `gorm:"index:idx_feedback_session_step;not null;column:step_id" json:"step_id"`
	Verdict   string         `gorm:"not null;column:verdict" json:"verdict"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (FeedbackRecord) TableName() string {
	return "feedback"
}
