package types

import (
	"time"

	"github.com/google/uuid"
)

// LoginToken is one magic-link grant. The mailed token is
// "<id>.<secret>"; only a bcrypt hash of the secret is stored.
type LoginToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	SecretHash string     `gorm:"not null;column:secret_hash" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (LoginToken) TableName() string {
	return "login_token"
}
