package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is an append-only audit record. Success starts false for
// attempts waiting on a second factor and is flipped when the factor is
// verified; LoggedOut is the only other field mutated after insert.
type LoginAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	AccountID AccountID `gorm:"type:uuid;index" db:"account_id" json:"accountId"`
	IP        string    `gorm:"type:text" db:"ip" json:"ip"`
	UserAgent string    `gorm:"type:text" db:"user_agent" json:"userAgent"`
	Device    string    `gorm:"type:text" db:"device" json:"device"`
	Success   bool      `gorm:"not null;default:false" db:"success" json:"success"`
	LoggedOut bool      `gorm:"not null;default:false" db:"logged_out" json:"loggedOut"`
	// ChallengeID correlates a pending attempt with its second-factor
	// verification call, so concurrent logins never complete each other.
	ChallengeID *string   `gorm:"type:text;index" db:"challenge_id" json:"-"`
	CreatedAt   time.Time `gorm:"not null;index" db:"created_at" json:"createdAt"`
}

func (LoginAttempt) TableName() string { return "login_attempts" }
