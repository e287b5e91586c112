package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountID = uuid.UUID

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Second-factor type tags carried in requests and challenge responses.
const (
	FactorEmail = "email"
	FactorTOTP  = "totp"
)

type Account struct {
	ID    AccountID `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email string    `gorm:"type:citext;uniqueIndex:ux_accounts_email" db:"email" json:"email"`
	// Password is a bcrypt hash, or transiently a legacy plaintext secret
	// that gets migrated on the next successful login.
	Password *string       `gorm:"type:text" db:"password" json:"-"`
	Status   AccountStatus `gorm:"type:text;not null;default:'inactive'" db:"status" json:"status"`
	Role     Role          `gorm:"type:text;not null;default:'user'" db:"role" json:"role"`

	EmailOTPEnabled bool       `gorm:"not null;default:false" db:"email_otp_enabled" json:"emailOtpEnabled"`
	EmailOTPCode    *string    `gorm:"type:text" db:"email_otp_code" json:"-"`
	EmailOTPExpiry  *time.Time `db:"email_otp_expiry" json:"-"`

	// TOTPSecret is only trusted once TOTPEnabled is true, which is set after
	// the first successful verification against that secret.
	TOTPEnabled bool    `gorm:"not null;default:false" db:"totp_enabled" json:"totpEnabled"`
	TOTPSecret  *string `gorm:"type:text" db:"totp_secret" json:"-"`

	LoginAlerts bool       `gorm:"not null;default:true" db:"login_alerts" json:"loginAlerts"`
	LastLogin   *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (Account) TableName() string { return "accounts" }

// TwoFactorState is the full second-factor configuration of an account. It is
// read and written as a unit so code clearing and enable flips stay atomic
// with respect to each other.
type TwoFactorState struct {
	EmailOTPEnabled bool
	EmailOTPCode    *string
	EmailOTPExpiry  *time.Time
	TOTPEnabled     bool
	TOTPSecret      *string
}

func (a *Account) TwoFactor() TwoFactorState {
	return TwoFactorState{
		EmailOTPEnabled: a.EmailOTPEnabled,
		EmailOTPCode:    a.EmailOTPCode,
		EmailOTPExpiry:  a.EmailOTPExpiry,
		TOTPEnabled:     a.TOTPEnabled,
		TOTPSecret:      a.TOTPSecret,
	}
}

func (a *Account) ApplyTwoFactor(s TwoFactorState) {
	a.EmailOTPEnabled = s.EmailOTPEnabled
	a.EmailOTPCode = s.EmailOTPCode
	a.EmailOTPExpiry = s.EmailOTPExpiry
	a.TOTPEnabled = s.TOTPEnabled
	a.TOTPSecret = s.TOTPSecret
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// SecondFactorMethod returns the factor challenged at login. TOTP takes
// priority over email OTP when both are enabled; empty means no challenge.
func (a *Account) SecondFactorMethod() string {
	switch {
	case a.TOTPEnabled:
		return FactorTOTP
	case a.EmailOTPEnabled:
		return FactorEmail
	default:
		return ""
	}
}
