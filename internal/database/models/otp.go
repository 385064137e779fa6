package models

import (
	"time"

	"github.com/google/uuid"
)

// OtpToken pairs a short-lived one-time code with a random session token.
// Both must be presented together to complete login or signup.
type OtpToken struct {
	Base
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Identifier   string    `gorm:"index" json:"identifier"` // email, phone, or username
	Code         string    `gorm:"index;not null" json:"-"`
	SessionToken string    `gorm:"index;not null" json:"-"`
	Used         bool      `gorm:"default:false" json:"used"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
}

func (OtpToken) TableName() string {
	return "otp_tokens"
}

// ResetCode is a single-use numeric password-reset code.
type ResetCode struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	Used      bool      `gorm:"default:false" json:"used"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func (ResetCode) TableName() string {
	return "reset_codes"
}

// LoginAttempt backs the rolling-window brute-force defense: attempts are
// counted per source address, never deleted inline.
type LoginAttempt struct {
	Base
	IPAddress  string `gorm:"size:45;index;not null" json:"ip_address"`
	Username   string `json:"username"`
	Successful bool   `gorm:"default:false" json:"successful"`
}

func (LoginAttempt) TableName() string {
	return "login_attempts"
}
