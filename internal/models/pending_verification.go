package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingRegistration bridges the two registration steps: it is created when
// the form is submitted and deleted once the emailed code is confirmed. The
// row ID doubles as the opaque session key handed back to the browser.
type PendingRegistration struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	Code   string `gorm:"not null" json:"-"`

	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *PendingRegistration) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PendingPhoneVerification holds the SMS code issued to one login session.
// Keyed by session so concurrent sessions never observe each other's codes.
type PendingPhoneVerification struct {
	SessionID string `gorm:"primaryKey;type:uuid" json:"session_id"`
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	Phone     string `gorm:"not null" json:"phone"`
	Code      string `gorm:"not null" json:"-"`

	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
