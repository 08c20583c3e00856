package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a refresh-token backed login session.
//
// TwoFactorVerified is the session-scoped verification marker consulted by
// the verification guard. It is set when the session completes the phone
// confirmation step and never derived from Profile.PhoneVerified, so a user
// who verified a phone in an earlier session still re-verifies new sessions.
type Session struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RefreshToken string `gorm:"uniqueIndex;not null" json:"-"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	TwoFactorVerified bool `gorm:"default:false" json:"two_factor_verified"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
