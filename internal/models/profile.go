package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile roles. Every profile starts as a buyer.
const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// Profile extends a User with contact and verification attributes. It is
// created lazily the first time an authenticated request needs it.
//
// PhoneVerified is persisted per profile and is reset whenever the phone
// number changes. It is distinct from the per-session two-factor marker on
// Session: the profile flag gates publishing, the session flag gates routing.
type Profile struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	Phone         string `json:"phone"`
	PhoneVerified bool   `gorm:"default:false" json:"phone_verified"`
	Location      string `json:"location"`
	Avatar        string `json:"avatar"`
	Role          string `gorm:"default:buyer" json:"role"`

	// Verified marks the account-level verification performed at
	// registration; it is independent from PhoneVerified.
	Verified bool `gorm:"default:false" json:"verified"`

	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = RoleBuyer
	}
	return nil
}
