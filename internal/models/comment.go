package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is left by a user on a listing. The author reference is nullable so
// comments survive account deletion.
type Comment struct {
	ID        string   `gorm:"primaryKey;type:uuid" json:"id"`
	ListingID string   `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"-"`
	UserID    *string  `gorm:"type:uuid;index" json:"user_id"`
	User      *User    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`

	Content   string    `gorm:"size:255;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
