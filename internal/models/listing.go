package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing conditions.
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// Listing is a published classified ad.
type Listing struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID string    `gorm:"type:uuid;not null;index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"not null" json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	Condition   string  `gorm:"default:used" json:"condition"`
	Location    string  `gorm:"index" json:"location"`
	Image       string  `json:"image"`

	// No column default here: a default would make GORM drop explicit
	// false values on insert.
	Active      bool      `gorm:"index" json:"active"`
	PublishedAt time.Time `gorm:"autoCreateTime;index" json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Comments []Comment `gorm:"foreignKey:ListingID" json:"-"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Condition == "" {
		l.Condition = ConditionUsed
	}
	return nil
}
