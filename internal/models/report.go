package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reportable entity kinds. The reported ID is a raw identifier without
// referential integrity, mirroring the polymorphic report design.
const (
	ReportEntityListing = "listing"
	ReportEntityUser    = "user"
)

// Report records a complaint about a listing or a user.
type Report struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	ReporterID *string `gorm:"type:uuid;index" json:"reporter_id"`
	Reporter   *User   `gorm:"foreignKey:ReporterID;constraint:OnDelete:SET NULL" json:"reporter,omitempty"`

	Reason      string `gorm:"not null" json:"reason"`
	Description string `json:"description"`

	EntityType string `gorm:"not null;index" json:"entity_type"`
	EntityID   string `gorm:"not null" json:"entity_id"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
