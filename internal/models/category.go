package models

// Category groups listings (vehicles, real estate, services, ...).
type Category struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	Listings []Listing `gorm:"foreignKey:CategoryID" json:"-"`
}
