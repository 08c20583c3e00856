package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Session{},
		&models.PendingRegistration{},
		&models.PendingPhoneVerification{},
		&models.Category{},
		&models.Listing{},
		&models.Comment{},
		&models.Report{},
	)
}

// SeedData inserts the default listing categories when they are missing.
func SeedData(db *gorm.DB) error {
	categories := []models.Category{
		{Name: "Vehículos", Slug: "vehiculos"},
		{Name: "Inmuebles", Slug: "inmuebles"},
		{Name: "Electrónica", Slug: "electronica"},
		{Name: "Hogar y Muebles", Slug: "hogar-y-muebles"},
		{Name: "Servicios", Slug: "servicios"},
		{Name: "Otros", Slug: "otros"},
	}

	for _, category := range categories {
		category.ID = uuid.NewString()
		if err := db.Where(models.Category{Slug: category.Slug}).
			Attrs(category).
			FirstOrCreate(&models.Category{}).Error; err != nil {
			return err
		}
	}

	return nil
}
