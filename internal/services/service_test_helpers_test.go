package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
)

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
}

func seedUser(t *testing.T, db *gorm.DB, username string, phoneVerified bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	profile := &models.Profile{
		UserID:        user.ID,
		PhoneVerified: phoneVerified,
	}
	if phoneVerified {
		profile.Phone = "+54 11 5555-0000"
	}
	require.NoError(t, db.Create(profile).Error)
	return user
}

func firstCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	var category models.Category
	require.NoError(t, db.First(&category).Error)
	return &category
}

func categoryBySlug(t *testing.T, db *gorm.DB, slug string) *models.Category {
	t.Helper()
	var category models.Category
	require.NoError(t, db.First(&category, "slug = ?", slug).Error)
	return &category
}

func seedListing(t *testing.T, db *gorm.DB, userID, categoryID, title string, price float64, mutate ...func(*models.Listing)) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		UserID:      userID,
		CategoryID:  categoryID,
		Title:       title,
		Description: title + " description",
		Price:       price,
		Condition:   models.ConditionUsed,
		Location:    "Buenos Aires",
		Active:      true,
		PublishedAt: time.Now(),
	}
	for _, fn := range mutate {
		fn(listing)
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}
