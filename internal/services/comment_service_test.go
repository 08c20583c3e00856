package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgiordano/clasificados/internal/models"
)

func TestCommentCreateAndList(t *testing.T) {
	db := openCatalogDB(t)
	service, err := NewCommentService(db)
	require.NoError(t, err)
	seller := seedUser(t, db, "vera", true)
	buyer := seedUser(t, db, "nico", false)
	category := firstCategory(t, db)
	listing := seedListing(t, db, seller.ID, category.ID, "Mesa", 100)

	first, err := service.Create(context.Background(), buyer.ID, listing.ID, "¿Sigue disponible?")
	require.NoError(t, err)
	require.Equal(t, buyer.ID, *first.UserID)

	_, err = service.Create(context.Background(), seller.ID, listing.ID, "Sí, disponible.")
	require.NoError(t, err)

	comments, err := service.List(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "¿Sigue disponible?", comments[0].Content)
	require.NotNil(t, comments[0].User)
	require.Equal(t, "nico", comments[0].User.Username)
}

func TestCommentValidation(t *testing.T) {
	db := openCatalogDB(t)
	service, err := NewCommentService(db)
	require.NoError(t, err)
	seller := seedUser(t, db, "vera", true)
	category := firstCategory(t, db)
	listing := seedListing(t, db, seller.ID, category.ID, "Mesa", 100)

	_, err = service.Create(context.Background(), seller.ID, listing.ID, "   ")
	require.ErrorIs(t, err, ErrCommentEmpty)

	_, err = service.Create(context.Background(), seller.ID, listing.ID, strings.Repeat("a", 256))
	require.ErrorIs(t, err, ErrCommentTooLong)

	_, err = service.Create(context.Background(), seller.ID, "missing", "hola")
	require.ErrorIs(t, err, ErrListingNotFound)

	inactive := seedListing(t, db, seller.ID, category.ID, "Silla", 50, func(l *models.Listing) {
		l.Active = false
	})
	_, err = service.Create(context.Background(), seller.ID, inactive.ID, "hola")
	require.ErrorIs(t, err, ErrListingNotFound)
}
