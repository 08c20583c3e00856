package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/handlers"
	"github.com/mgiordano/clasificados/internal/middleware"
)

func registerCatalogRoutes(api *gin.RouterGroup, deps Dependencies) {
	listingHandler := handlers.NewListingHandler(deps.Listings)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories)
	commentHandler := handlers.NewCommentHandler(deps.Comments)
	profileHandler := handlers.NewProfileHandler(deps.Profiles, deps.Listings)
	reportHandler := handlers.NewReportHandler(deps.Reports)

	requireAuth := middleware.Auth(deps.JWT)

	// Browsing is public; publishing and editing require authentication.
	listings := api.Group("/listings")
	{
		listings.GET("", listingHandler.List)
		listings.POST("", requireAuth, listingHandler.Create)
		listings.GET("/:id", listingHandler.Get)
		listings.PATCH("/:id", requireAuth, listingHandler.Update)
		listings.DELETE("/:id", requireAuth, listingHandler.Delete)
		listings.GET("/:id/comments", commentHandler.List)
		listings.POST("/:id/comments", requireAuth, commentHandler.Create)
	}

	api.GET("/categories", categoryHandler.List)
	api.GET("/locations", listingHandler.Locations)

	profile := api.Group("/profile")
	profile.Use(requireAuth)
	{
		profile.GET("", profileHandler.Get)
		profile.PATCH("", profileHandler.Update)
	}

	// Reports are accepted from anonymous visitors as well.
	api.POST("/reports", reportHandler.Create)
}
