package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/handlers"
	"github.com/mgiordano/clasificados/internal/middleware"
)

func registerAuthRoutes(api *gin.RouterGroup, db *gorm.DB, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(db, deps.Provider, deps.Sessions)
	registrationHandler := handlers.NewRegistrationHandler(deps.Registrations)

	requireAuth := middleware.Auth(deps.JWT)

	auth := api.Group("/auth")
	{
		auth.POST("/register", registrationHandler.Register)
		auth.POST("/register/confirm", registrationHandler.Confirm)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)
	}
}
