package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/handlers"
	"github.com/mgiordano/clasificados/internal/middleware"
)

func registerVerificationRoutes(api *gin.RouterGroup, deps Dependencies) {
	verificationHandler := handlers.NewVerificationHandler(deps.Verifications)

	verification := api.Group("/verification")
	verification.Use(middleware.Auth(deps.JWT))
	{
		verification.POST("/phone", verificationHandler.SubmitPhone)
		verification.POST("/phone/confirm", verificationHandler.ConfirmPhone)
	}
}
